// Package patch applies proposed remediations to artifact text. The
// engine is pure: it returns the would-be patched content and never
// touches the filesystem. Patches are untrusted input; anything that
// does not parse or does not match the target is rejected, never
// partially applied.
package patch

// Format identifies the patch encoding.
type Format string

const (
	FormatUnifiedDiff Format = "unified-diff"
	FormatStructured  Format = "structured"
)

func (f Format) Valid() bool {
	switch f {
	case FormatUnifiedDiff, FormatStructured:
		return true
	}
	return false
}

// Spec is a proposed remediation supplied by the caller.
type Spec struct {
	Format     Format `json:"format" yaml:"format"`
	Content    string `json:"content" yaml:"content"`
	TargetPath string `json:"target_path" yaml:"target_path"`
}

// RejectReason classifies why a patch was not applied.
type RejectReason string

const (
	// ReasonMalformed: the patch could not be parsed at all.
	ReasonMalformed RejectReason = "malformed"
	// ReasonDoesNotApply: the patch parsed but its context or paths do
	// not match the target content.
	ReasonDoesNotApply RejectReason = "does-not-apply"
)

// Result is the tagged outcome of an Apply: Patched carries the new
// content, Rejected carries the reason. Callers branch on Applied
// instead of unwinding errors; a rejected patch downgrades the episode,
// it does not abort it.
type Result struct {
	Applied bool
	Content string
	Reason  RejectReason
	Err     error
}

func patched(content string) Result {
	return Result{Applied: true, Content: content}
}

func rejected(reason RejectReason, err error) Result {
	return Result{Applied: false, Reason: reason, Err: err}
}

// Apply applies spec to content. All-or-nothing: either every hunk or
// op applies cleanly and the full patched content is returned, or the
// patch is rejected and content is left untouched.
func Apply(content string, spec Spec) Result {
	switch spec.Format {
	case FormatUnifiedDiff:
		return applyUnified(content, spec.Content)
	case FormatStructured:
		return applyStructured(content, spec.Content)
	default:
		return rejected(ReasonMalformed, errUnknownFormat(spec.Format))
	}
}

type formatError struct{ format Format }

func (e formatError) Error() string { return "unknown patch format: " + string(e.format) }

func errUnknownFormat(f Format) error { return formatError{f} }
