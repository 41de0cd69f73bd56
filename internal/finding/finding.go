// Package finding defines the raw detections emitted by the external
// analysis tools, before cross-tool normalization.
package finding

import "fmt"

// Tool identifies which external analyzer produced a finding.
type Tool string

const (
	ToolLinter         Tool = "linter"
	ToolPolicyEngine   Tool = "policy-engine"
	ToolPatternScanner Tool = "pattern-scanner"
)

func (t Tool) Valid() bool {
	switch t {
	case ToolLinter, ToolPolicyEngine, ToolPatternScanner:
		return true
	}
	return false
}

// Severity is the canonical severity scale shared by all tools.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Weight returns the scoring weight used for severity-weighted metrics.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityCritical:
		return 8
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Order returns a sort key (lower = more severe).
func (s Severity) Order() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	}
	return 4
}

// Max returns the worse of two severities.
func Max(a, b Severity) Severity {
	if a.Order() <= b.Order() {
		return a
	}
	return b
}

// Finding is one detection from a single tool, prior to deduplication.
// Findings are produced only by the tool adapters and never mutated.
type Finding struct {
	Tool        Tool
	RuleID      string
	Message     string
	RawSeverity string
	Severity    Severity
	File        string
	Line        int
	// Resource is a structural locator when the tool provides one
	// (e.g. "Deployment/web"). Falls back to file:line identity.
	Resource string
	Category string
	// DegradedMapping marks findings whose raw severity had no entry in
	// the per-tool mapping table and was defaulted to MEDIUM.
	DegradedMapping bool
}

// ResourceIdentity returns the locator used for cross-tool deduplication.
func (f Finding) ResourceIdentity() string {
	if f.Resource != "" {
		return f.Resource
	}
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	return f.File
}

// ErrorReason classifies why a tool invocation produced no usable output.
type ErrorReason string

const (
	ErrTimeout       ErrorReason = "timeout"
	ErrMissingBinary ErrorReason = "missing-binary"
	ErrUnparsable    ErrorReason = "unparsable-output"
)

// ToolError records a per-tool failure. A failed tool contributes zero
// findings and degrades detection coverage; it never fails the episode.
type ToolError struct {
	Tool   Tool        `json:"tool"`
	Reason ErrorReason `json:"reason"`
	Detail string      `json:"detail,omitempty"`
}

func (e ToolError) Error() string {
	return string(e.Tool) + ": " + string(e.Reason) + ": " + e.Detail
}
