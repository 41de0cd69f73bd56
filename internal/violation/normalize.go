package violation

import (
	"sort"

	"github.com/dshills/confcritic/internal/finding"
	"github.com/dshills/confcritic/internal/redact"
	"github.com/dshills/confcritic/internal/toolcfg"
)

// Normalize merges findings from all tools into a deduplicated,
// deterministically ordered violation list.
//
// Deduplication key: (resource identity, canonical rule category). When
// several findings share a key the worst severity wins and sources is
// the union of contributing tools.
func Normalize(tables *toolcfg.Tables, findings []finding.Finding, toolErrs []finding.ToolError, artifactHash string) ScanResult {
	type bucket struct {
		resource string
		category string
		merged   []finding.Finding
	}

	buckets := make(map[string]*bucket)
	var order []string
	for _, f := range findings {
		category := canonicalCategory(tables, f)
		resource := f.ResourceIdentity()
		key := resource + "\x00" + category
		b, ok := buckets[key]
		if !ok {
			b = &bucket{resource: resource, category: category}
			buckets[key] = b
			order = append(order, key)
		}
		b.merged = append(b.merged, f)
	}

	violations := make([]Violation, 0, len(buckets))
	for _, key := range order {
		b := buckets[key]
		violations = append(violations, mergeBucket(b.resource, b.category, b.merged))
	}
	Sort(violations)

	return ScanResult{
		Violations:   violations,
		ToolErrors:   sortToolErrors(toolErrs),
		ArtifactHash: artifactHash,
	}
}

// canonicalCategory resolves a finding's rule ID to a canonical check
// category. Unmapped rule IDs get a namespaced fallback category so that
// two tools are never guessed into the same bucket.
func canonicalCategory(tables *toolcfg.Tables, f finding.Finding) string {
	if cat, ok := tables.Category(f.Tool, f.RuleID); ok {
		return cat
	}
	// Synthetic findings from ToFindings carry a category as their rule
	// ID; pass those through unchanged so re-normalization is stable.
	if tables.IsCanonical(f.RuleID) || isFallbackForm(f.RuleID) {
		return f.RuleID
	}
	return toolcfg.FallbackCategory(f.Tool, f.RuleID)
}

// isFallbackForm reports whether a rule ID is already a namespaced
// fallback category ("<tool>:<rule>").
func isFallbackForm(ruleID string) bool {
	for i := 0; i < len(ruleID); i++ {
		if ruleID[i] == ':' {
			return finding.Tool(ruleID[:i]).Valid()
		}
	}
	return false
}

func mergeBucket(resource, category string, merged []finding.Finding) Violation {
	// deterministic merge order: worst severity first, then tool, rule, message
	sort.Slice(merged, func(i, j int) bool {
		if a, b := merged[i].Severity.Order(), merged[j].Severity.Order(); a != b {
			return a < b
		}
		if merged[i].Tool != merged[j].Tool {
			return merged[i].Tool < merged[j].Tool
		}
		if merged[i].RuleID != merged[j].RuleID {
			return merged[i].RuleID < merged[j].RuleID
		}
		return merged[i].Message < merged[j].Message
	})

	seen := make(map[finding.Tool]bool)
	var sources []finding.Tool
	degraded := false
	for _, f := range merged {
		if !seen[f.Tool] {
			seen[f.Tool] = true
			sources = append(sources, f.Tool)
		}
		if f.DegradedMapping {
			degraded = true
		}
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	return Violation{
		ID:          MakeID(resource, category),
		Severity:    merged[0].Severity,
		Resource:    resource,
		Sources:     sources,
		Category:    category,
		Description: redact.Redact(merged[0].Message),
		Degraded:    degraded,
	}
}

// Sort orders violations by severity (worst first), then resource, then ID.
func Sort(violations []Violation) {
	sort.SliceStable(violations, func(i, j int) bool {
		if a, b := violations[i].Severity.Order(), violations[j].Severity.Order(); a != b {
			return a < b
		}
		if violations[i].Resource != violations[j].Resource {
			return violations[i].Resource < violations[j].Resource
		}
		return violations[i].ID < violations[j].ID
	})
}

func sortToolErrors(errs []finding.ToolError) []finding.ToolError {
	if len(errs) == 0 {
		return nil
	}
	out := make([]finding.ToolError, len(errs))
	copy(out, errs)
	sort.Slice(out, func(i, j int) bool { return out[i].Tool < out[j].Tool })
	return out
}

// ToFindings emits one synthetic finding per (violation, source) pair so
// that normalizing an already-normalized result reproduces it exactly.
// The violation's category becomes the rule ID, which canonicalCategory
// passes through unchanged.
func ToFindings(r ScanResult) []finding.Finding {
	var out []finding.Finding
	for _, v := range r.Violations {
		for _, src := range v.Sources {
			out = append(out, finding.Finding{
				Tool:            src,
				RuleID:          v.Category,
				Message:         v.Description,
				RawSeverity:     string(v.Severity),
				Severity:        v.Severity,
				Resource:        v.Resource,
				Category:        v.Category,
				DegradedMapping: v.Degraded,
			})
		}
	}
	return out
}
