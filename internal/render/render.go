// Package render produces Markdown and terminal output from scan
// results and reward breakdowns.
package render

import (
	"fmt"
	"strings"

	"github.com/dshills/confcritic/internal/finding"
	"github.com/dshills/confcritic/internal/reward"
	"github.com/dshills/confcritic/internal/violation"
)

// Markdown renders a scan result, and optionally a reward breakdown, as
// a Markdown report.
func Markdown(r violation.ScanResult, breakdown *reward.Breakdown) string {
	var b strings.Builder

	b.WriteString("# ConfCritic Audit\n\n")
	fmt.Fprintf(&b, "**Artifact:** `%s`\n", r.ArtifactHash)
	counts := countBySeverity(r.Violations)
	fmt.Fprintf(&b, "**Violations:** %d critical, %d high, %d medium, %d low\n\n",
		counts[finding.SeverityCritical], counts[finding.SeverityHigh],
		counts[finding.SeverityMedium], counts[finding.SeverityLow])

	for _, sev := range []finding.Severity{finding.SeverityCritical, finding.SeverityHigh, finding.SeverityMedium, finding.SeverityLow} {
		group := filterBySeverity(r.Violations, sev)
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", titleFor(sev))
		for _, v := range group {
			renderViolation(&b, v)
		}
	}

	if len(r.Violations) == 0 {
		b.WriteString("No violations found.\n\n")
	}

	if len(r.ToolErrors) > 0 {
		b.WriteString("## Tool Errors\n\n")
		for _, te := range r.ToolErrors {
			fmt.Fprintf(&b, "- `%s`: %s (%s)\n", te.Tool, te.Reason, te.Detail)
		}
		b.WriteString("\n")
	}

	if breakdown != nil {
		b.WriteString("## Reward\n\n")
		fmt.Fprintf(&b, "| precision | recall | f1 | patch bonus | final |\n")
		fmt.Fprintf(&b, "|---|---|---|---|---|\n")
		fmt.Fprintf(&b, "| %.3f | %.3f | %.3f | %.3f | %.3f |\n\n",
			breakdown.Precision, breakdown.Recall, breakdown.F1,
			breakdown.PatchDeltaBonus, breakdown.FinalReward)
		if breakdown.PatchFailed {
			b.WriteString("Patch did not apply; no patch bonus awarded.\n\n")
		}
	}

	return b.String()
}

func renderViolation(b *strings.Builder, v violation.Violation) {
	fmt.Fprintf(b, "### %s [%s]\n\n", v.Category, v.Severity)
	fmt.Fprintf(b, "%s\n\n", v.Description)
	fmt.Fprintf(b, "- Resource: `%s`\n", v.Resource)
	fmt.Fprintf(b, "- ID: `%s`\n", v.ID)
	fmt.Fprintf(b, "- Detected by: %s\n", joinTools(v.Sources))
	if v.Degraded {
		b.WriteString("- Mapping: degraded (no table entry for rule or raw severity)\n")
	}
	b.WriteString("\n")
}

func titleFor(sev finding.Severity) string {
	switch sev {
	case finding.SeverityCritical:
		return "Critical"
	case finding.SeverityHigh:
		return "High"
	case finding.SeverityMedium:
		return "Medium"
	default:
		return "Low"
	}
}

func countBySeverity(violations []violation.Violation) map[finding.Severity]int {
	counts := make(map[finding.Severity]int)
	for _, v := range violations {
		counts[v.Severity]++
	}
	return counts
}

func filterBySeverity(violations []violation.Violation, sev finding.Severity) []violation.Violation {
	var result []violation.Violation
	for _, v := range violations {
		if v.Severity == sev {
			result = append(result, v)
		}
	}
	return result
}

func joinTools(tools []finding.Tool) string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
