package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/confcritic/internal/finding"
	"github.com/dshills/confcritic/internal/reward"
	"github.com/dshills/confcritic/internal/violation"
)

var (
	fg      = lipgloss.Color("#E8E6E3")
	dim     = lipgloss.Color("#6B7280")
	danger  = lipgloss.Color("#EF4444")
	warning = lipgloss.Color("#F59E0B")
	success = lipgloss.Color("#22C55E")
	info    = lipgloss.Color("#8B949E")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(fg)
	dimStyle    = lipgloss.NewStyle().Foreground(dim)
	rewardStyle = lipgloss.NewStyle().Bold(true).Foreground(success)

	severityStyles = map[finding.Severity]lipgloss.Style{
		finding.SeverityCritical: lipgloss.NewStyle().Bold(true).Foreground(danger),
		finding.SeverityHigh:     lipgloss.NewStyle().Foreground(danger),
		finding.SeverityMedium:   lipgloss.NewStyle().Foreground(warning),
		finding.SeverityLow:      lipgloss.NewStyle().Foreground(info),
	}
)

// Terminal renders a compact styled summary for interactive use.
func Terminal(r violation.ScanResult, breakdown *reward.Breakdown) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("confcritic audit"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(r.ArtifactHash))
	b.WriteString("\n\n")

	if len(r.Violations) == 0 {
		b.WriteString(rewardStyle.Render("no violations found"))
		b.WriteString("\n")
	}
	for _, v := range r.Violations {
		sevTag := severityStyles[v.Severity].Render(fmt.Sprintf("%-8s", v.Severity))
		fmt.Fprintf(&b, "%s %s  %s\n", sevTag, v.Category, dimStyle.Render(v.Resource))
	}

	if len(r.ToolErrors) > 0 {
		b.WriteString("\n")
		for _, te := range r.ToolErrors {
			fmt.Fprintf(&b, "%s %s: %s\n",
				severityStyles[finding.SeverityMedium].Render("tool-error"), te.Tool, te.Reason)
		}
	}

	if breakdown != nil {
		b.WriteString("\n")
		fmt.Fprintf(&b, "precision %.3f  recall %.3f  f1 %.3f  bonus %.3f\n",
			breakdown.Precision, breakdown.Recall, breakdown.F1, breakdown.PatchDeltaBonus)
		b.WriteString(rewardStyle.Render(fmt.Sprintf("reward %.3f", breakdown.FinalReward)))
		if breakdown.PatchFailed {
			b.WriteString(dimStyle.Render("  (patch failed)"))
		}
		b.WriteString("\n")
	}

	return b.String()
}
