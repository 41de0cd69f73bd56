package adapters

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/dshills/confcritic/internal/finding"
	"github.com/dshills/confcritic/internal/toolcfg"
)

// PatternScanner runs the pattern scanner (semgrep) against a manifest.
type PatternScanner struct {
	tables *toolcfg.Tables
	pin    toolcfg.Pin
}

// NewPatternScanner builds the pattern-scanner adapter.
func NewPatternScanner(tables *toolcfg.Tables, pin toolcfg.Pin) *PatternScanner {
	return &PatternScanner{tables: tables, pin: pin}
}

func (p *PatternScanner) Tool() finding.Tool { return finding.ToolPatternScanner }

type semgrepJSON struct {
	Results []struct {
		CheckID string `json:"check_id"`
		Path    string `json:"path"`
		Start   struct {
			Line int `json:"line"`
		} `json:"start"`
		Extra struct {
			Message  string `json:"message"`
			Severity string `json:"severity"`
			Metadata struct {
				Category string `json:"category"`
			} `json:"metadata"`
		} `json:"extra"`
	} `json:"results"`
}

// Scan runs `semgrep scan --json` with the pinned rule set.
func (p *PatternScanner) Scan(ctx context.Context, artifactPath string) ([]finding.Finding, *finding.ToolError) {
	args := []string{"scan", "--json", "--quiet"}
	if p.pin.RuleSet != "" {
		args = append(args, "--config", p.pin.RuleSet)
	}
	args = append(args, artifactPath)

	out, terr := runTool(ctx, p.Tool(), p.pin, args...)
	if terr != nil {
		return nil, terr
	}
	return p.parse(out)
}

func (p *PatternScanner) parse(out []byte) ([]finding.Finding, *finding.ToolError) {
	var doc semgrepJSON
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, parseError(p.Tool(), err)
	}

	findings := make([]finding.Finding, 0, len(doc.Results))
	for _, r := range doc.Results {
		sev, degraded := p.tables.MapSeverity(p.Tool(), r.Extra.Severity)
		findings = append(findings, finding.Finding{
			Tool:            p.Tool(),
			RuleID:          r.CheckID,
			Message:         r.Extra.Message,
			RawSeverity:     r.Extra.Severity,
			Severity:        sev,
			File:            filepath.ToSlash(r.Path),
			Line:            r.Start.Line,
			Category:        r.Extra.Metadata.Category,
			DegradedMapping: degraded,
		})
	}
	return findings, nil
}
