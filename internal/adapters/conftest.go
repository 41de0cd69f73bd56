package adapters

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/dshills/confcritic/internal/finding"
	"github.com/dshills/confcritic/internal/toolcfg"
)

// PolicyEngine runs the policy engine (conftest/OPA) against a manifest.
type PolicyEngine struct {
	tables *toolcfg.Tables
	pin    toolcfg.Pin
}

// NewPolicyEngine builds the policy-engine adapter.
func NewPolicyEngine(tables *toolcfg.Tables, pin toolcfg.Pin) *PolicyEngine {
	return &PolicyEngine{tables: tables, pin: pin}
}

func (p *PolicyEngine) Tool() finding.Tool { return finding.ToolPolicyEngine }

type conftestResult struct {
	Filename  string         `json:"filename"`
	Namespace string         `json:"namespace"`
	Failures  []conftestItem `json:"failures"`
	Warnings  []conftestItem `json:"warnings"`
}

type conftestItem struct {
	Msg      string         `json:"msg"`
	Metadata map[string]any `json:"metadata"`
}

// Scan runs `conftest test --output json` with the pinned policy directory.
func (p *PolicyEngine) Scan(ctx context.Context, artifactPath string) ([]finding.Finding, *finding.ToolError) {
	args := []string{"test", "--output", "json"}
	if p.pin.RuleSet != "" {
		args = append(args, "--policy", p.pin.RuleSet)
	}
	args = append(args, artifactPath)

	out, terr := runTool(ctx, p.Tool(), p.pin, args...)
	if terr != nil {
		return nil, terr
	}
	return p.parse(out)
}

func (p *PolicyEngine) parse(out []byte) ([]finding.Finding, *finding.ToolError) {
	var results []conftestResult
	if err := json.Unmarshal(out, &results); err != nil {
		return nil, parseError(p.Tool(), err)
	}

	var findings []finding.Finding
	for _, r := range results {
		file := filepath.ToSlash(r.Filename)
		for _, item := range r.Failures {
			findings = append(findings, p.toFinding(file, item, "DENY"))
		}
		for _, item := range r.Warnings {
			findings = append(findings, p.toFinding(file, item, "WARN"))
		}
	}
	return findings, nil
}

func (p *PolicyEngine) toFinding(file string, item conftestItem, defaultRaw string) finding.Finding {
	raw := defaultRaw
	if s := metaString(item.Metadata, "severity"); s != "" {
		raw = s
	}
	ruleID := metaString(item.Metadata, "rule")
	if ruleID == "" {
		ruleID = metaString(item.Metadata, "id")
	}
	if ruleID == "" {
		ruleID = ruleFromMsg(item.Msg)
	}
	sev, degraded := p.tables.MapSeverity(p.Tool(), raw)
	return finding.Finding{
		Tool:            p.Tool(),
		RuleID:          ruleID,
		Message:         item.Msg,
		RawSeverity:     raw,
		Severity:        sev,
		File:            file,
		Resource:        metaString(item.Metadata, "resource"),
		Category:        metaString(item.Metadata, "category"),
		DegradedMapping: degraded,
	}
}

func metaString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// ruleFromMsg derives a stable rule ID from the failure message for
// policies that carry no metadata. The first few words are slugged so
// the same policy always yields the same ID.
func ruleFromMsg(msg string) string {
	words := strings.Fields(strings.ToLower(msg))
	if len(words) > 5 {
		words = words[:5]
	}
	slug := strings.Join(words, "-")
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' {
			return r
		}
		return -1
	}, slug)
}
