package toolcfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/confcritic/internal/finding"
)

func TestLoadBuiltin(t *testing.T) {
	tables, err := LoadBuiltin()
	if err != nil {
		t.Fatalf("LoadBuiltin() error: %v", err)
	}
	if tables.Version < 1 {
		t.Errorf("expected version >= 1, got %d", tables.Version)
	}
	if len(tables.Categories) == 0 {
		t.Error("expected builtin category table to be non-empty")
	}
}

func TestMapSeverity(t *testing.T) {
	tables, err := LoadBuiltin()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		tool         finding.Tool
		raw          string
		want         finding.Severity
		wantDegraded bool
	}{
		{finding.ToolLinter, "ERROR", finding.SeverityHigh, false},
		{finding.ToolLinter, "error", finding.SeverityHigh, false},
		{finding.ToolLinter, "  warning ", finding.SeverityMedium, false},
		{finding.ToolPolicyEngine, "DENY", finding.SeverityHigh, false},
		{finding.ToolPatternScanner, "INFO", finding.SeverityLow, false},
		{finding.ToolPatternScanner, "BANANA", finding.SeverityMedium, true},
		{finding.ToolLinter, "", finding.SeverityMedium, true},
	}
	for _, tt := range tests {
		got, degraded := tables.MapSeverity(tt.tool, tt.raw)
		if got != tt.want || degraded != tt.wantDegraded {
			t.Errorf("MapSeverity(%s, %q) = (%s, %v), want (%s, %v)",
				tt.tool, tt.raw, got, degraded, tt.want, tt.wantDegraded)
		}
	}
}

func TestCategory(t *testing.T) {
	tables, err := LoadBuiltin()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		tool   finding.Tool
		ruleID string
		want   string
		wantOK bool
	}{
		{finding.ToolLinter, "privileged-container", "privileged-container", true},
		{finding.ToolPolicyEngine, "privileged", "privileged-container", true},
		{finding.ToolLinter, "latest-tag", "unpinned-image", true},
		// prefix entry
		{finding.ToolPatternScanner, "yaml.kubernetes.security.run-as-non-root.deployment", "run-as-root", true},
		{finding.ToolLinter, "made-up-rule", "", false},
	}
	for _, tt := range tests {
		got, ok := tables.Category(tt.tool, tt.ruleID)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Category(%s, %q) = (%q, %v), want (%q, %v)",
				tt.tool, tt.ruleID, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestIsCanonical(t *testing.T) {
	tables, err := LoadBuiltin()
	if err != nil {
		t.Fatal(err)
	}
	if !tables.IsCanonical("privileged-container") {
		t.Error("expected privileged-container to be canonical")
	}
	if tables.IsCanonical("linter:whatever") {
		t.Error("expected namespaced fallback not to be canonical")
	}
}

func TestFallbackCategory(t *testing.T) {
	got := FallbackCategory(finding.ToolLinter, "my-rule")
	if got != "linter:my-rule" {
		t.Errorf("FallbackCategory() = %q, want %q", got, "linter:my-rule")
	}
}

func TestParseRejectsMissingVersion(t *testing.T) {
	if _, err := Parse([]byte("categories: []\n")); err == nil {
		t.Error("expected error for tables without version")
	}
}

func TestParseRejectsInvalidMappedSeverity(t *testing.T) {
	// a typo in an override table must fail at load, not flow into scoring
	tables := `version: 1
severity_maps:
  linter:
    ERROR: HGIH
categories: []
`
	if _, err := Parse([]byte(tables)); err == nil {
		t.Error("expected error for severity map with invalid target")
	}
}

func TestDefaultPins(t *testing.T) {
	pins := DefaultPins()
	for _, tool := range []finding.Tool{finding.ToolLinter, finding.ToolPolicyEngine, finding.ToolPatternScanner} {
		pin := pins.For(tool)
		if pin.Binary == "" {
			t.Errorf("default pin for %s has no binary", tool)
		}
		if pin.Timeout != DefaultTimeout {
			t.Errorf("default pin for %s has timeout %v, want %v", tool, pin.Timeout, DefaultTimeout)
		}
	}
}

func TestLoadPins(t *testing.T) {
	manifest := `# pinned tool versions
linter.bin=kube-linter
linter.version=0.6.8
linter.timeout=45s

policy-engine.rules=policy/kubernetes
pattern-scanner.bin=semgrep
`
	path := writeTemp(t, "confcritic.pins", manifest)
	pins, err := LoadPins(path)
	if err != nil {
		t.Fatalf("LoadPins() error: %v", err)
	}

	lint := pins.For(finding.ToolLinter)
	if lint.Binary != "kube-linter" || lint.Version != "0.6.8" || lint.Timeout != 45*time.Second {
		t.Errorf("linter pin = %+v", lint)
	}
	if got := pins.For(finding.ToolPolicyEngine).RuleSet; got != "policy/kubernetes" {
		t.Errorf("policy-engine rules = %q, want policy/kubernetes", got)
	}
	// untouched fields keep defaults
	if got := pins.For(finding.ToolPatternScanner).Timeout; got != DefaultTimeout {
		t.Errorf("pattern-scanner timeout = %v, want default", got)
	}
}

func TestLoadPinsErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{"no equals", "linter.bin kube-linter\n"},
		{"no dot", "linter=kube-linter\n"},
		{"unknown tool", "fuzzer.bin=zzuf\n"},
		{"unknown field", "linter.color=blue\n"},
		{"bad timeout", "linter.timeout=fast\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, "bad.pins", tt.manifest)
			if _, err := LoadPins(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
