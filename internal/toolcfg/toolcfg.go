// Package toolcfg holds the pinned configuration for the external
// analysis tools: binary pins, per-tool severity mapping tables, and the
// canonical rule-category table used for cross-tool deduplication.
//
// The tables are static, versioned data loaded once at startup. They are
// never inferred at runtime; determinism of the whole scoring pipeline
// depends on that.
package toolcfg

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/confcritic/internal/finding"
)

//go:embed builtin/tables.yaml
var builtinFS embed.FS

// Tables is the versioned mapping configuration.
type Tables struct {
	Version      int                          `yaml:"version"`
	SeverityMaps map[string]map[string]string `yaml:"severity_maps"`
	Categories   []CategoryRule               `yaml:"categories"`

	// indexes built once at load: "tool:rule_id" → canonical category
	ruleIndex   map[string]string
	prefixRules []prefixRule
	canonical   map[string]bool
}

type prefixRule struct {
	prefix   string
	category string
}

// CategoryRule maps tool-native rule IDs onto one canonical check
// category. Rules are listed as "tool:rule_id"; a trailing "*" matches
// by prefix.
type CategoryRule struct {
	Category string   `yaml:"category"`
	Rules    []string `yaml:"rules"`
}

// LoadBuiltin loads the embedded mapping tables.
func LoadBuiltin() (*Tables, error) {
	data, err := builtinFS.ReadFile("builtin/tables.yaml")
	if err != nil {
		return nil, fmt.Errorf("toolcfg.LoadBuiltin: %w", err)
	}
	return parseTables(data)
}

// Parse loads mapping tables from raw YAML, for deployments that pin
// their own table file.
func Parse(data []byte) (*Tables, error) {
	return parseTables(data)
}

func parseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("toolcfg: parse tables: %w", err)
	}
	if t.Version < 1 {
		return nil, fmt.Errorf("toolcfg: tables missing version")
	}
	for tool, m := range t.SeverityMaps {
		for raw, mapped := range m {
			if !finding.Severity(mapped).Valid() {
				return nil, fmt.Errorf("toolcfg: severity map %s: %q maps to invalid severity %q", tool, raw, mapped)
			}
		}
	}
	t.ruleIndex = make(map[string]string)
	t.canonical = make(map[string]bool)
	for _, cr := range t.Categories {
		t.canonical[cr.Category] = true
		for _, r := range cr.Rules {
			if strings.HasSuffix(r, "*") {
				t.prefixRules = append(t.prefixRules, prefixRule{strings.TrimSuffix(r, "*"), cr.Category})
				continue
			}
			t.ruleIndex[r] = cr.Category
		}
	}
	// longest prefix wins when several match
	sort.Slice(t.prefixRules, func(i, j int) bool {
		return len(t.prefixRules[i].prefix) > len(t.prefixRules[j].prefix)
	})
	return &t, nil
}

// MapSeverity maps a tool-native severity string into the canonical
// scale. Unmapped values default to MEDIUM with degraded=true so the
// caller can flag the finding instead of guessing silently.
func (t *Tables) MapSeverity(tool finding.Tool, raw string) (sev finding.Severity, degraded bool) {
	m, ok := t.SeverityMaps[string(tool)]
	if ok {
		if mapped, ok := m[strings.ToUpper(strings.TrimSpace(raw))]; ok {
			return finding.Severity(mapped), false
		}
	}
	return finding.SeverityMedium, true
}

// Category resolves a tool-native rule ID to its canonical check
// category. Returns ok=false when the rule has no table entry; callers
// must fall back to a namespaced category rather than guess.
func (t *Tables) Category(tool finding.Tool, ruleID string) (string, bool) {
	key := string(tool) + ":" + ruleID
	if cat, ok := t.ruleIndex[key]; ok {
		return cat, true
	}
	for _, pr := range t.prefixRules {
		if strings.HasPrefix(key, pr.prefix) {
			return pr.category, true
		}
	}
	return "", false
}

// IsCanonical reports whether name is one of the table's canonical
// categories. Used when re-normalizing already-normalized output, where
// the rule ID is the canonical category itself.
func (t *Tables) IsCanonical(name string) bool {
	return t.canonical[name]
}

// FallbackCategory is the namespaced category assigned to rule IDs with
// no table entry.
func FallbackCategory(tool finding.Tool, ruleID string) string {
	return string(tool) + ":" + ruleID
}
