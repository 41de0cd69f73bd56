// Package violation defines the deduplicated, severity-normalized unit
// of truth produced by merging findings across tools, and the normalizer
// that builds it.
package violation

import (
	"crypto/sha256"
	"fmt"

	"github.com/dshills/confcritic/internal/finding"
)

// Violation is one normalized issue. A fresh set is built for every
// scan; violations are never mutated after creation.
type Violation struct {
	ID          string            `json:"id"`
	Severity    finding.Severity  `json:"severity"`
	Resource    string            `json:"resource"`
	Sources     []finding.Tool    `json:"sources"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	// Degraded marks violations built from findings whose severity
	// mapping or rule category had no table entry.
	Degraded bool `json:"degraded,omitempty"`
}

// Key returns the deduplication and matching key. Two findings collapse
// into one violation iff their keys are equal, and the reward calculator
// matches predicted against oracle violations by the same key.
func (v Violation) Key() string {
	return v.Resource + "\x00" + v.Category
}

// MakeID derives the stable violation ID from its matching key.
func MakeID(resource, category string) string {
	sum := sha256.Sum256([]byte(resource + "\x00" + category))
	return fmt.Sprintf("v-%x", sum[:6])
}

// ScanResult holds one scan phase's normalized output. The pre-patch and
// post-patch results are distinct values built under identical tool
// configuration.
type ScanResult struct {
	Violations   []Violation         `json:"violations"`
	ToolErrors   []finding.ToolError `json:"tool_errors,omitempty"`
	ArtifactHash string              `json:"artifact_hash"`
}

// KeySet returns the set of violation keys with their severities.
func (r ScanResult) KeySet() map[string]finding.Severity {
	keys := make(map[string]finding.Severity, len(r.Violations))
	for _, v := range r.Violations {
		keys[v.Key()] = v.Severity
	}
	return keys
}
