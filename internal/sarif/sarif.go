// Package sarif exports a scan result as a SARIF 2.1.0 log so CI
// systems and editors can surface the violations.
package sarif

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dshills/confcritic/internal/finding"
	"github.com/dshills/confcritic/internal/violation"
)

// Log is the top-level SARIF document.
type Log struct {
	Version string `json:"version"`
	Schema  string `json:"$schema"`
	Runs    []Run  `json:"runs"`
}

// Run is one analysis run: the tool that ran plus its results.
type Run struct {
	Tool    Tool     `json:"tool"`
	Results []Result `json:"results"`
}

// Tool wraps the driver descriptor.
type Tool struct {
	Driver Driver `json:"driver"`
}

// Driver identifies the producing tool by name and version.
type Driver struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Result is one reported violation.
type Result struct {
	RuleID    string     `json:"ruleId"`
	Level     string     `json:"level"` // error, warning, note
	Message   Message    `json:"message"`
	Locations []Location `json:"locations"`
}

// Message carries the result's display text.
type Message struct {
	Text string `json:"text"`
}

// Location wraps a physical location.
type Location struct {
	PhysicalLocation PhysicalLocation `json:"physicalLocation"`
}

// PhysicalLocation points at the flagged artifact.
type PhysicalLocation struct {
	ArtifactLocation ArtifactLocation `json:"artifactLocation"`
}

// ArtifactLocation is the URI of the flagged resource.
type ArtifactLocation struct {
	URI string `json:"uri"`
}

// FromScanResult converts a scan result into a SARIF log. The violation
// category is the SARIF rule ID and the resource locator lands in the
// artifact location.
func FromScanResult(r violation.ScanResult, toolVersion string) Log {
	results := make([]Result, 0, len(r.Violations))
	for _, v := range r.Violations {
		text := strings.TrimSpace(v.Description)
		if text == "" {
			text = v.Category
		}
		results = append(results, Result{
			RuleID:  v.Category,
			Level:   sevToLevel(v.Severity),
			Message: Message{Text: text},
			Locations: []Location{{
				PhysicalLocation: PhysicalLocation{
					ArtifactLocation: ArtifactLocation{URI: v.Resource},
				},
			}},
		})
	}
	return Log{
		Version: "2.1.0",
		Schema:  "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json",
		Runs: []Run{{
			Tool:    Tool{Driver: Driver{Name: "confcritic", Version: toolVersion}},
			Results: results,
		}},
	}
}

// Write exports a scan result as SARIF to outPath.
func Write(r violation.ScanResult, toolVersion, outPath string) error {
	data, err := json.MarshalIndent(FromScanResult(r, toolVersion), "", "  ")
	if err != nil {
		return fmt.Errorf("sarif.Write: %w", err)
	}
	if err := os.WriteFile(outPath, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("sarif.Write: %w", err)
	}
	return nil
}

func sevToLevel(s finding.Severity) string {
	switch s {
	case finding.SeverityCritical, finding.SeverityHigh:
		return "error"
	case finding.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}
