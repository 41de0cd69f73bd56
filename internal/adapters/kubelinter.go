package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/dshills/confcritic/internal/finding"
	"github.com/dshills/confcritic/internal/toolcfg"
)

// Linter runs the rule-linter (kube-linter) against a manifest.
type Linter struct {
	tables *toolcfg.Tables
	pin    toolcfg.Pin
}

// NewLinter builds the rule-linter adapter.
func NewLinter(tables *toolcfg.Tables, pin toolcfg.Pin) *Linter {
	return &Linter{tables: tables, pin: pin}
}

func (l *Linter) Tool() finding.Tool { return finding.ToolLinter }

type kubeLinterJSON struct {
	Reports []struct {
		Check      string `json:"Check"`
		Diagnostic struct {
			Message string `json:"Message"`
		} `json:"Diagnostic"`
		Object struct {
			Metadata struct {
				FilePath string `json:"FilePath"`
			} `json:"Metadata"`
			K8sObject struct {
				Name             string `json:"Name"`
				Namespace        string `json:"Namespace"`
				GroupVersionKind struct {
					Kind string `json:"Kind"`
				} `json:"GroupVersionKind"`
			} `json:"K8sObject"`
		} `json:"Object"`
	} `json:"Reports"`
}

// Scan runs `kube-linter lint --format json` on the artifact.
func (l *Linter) Scan(ctx context.Context, artifactPath string) ([]finding.Finding, *finding.ToolError) {
	out, terr := runTool(ctx, l.Tool(), l.pin, "lint", "--format", "json", artifactPath)
	if terr != nil {
		return nil, terr
	}
	return l.parse(out)
}

func (l *Linter) parse(out []byte) ([]finding.Finding, *finding.ToolError) {
	var doc kubeLinterJSON
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, parseError(l.Tool(), err)
	}

	findings := make([]finding.Finding, 0, len(doc.Reports))
	for _, r := range doc.Reports {
		// kube-linter does not grade its reports; every lint hit is
		// raw "ERROR" and the severity table decides the rest.
		sev, degraded := l.tables.MapSeverity(l.Tool(), "ERROR")
		resource := ""
		if obj := r.Object.K8sObject; obj.Name != "" {
			resource = obj.GroupVersionKind.Kind + "/" + obj.Name
			if obj.Namespace != "" {
				resource = fmt.Sprintf("%s/%s/%s", obj.Namespace, obj.GroupVersionKind.Kind, obj.Name)
			}
		}
		findings = append(findings, finding.Finding{
			Tool:            l.Tool(),
			RuleID:          r.Check,
			Message:         r.Diagnostic.Message,
			RawSeverity:     "ERROR",
			Severity:        sev,
			File:            filepath.ToSlash(r.Object.Metadata.FilePath),
			Resource:        resource,
			Category:        r.Check,
			DegradedMapping: degraded,
		})
	}
	return findings, nil
}
