package adapters

import (
	"context"

	"github.com/dshills/confcritic/internal/finding"
)

// MockAdapter is a test double that returns canned findings.
type MockAdapter struct {
	ToolName finding.Tool
	Findings []finding.Finding
	Err      *finding.ToolError
	// ScanFunc, when set, overrides Findings/Err for content-sensitive tests.
	ScanFunc func(artifactPath string) ([]finding.Finding, *finding.ToolError)
}

func (m *MockAdapter) Tool() finding.Tool { return m.ToolName }

func (m *MockAdapter) Scan(_ context.Context, artifactPath string) ([]finding.Finding, *finding.ToolError) {
	if m.ScanFunc != nil {
		return m.ScanFunc(artifactPath)
	}
	return m.Findings, m.Err
}
