package main

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/confcritic/internal/adapters"
	"github.com/dshills/confcritic/internal/finding"
	"github.com/dshills/confcritic/internal/rescan"
	"github.com/dshills/confcritic/internal/toolcfg"
	"github.com/dshills/confcritic/internal/violation"
)

const adapterCount = 3

// buildCoordinator wires the three adapters from the mapping tables and
// the pins manifest.
func buildCoordinator(tablesPath, pinsPath string, log *zap.SugaredLogger) (*rescan.Coordinator, error) {
	var tables *toolcfg.Tables
	var err error
	if tablesPath != "" {
		data, rerr := os.ReadFile(tablesPath)
		if rerr != nil {
			return nil, fmt.Errorf("read tables: %w", rerr)
		}
		tables, err = toolcfg.Parse(data)
	} else {
		tables, err = toolcfg.LoadBuiltin()
	}
	if err != nil {
		return nil, err
	}

	pins := toolcfg.DefaultPins()
	if pinsPath != "" {
		pins, err = toolcfg.LoadPins(pinsPath)
		if err != nil {
			return nil, err
		}
	}

	coord := rescan.New(tables, log,
		adapters.NewLinter(tables, pins.For(finding.ToolLinter)),
		adapters.NewPolicyEngine(tables, pins.For(finding.ToolPolicyEngine)),
		adapters.NewPatternScanner(tables, pins.For(finding.ToolPatternScanner)),
	)
	return coord, nil
}

// filterSeverity drops violations below the threshold from a copy of
// the result. The full result stays intact for scoring; only report
// output is filtered.
func filterSeverity(r violation.ScanResult, threshold string) violation.ScanResult {
	min := thresholdOrder(threshold)
	filtered := r
	filtered.Violations = nil
	for _, v := range r.Violations {
		if v.Severity.Order() <= min {
			filtered.Violations = append(filtered.Violations, v)
		}
	}
	return filtered
}

func thresholdOrder(threshold string) int {
	switch strings.ToLower(threshold) {
	case "critical":
		return finding.SeverityCritical.Order()
	case "high":
		return finding.SeverityHigh.Order()
	case "medium":
		return finding.SeverityMedium.Order()
	default:
		return finding.SeverityLow.Order()
	}
}

// writeOutput writes to out, or stdout when out is empty.
func writeOutput(out, content string) error {
	if out == "" {
		fmt.Print(content)
		return nil
	}
	if err := os.WriteFile(out, []byte(content), 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
