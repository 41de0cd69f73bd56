package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/confcritic/internal/logging"
	"github.com/dshills/confcritic/internal/render"
	"github.com/dshills/confcritic/internal/sarif"
	"github.com/dshills/confcritic/internal/violation"
)

type scanFlags struct {
	format            string
	out               string
	tablesPath        string
	pinsPath          string
	sarifOut          string
	severityThreshold string
	verbose           bool
	debug             bool
}

func newScanCmd() *cobra.Command {
	f := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "scan <artifact>",
		Short: "Scan a configuration artifact and report violations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.format, "format", "json", "Output format: json, md, or term")
	flags.StringVar(&f.out, "out", "", "Output file path (default: stdout)")
	flags.StringVar(&f.tablesPath, "tables", "", "Mapping tables YAML (default: built-in)")
	flags.StringVar(&f.pinsPath, "pins", "", "Tool pins manifest (key=value)")
	flags.StringVar(&f.sarifOut, "sarif", "", "Also write SARIF 2.1.0 to this path")
	flags.StringVar(&f.severityThreshold, "severity-threshold", "low", "Minimum severity: low, medium, high, or critical")
	flags.BoolVar(&f.verbose, "verbose", false, "Log processing steps")
	flags.BoolVar(&f.debug, "debug", false, "Log at debug level")

	return cmd
}

func runScan(artifactPath string, f *scanFlags) error {
	log, err := logging.New(f.verbose, f.debug)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	coord, err := buildCoordinator(f.tablesPath, f.pinsPath, log)
	if err != nil {
		return exitError(4, "tool configuration: %v", err)
	}

	result, err := coord.Scan(context.Background(), artifactPath)
	if err != nil {
		return exitError(3, "scan failed: %v", err)
	}

	visible := filterSeverity(result, f.severityThreshold)

	var output string
	switch f.format {
	case "json":
		report := violation.ToReport(visible, "", violation.Confidence(result, adapterCount))
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		output = string(data) + "\n"
	case "md":
		output = render.Markdown(visible, nil)
	case "term":
		output = render.Terminal(visible, nil)
	default:
		return exitError(3, "unknown format: %s", f.format)
	}

	if err := writeOutput(f.out, output); err != nil {
		return err
	}

	if f.sarifOut != "" {
		if err := sarif.Write(visible, version, f.sarifOut); err != nil {
			return err
		}
	}
	return nil
}
