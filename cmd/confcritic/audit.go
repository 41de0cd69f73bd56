package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/confcritic/internal/artifact"
	"github.com/dshills/confcritic/internal/episode"
	"github.com/dshills/confcritic/internal/logging"
	"github.com/dshills/confcritic/internal/patch"
	"github.com/dshills/confcritic/internal/render"
	"github.com/dshills/confcritic/internal/reward"
	"github.com/dshills/confcritic/internal/sarif"
	"github.com/dshills/confcritic/internal/violation"
)

type auditFlags struct {
	oraclePath  string
	patchPath   string
	patchFormat string
	format      string
	out         string
	reportOut   string
	sarifOut    string
	tablesPath  string
	pinsPath    string
	failBelow   float64
	verbose     bool
	debug       bool
}

func newAuditCmd() *cobra.Command {
	f := &auditFlags{}

	cmd := &cobra.Command{
		Use:   "audit <artifact>",
		Short: "Run a full episode: scan, apply the proposed patch, rescan, and score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.oraclePath, "oracle", "", "Gold-standard violation list (JSON or YAML, required)")
	flags.StringVar(&f.patchPath, "patch", "", "Proposed remediation file")
	flags.StringVar(&f.patchFormat, "patch-format", "auto", "Patch format: auto, unified-diff, or structured")
	flags.StringVar(&f.format, "format", "json", "Output format: json, md, or term")
	flags.StringVar(&f.out, "out", "", "Output file path (default: stdout)")
	flags.StringVar(&f.reportOut, "report-out", "", "Also write the public report schema to this path")
	flags.StringVar(&f.sarifOut, "sarif", "", "Also write SARIF 2.1.0 of the pre-patch scan")
	flags.StringVar(&f.tablesPath, "tables", "", "Mapping tables YAML (default: built-in)")
	flags.StringVar(&f.pinsPath, "pins", "", "Tool pins manifest (key=value)")
	flags.Float64Var(&f.failBelow, "fail-below", -1, "Exit non-zero if the final reward is below this bound")
	flags.BoolVar(&f.verbose, "verbose", false, "Log processing steps")
	flags.BoolVar(&f.debug, "debug", false, "Log at debug level")

	_ = cmd.MarkFlagRequired("oracle")

	return cmd
}

func runAudit(artifactPath string, f *auditFlags) error {
	log, err := logging.New(f.verbose, f.debug)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	art, err := artifact.Load(artifactPath)
	if err != nil {
		return exitError(3, "failed to load artifact: %v", err)
	}
	log.Infow("artifact loaded", "path", art.Path, "type", art.Type, "hash", art.Hash)

	oracle, err := reward.LoadOracle(f.oraclePath)
	if err != nil {
		var mismatch *reward.MismatchError
		if errors.As(err, &mismatch) {
			// broken harness, not a low-quality answer: the episode is
			// invalid and must not be scored
			return exitError(5, "invalid oracle: %v", mismatch)
		}
		return exitError(3, "failed to load oracle: %v", err)
	}

	spec, err := loadPatchSpec(f.patchPath, f.patchFormat, artifactPath)
	if err != nil {
		return exitError(3, "failed to load patch: %v", err)
	}

	coord, err := buildCoordinator(f.tablesPath, f.pinsPath, log)
	if err != nil {
		return exitError(4, "tool configuration: %v", err)
	}

	runner := episode.NewRunner(coord, log)
	outcome, err := runner.Run(context.Background(), art, spec, oracle)
	if err != nil {
		return exitError(3, "episode failed: %v", err)
	}

	var output string
	switch f.format {
	case "json":
		data, err := json.MarshalIndent(outcome.Breakdown, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal breakdown: %w", err)
		}
		output = string(data) + "\n"
	case "md":
		output = render.Markdown(outcome.Pre, &outcome.Breakdown)
	case "term":
		output = render.Terminal(outcome.Pre, &outcome.Breakdown)
	default:
		return exitError(3, "unknown format: %s", f.format)
	}

	if err := writeOutput(f.out, output); err != nil {
		return err
	}

	if f.reportOut != "" {
		patchText := ""
		if spec != nil {
			patchText = spec.Content
		}
		report := violation.ToReport(outcome.Pre, patchText, violation.Confidence(outcome.Pre, adapterCount))
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		if err := os.WriteFile(f.reportOut, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if f.sarifOut != "" {
		if err := sarif.Write(outcome.Pre, version, f.sarifOut); err != nil {
			return err
		}
	}

	if f.failBelow >= 0 && outcome.Breakdown.FinalReward < f.failBelow {
		return exitError(2, "final reward %.3f below bound %.3f", outcome.Breakdown.FinalReward, f.failBelow)
	}
	return nil
}

// loadPatchSpec reads the proposed remediation. An empty path means no
// patch was proposed. Format auto-detection looks for hunk headers.
func loadPatchSpec(path, format, targetPath string) (*patch.Spec, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := string(data)

	var pf patch.Format
	switch format {
	case "auto":
		if strings.Contains(content, "@@ -") {
			pf = patch.FormatUnifiedDiff
		} else {
			pf = patch.FormatStructured
		}
	case string(patch.FormatUnifiedDiff):
		pf = patch.FormatUnifiedDiff
	case string(patch.FormatStructured):
		pf = patch.FormatStructured
	default:
		return nil, fmt.Errorf("unknown patch format %q", format)
	}

	return &patch.Spec{Format: pf, Content: content, TargetPath: targetPath}, nil
}
