// Package rescan coordinates scan phases: it fans one artifact out to
// all tool adapters in parallel, normalizes the merged findings, and
// re-runs the identical configuration against patched content so the
// pre- and post-patch results are directly comparable.
package rescan

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/confcritic/internal/adapters"
	"github.com/dshills/confcritic/internal/artifact"
	"github.com/dshills/confcritic/internal/finding"
	"github.com/dshills/confcritic/internal/toolcfg"
	"github.com/dshills/confcritic/internal/violation"
)

// Coordinator runs the three adapters under one fixed configuration.
// It holds no mutable state; a single Coordinator may serve any number
// of concurrent episodes.
type Coordinator struct {
	adapters []adapters.Adapter
	tables   *toolcfg.Tables
	log      *zap.SugaredLogger
}

// New builds a coordinator. A nil logger disables logging.
func New(tables *toolcfg.Tables, log *zap.SugaredLogger, adps ...adapters.Adapter) *Coordinator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Coordinator{adapters: adps, tables: tables, log: log}
}

// Scan runs all adapters against the artifact at path concurrently and
// normalizes their merged output. Individual tool failures are recorded
// as tool errors, not returned; only an unreadable artifact is an error.
func (c *Coordinator) Scan(ctx context.Context, path string) (violation.ScanResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return violation.ScanResult{}, fmt.Errorf("rescan.Scan: %w", err)
	}
	return c.scan(ctx, path, artifact.HashContent(string(data))), nil
}

// Rescan writes patched content to a scratch file, scans it with the
// same adapters and tables as the pre-patch scan, and cleans up.
func (c *Coordinator) Rescan(ctx context.Context, patchedContent string) (violation.ScanResult, error) {
	tmp, err := os.CreateTemp("", "confcritic-rescan-*.yaml")
	if err != nil {
		return violation.ScanResult{}, fmt.Errorf("rescan.Rescan: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.WriteString(patchedContent); err != nil {
		tmp.Close()
		return violation.ScanResult{}, fmt.Errorf("rescan.Rescan: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return violation.ScanResult{}, fmt.Errorf("rescan.Rescan: %w", err)
	}

	return c.scan(ctx, path, artifact.HashContent(patchedContent)), nil
}

func (c *Coordinator) scan(ctx context.Context, path, contentHash string) violation.ScanResult {
	type slot struct {
		findings []finding.Finding
		err      *finding.ToolError
	}
	slots := make([]slot, len(c.adapters))

	// Adapters share no state and each carries its own timeout; a slow
	// or failed adapter must not cancel the others.
	var wg sync.WaitGroup
	for i, a := range c.adapters {
		wg.Add(1)
		go func(i int, a adapters.Adapter) {
			defer wg.Done()
			slots[i].findings, slots[i].err = a.Scan(ctx, path)
		}(i, a)
	}
	wg.Wait()

	var all []finding.Finding
	var toolErrs []finding.ToolError
	for i, a := range c.adapters {
		if slots[i].err != nil {
			c.log.Warnw("tool failed", "tool", a.Tool(), "reason", slots[i].err.Reason, "detail", slots[i].err.Detail)
			toolErrs = append(toolErrs, *slots[i].err)
			continue
		}
		c.log.Debugw("tool finished", "tool", a.Tool(), "findings", len(slots[i].findings))
		all = append(all, slots[i].findings...)
	}

	return violation.Normalize(c.tables, all, toolErrs, contentHash)
}
