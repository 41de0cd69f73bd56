// Package adapters wraps the external analysis tools behind a single
// Scan contract. Each adapter shells out to one pinned binary, captures
// its JSON output, and parses it into findings. All tool-specific
// parsing lives here and nowhere else.
package adapters

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"github.com/dshills/confcritic/internal/finding"
	"github.com/dshills/confcritic/internal/toolcfg"
)

// Adapter scans one configuration artifact with one external tool.
// A failed invocation returns a ToolError and no findings; it never
// returns a partial parse.
type Adapter interface {
	Tool() finding.Tool
	Scan(ctx context.Context, artifactPath string) ([]finding.Finding, *finding.ToolError)
}

// runTool invokes the pinned binary with a bounded timeout and returns
// its stdout. A non-zero exit code is not an error by itself: the
// analyzers exit 1 when they find issues. Only a missing binary, a
// timeout, or empty output from a failed run count as tool errors.
func runTool(ctx context.Context, tool finding.Tool, pin toolcfg.Pin, args ...string) ([]byte, *finding.ToolError) {
	if _, err := exec.LookPath(pin.Binary); err != nil {
		return nil, &finding.ToolError{Tool: tool, Reason: finding.ErrMissingBinary, Detail: pin.Binary}
	}

	timeout := pin.Timeout
	if timeout <= 0 {
		timeout = toolcfg.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, pin.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &finding.ToolError{Tool: tool, Reason: finding.ErrTimeout, Detail: timeout.String()}
	}
	if err != nil && stdout.Len() == 0 {
		return nil, &finding.ToolError{Tool: tool, Reason: finding.ErrUnparsable, Detail: firstLine(stderr.String())}
	}
	return stdout.Bytes(), nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

func parseError(tool finding.Tool, err error) *finding.ToolError {
	return &finding.ToolError{Tool: tool, Reason: finding.ErrUnparsable, Detail: err.Error()}
}
