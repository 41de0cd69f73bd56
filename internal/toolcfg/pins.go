package toolcfg

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dshills/confcritic/internal/finding"
)

// DefaultTimeout bounds a single tool invocation.
const DefaultTimeout = 30 * time.Second

// Pin records the invocation configuration for one external tool.
type Pin struct {
	Binary  string
	Version string
	RuleSet string
	Timeout time.Duration
}

// Pins holds the per-tool pins for all three adapters.
type Pins struct {
	byTool map[finding.Tool]Pin
}

// DefaultPins returns the built-in pin set used when no manifest is supplied.
func DefaultPins() *Pins {
	return &Pins{byTool: map[finding.Tool]Pin{
		finding.ToolLinter:         {Binary: "kube-linter", Timeout: DefaultTimeout},
		finding.ToolPolicyEngine:   {Binary: "conftest", RuleSet: "policy", Timeout: DefaultTimeout},
		finding.ToolPatternScanner: {Binary: "semgrep", RuleSet: "auto", Timeout: DefaultTimeout},
	}}
}

// For returns the pin for a tool.
func (p *Pins) For(tool finding.Tool) Pin {
	return p.byTool[tool]
}

// LoadPins reads a plain key=value pins manifest and overlays it on the
// defaults. Keys are "<tool>.<field>", e.g.:
//
//	linter.bin=kube-linter
//	linter.version=0.6.8
//	policy-engine.rules=policy/kubernetes
//	pattern-scanner.timeout=45s
//
// Lines starting with # and blank lines are ignored.
func LoadPins(path string) (*Pins, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("toolcfg.LoadPins: %w", err)
	}
	defer f.Close()

	pins := DefaultPins()
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("toolcfg.LoadPins: line %d: expected key=value, got %q", lineNo, line)
		}
		toolName, field, ok := strings.Cut(strings.TrimSpace(key), ".")
		if !ok {
			return nil, fmt.Errorf("toolcfg.LoadPins: line %d: expected <tool>.<field> key, got %q", lineNo, key)
		}
		tool := finding.Tool(toolName)
		if !tool.Valid() {
			return nil, fmt.Errorf("toolcfg.LoadPins: line %d: unknown tool %q", lineNo, toolName)
		}
		pin := pins.byTool[tool]
		value = strings.TrimSpace(value)
		switch field {
		case "bin":
			pin.Binary = value
		case "version":
			pin.Version = value
		case "rules":
			pin.RuleSet = value
		case "timeout":
			d, err := time.ParseDuration(value)
			if err != nil {
				return nil, fmt.Errorf("toolcfg.LoadPins: line %d: bad timeout %q: %w", lineNo, value, err)
			}
			pin.Timeout = d
		default:
			return nil, fmt.Errorf("toolcfg.LoadPins: line %d: unknown field %q", lineNo, field)
		}
		pins.byTool[tool] = pin
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("toolcfg.LoadPins: %w", err)
	}
	return pins, nil
}
