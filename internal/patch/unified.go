package patch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// hunk is one parsed @@ block of a unified diff.
type hunk struct {
	oldStart int // 1-based line in the original
	oldCount int
	newStart int
	newCount int
	lines    []hunkLine
}

type hunkLine struct {
	op   byte // ' ', '-', '+'
	text string
}

// startIndex is the 0-based target index where the hunk begins. A
// zero-old-count hunk is a pure insertion: by unified-diff convention
// its oldStart names the line the insertion goes after, so the hunk
// starts at index oldStart rather than oldStart-1.
func (h hunk) startIndex() int {
	if h.oldCount == 0 {
		return h.oldStart
	}
	return h.oldStart - 1
}

var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// applyUnified parses a unified diff and applies it to content.
// Every hunk's context and deletion lines are verified against the
// target before any hunk is applied; a single mismatch rejects the
// whole patch.
func applyUnified(content, diff string) Result {
	hunks, err := parseUnified(diff)
	if err != nil {
		return rejected(ReasonMalformed, err)
	}
	if len(hunks) == 0 {
		return rejected(ReasonMalformed, fmt.Errorf("diff contains no hunks"))
	}

	lines := strings.Split(content, "\n")

	// verification pass: all hunks must match before anything changes.
	// Insertions (oldCount 0) consume no target lines, so they may sit
	// exactly at the previous hunk's end and at line 0.
	prevEnd := 0
	for i, h := range hunks {
		if h.oldCount == 0 {
			if h.oldStart < prevEnd {
				return rejected(ReasonMalformed, fmt.Errorf("hunk %d overlaps or is out of order", i+1))
			}
			prevEnd = h.oldStart
		} else {
			if h.oldStart <= prevEnd {
				return rejected(ReasonMalformed, fmt.Errorf("hunk %d overlaps or is out of order", i+1))
			}
			prevEnd = h.oldStart + h.oldCount - 1
		}
		if err := verifyHunk(lines, h); err != nil {
			return rejected(ReasonDoesNotApply, fmt.Errorf("hunk %d: %w", i+1, err))
		}
	}

	// application pass
	var out []string
	cursor := 0 // 0-based index into lines
	for _, h := range hunks {
		start := h.startIndex()
		out = append(out, lines[cursor:start]...)
		cursor = start
		for _, hl := range h.lines {
			switch hl.op {
			case ' ':
				out = append(out, lines[cursor])
				cursor++
			case '-':
				cursor++
			case '+':
				out = append(out, hl.text)
			}
		}
	}
	out = append(out, lines[cursor:]...)

	return patched(strings.Join(out, "\n"))
}

func verifyHunk(lines []string, h hunk) error {
	cursor := h.startIndex()
	if cursor < 0 || cursor > len(lines) {
		return fmt.Errorf("bad start line %d", h.oldStart)
	}
	for _, hl := range h.lines {
		if hl.op == '+' {
			continue
		}
		if cursor >= len(lines) {
			return fmt.Errorf("extends past end of target (line %d)", cursor+1)
		}
		if lines[cursor] != hl.text {
			return fmt.Errorf("context mismatch at line %d: want %q, have %q", cursor+1, hl.text, lines[cursor])
		}
		cursor++
	}
	return nil
}

func parseUnified(diff string) ([]hunk, error) {
	var hunks []hunk
	var cur *hunk

	for i, raw := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(raw, "--- ") || strings.HasPrefix(raw, "+++ ") ||
			strings.HasPrefix(raw, "diff ") || strings.HasPrefix(raw, "index "):
			continue
		case strings.HasPrefix(raw, "@@"):
			m := hunkHeader.FindStringSubmatch(raw)
			if m == nil {
				return nil, fmt.Errorf("line %d: bad hunk header %q", i+1, raw)
			}
			h := hunk{
				oldStart: atoiDefault(m[1], 0),
				oldCount: atoiDefault(m[2], 1),
				newStart: atoiDefault(m[3], 0),
				newCount: atoiDefault(m[4], 1),
			}
			hunks = append(hunks, h)
			cur = &hunks[len(hunks)-1]
		case raw == `\ No newline at end of file`:
			continue
		case raw == "" && cur == nil:
			continue
		case cur == nil:
			return nil, fmt.Errorf("line %d: content before first hunk header", i+1)
		case raw == "":
			// Some emitters strip the leading space from blank context
			// lines. Count it as context while the hunk still expects
			// lines; otherwise it is trailing blank after the diff.
			if hunkIncomplete(cur) {
				cur.lines = append(cur.lines, hunkLine{op: ' ', text: ""})
			}
			continue
		default:
			op := raw[0]
			if op != ' ' && op != '-' && op != '+' {
				return nil, fmt.Errorf("line %d: bad line prefix %q", i+1, string(op))
			}
			cur.lines = append(cur.lines, hunkLine{op: op, text: raw[1:]})
		}
	}

	for i, h := range hunks {
		oldN, newN := 0, 0
		for _, hl := range h.lines {
			switch hl.op {
			case ' ':
				oldN++
				newN++
			case '-':
				oldN++
			case '+':
				newN++
			}
		}
		if oldN != h.oldCount || newN != h.newCount {
			return nil, fmt.Errorf("hunk %d: header counts (-%d +%d) do not match body (-%d +%d)",
				i+1, h.oldCount, h.newCount, oldN, newN)
		}
	}
	return hunks, nil
}

func hunkIncomplete(h *hunk) bool {
	oldN, newN := 0, 0
	for _, hl := range h.lines {
		switch hl.op {
		case ' ':
			oldN++
			newN++
		case '-':
			oldN++
		case '+':
			newN++
		}
	}
	return oldN < h.oldCount || newN < h.newCount
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
