package patch

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// structuredOp is one operation of a structured patch: a YAML list of
// set/remove ops addressed by dotted paths, e.g.
//
//	- op: set
//	  path: spec.template.spec.containers[0].securityContext.privileged
//	  value: false
//	- op: remove
//	  path: spec.hostNetwork
//	  doc: 1
type structuredOp struct {
	Op    string `yaml:"op"`
	Path  string `yaml:"path"`
	Value any    `yaml:"value"`
	Doc   int    `yaml:"doc"`
}

// applyStructured parses ops and applies them to the YAML document(s)
// in content. "set" creates missing intermediate maps; "remove" requires
// the full path to exist. Any failing op rejects the whole patch.
func applyStructured(content, patchText string) Result {
	var ops []structuredOp
	if err := yaml.Unmarshal([]byte(patchText), &ops); err != nil {
		return rejected(ReasonMalformed, fmt.Errorf("parse ops: %w", err))
	}
	if len(ops) == 0 {
		return rejected(ReasonMalformed, fmt.Errorf("patch contains no ops"))
	}
	for i, op := range ops {
		if op.Op != "set" && op.Op != "remove" {
			return rejected(ReasonMalformed, fmt.Errorf("op %d: unknown op %q", i+1, op.Op))
		}
		if op.Path == "" {
			return rejected(ReasonMalformed, fmt.Errorf("op %d: missing path", i+1))
		}
	}

	docs, err := splitDocs(content)
	if err != nil {
		return rejected(ReasonDoesNotApply, fmt.Errorf("target is not valid YAML: %w", err))
	}

	for i, op := range ops {
		if op.Doc < 0 || op.Doc >= len(docs) {
			return rejected(ReasonDoesNotApply, fmt.Errorf("op %d: document %d does not exist", i+1, op.Doc))
		}
		segs, err := parsePath(op.Path)
		if err != nil {
			return rejected(ReasonMalformed, fmt.Errorf("op %d: %w", i+1, err))
		}
		updated, err := applyOp(docs[op.Doc], segs, op)
		if err != nil {
			return rejected(ReasonDoesNotApply, fmt.Errorf("op %d (%s %s): %w", i+1, op.Op, op.Path, err))
		}
		docs[op.Doc] = updated
	}

	out, err := joinDocs(docs)
	if err != nil {
		return rejected(ReasonDoesNotApply, fmt.Errorf("re-encode: %w", err))
	}
	return patched(out)
}

func splitDocs(content string) ([]any, error) {
	dec := yaml.NewDecoder(strings.NewReader(content))
	var docs []any
	for {
		var doc any
		err := dec.Decode(&doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents")
	}
	return docs, nil
}

func joinDocs(docs []any) (string, error) {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return "", err
		}
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// pathSeg is one segment of a dotted path; index is -1 for map keys.
type pathSeg struct {
	key   string
	index int
}

var segPattern = regexp.MustCompile(`^([^\[\]]*)((?:\[\d+\])*)$`)

func parsePath(path string) ([]pathSeg, error) {
	var segs []pathSeg
	for _, part := range strings.Split(path, ".") {
		m := segPattern.FindStringSubmatch(part)
		if m == nil {
			return nil, fmt.Errorf("bad path segment %q", part)
		}
		if m[1] != "" {
			segs = append(segs, pathSeg{key: m[1], index: -1})
		}
		for _, idx := range strings.Split(strings.Trim(m[2], "[]"), "][") {
			if idx == "" {
				continue
			}
			n, err := strconv.Atoi(idx)
			if err != nil {
				return nil, fmt.Errorf("bad index in segment %q", part)
			}
			segs = append(segs, pathSeg{index: n})
		}
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("empty path")
	}
	return segs, nil
}

// applyOp walks the document tree to the parent of the addressed node
// and performs the op. Returns the (possibly replaced) document root.
func applyOp(doc any, segs []pathSeg, op structuredOp) (any, error) {
	return walk(doc, segs, op)
}

func walk(node any, segs []pathSeg, op structuredOp) (any, error) {
	seg := segs[0]
	last := len(segs) == 1

	if seg.index >= 0 {
		list, ok := node.([]any)
		if !ok {
			return nil, fmt.Errorf("expected list, found %T", node)
		}
		if seg.index >= len(list) {
			return nil, fmt.Errorf("index %d out of range (len %d)", seg.index, len(list))
		}
		if last {
			if op.Op == "remove" {
				return append(list[:seg.index], list[seg.index+1:]...), nil
			}
			list[seg.index] = op.Value
			return list, nil
		}
		child, err := walk(list[seg.index], segs[1:], op)
		if err != nil {
			return nil, err
		}
		list[seg.index] = child
		return list, nil
	}

	m, ok := node.(map[string]any)
	if !ok {
		if node == nil && op.Op == "set" {
			m = map[string]any{}
		} else {
			return nil, fmt.Errorf("expected mapping at %q, found %T", seg.key, node)
		}
	}
	if last {
		if op.Op == "remove" {
			if _, exists := m[seg.key]; !exists {
				return nil, fmt.Errorf("key %q does not exist", seg.key)
			}
			delete(m, seg.key)
			return m, nil
		}
		m[seg.key] = op.Value
		return m, nil
	}
	child, exists := m[seg.key]
	if !exists {
		if op.Op == "remove" {
			return nil, fmt.Errorf("key %q does not exist", seg.key)
		}
		child = nil
	}
	newChild, err := walk(child, segs[1:], op)
	if err != nil {
		return nil, err
	}
	m[seg.key] = newChild
	return m, nil
}
