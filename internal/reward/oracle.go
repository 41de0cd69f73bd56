package reward

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/confcritic/internal/finding"
	"github.com/dshills/confcritic/internal/violation"
)

// MismatchError reports an oracle file that cannot be used as ground
// truth. This is a broken evaluation setup, not a low-quality answer:
// callers must fail the episode loudly instead of scoring it.
type MismatchError struct {
	Path     string
	Problems []string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("oracle %s: %s", e.Path, strings.Join(e.Problems, "; "))
}

// oracleEntry mirrors the violation shape in oracle files. Severity is
// accepted in either case; the ID is recomputed when absent.
type oracleEntry struct {
	ID       string `json:"id" yaml:"id"`
	Severity string `json:"severity" yaml:"severity"`
	Resource string `json:"resource" yaml:"resource"`
	Category string `json:"category" yaml:"category"`
}

// LoadOracle reads a gold-standard violation list from a JSON or YAML
// file. Any entry failing schema validation makes the whole oracle
// unusable (MismatchError).
func LoadOracle(path string) ([]violation.Violation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reward.LoadOracle: %w", err)
	}

	var entries []oracleEntry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	default:
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, &MismatchError{Path: path, Problems: []string{fmt.Sprintf("parse: %v", err)}}
	}

	var problems []string
	oracle := make([]violation.Violation, 0, len(entries))
	for i, e := range entries {
		sev := finding.Severity(strings.ToUpper(e.Severity))
		switch {
		case !sev.Valid():
			problems = append(problems, fmt.Sprintf("entry %d: invalid severity %q", i, e.Severity))
		case e.Resource == "":
			problems = append(problems, fmt.Sprintf("entry %d: missing resource", i))
		case e.Category == "":
			problems = append(problems, fmt.Sprintf("entry %d: missing category", i))
		default:
			id := e.ID
			if id == "" {
				id = violation.MakeID(e.Resource, e.Category)
			}
			oracle = append(oracle, violation.Violation{
				ID:       id,
				Severity: sev,
				Resource: e.Resource,
				Category: e.Category,
			})
		}
	}
	if len(problems) > 0 {
		return nil, &MismatchError{Path: path, Problems: problems}
	}
	return oracle, nil
}
