// Package artifact handles reading, hashing, and classifying the
// configuration artifact under audit.
package artifact

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Type classifies the artifact's configuration dialect.
type Type string

const (
	TypeKubernetes Type = "kubernetes"
	TypeTerraform  Type = "terraform"
	TypeDockerfile Type = "dockerfile"
	TypeUnknown    Type = "unknown"
)

// Artifact holds a loaded configuration file with its content and hash.
type Artifact struct {
	Path string
	Raw  string
	Type Type
	Hash string
}

// Load reads an artifact file, computes its SHA-256 hash, and detects
// its type.
func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("artifact.Load: %w", err)
	}
	raw := string(data)
	return &Artifact{
		Path: path,
		Raw:  raw,
		Type: Detect(path, raw),
		Hash: HashContent(raw),
	}, nil
}

// HashContent returns the sha256-prefixed hash of artifact content.
// Pre- and post-patch scan results carry this so a reward breakdown can
// be traced back to the exact bytes that were scanned.
func HashContent(content string) string {
	h := sha256.Sum256([]byte(content))
	return fmt.Sprintf("sha256:%x", h)
}

// Detect classifies an artifact from its file name and content.
func Detect(path, content string) Type {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case base == "dockerfile" || strings.HasPrefix(base, "dockerfile."):
		return TypeDockerfile
	case strings.HasSuffix(base, ".tf"):
		return TypeTerraform
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "apiVersion:") || strings.HasPrefix(trimmed, "kind:") {
			return TypeKubernetes
		}
		if strings.HasPrefix(trimmed, "resource ") || strings.HasPrefix(trimmed, "provider ") {
			return TypeTerraform
		}
	}
	return TypeUnknown
}
