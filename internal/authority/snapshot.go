package authority

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fakeyudi/diffreview/internal/review"
)

// SnapshotDecoder parses a session snapshot file.
type SnapshotDecoder interface {
	Decode(data []byte) (*review.Session, error)
}

// snapshotFile is the on-disk layout: a session plus an optional top-level
// applied list, the same shape the review server returns.
type snapshotFile struct {
	review.Session `yaml:",inline"`
	AppliedChanges []string `json:"applied_changes,omitempty" yaml:"applied_changes,omitempty"`
}

// session returns the decoded session. A present applied list replaces the
// per-change flags; ids it names that match no change are ignored.
func (f *snapshotFile) session() *review.Session {
	s := f.Session
	if f.AppliedChanges == nil {
		return &s
	}
	applied := make(map[string]bool, len(f.AppliedChanges))
	for _, id := range f.AppliedChanges {
		applied[id] = true
	}
	for i := range s.Files {
		for j := range s.Files[i].Changes {
			s.Files[i].Changes[j].Applied = applied[s.Files[i].Changes[j].ID]
		}
	}
	return &s
}

// JSONDecoder decodes snapshot files written as JSON.
type JSONDecoder struct{}

func (d *JSONDecoder) Decode(data []byte) (*review.Session, error) {
	var f snapshotFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse JSON snapshot: %w", err)
	}
	return f.session(), nil
}

// YAMLDecoder decodes snapshot files written as YAML.
type YAMLDecoder struct{}

func (d *YAMLDecoder) Decode(data []byte) (*review.Session, error) {
	var f snapshotFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML snapshot: %w", err)
	}
	return f.session(), nil
}

// DecoderFor picks a decoder from the file extension. It returns nil for
// files that are not snapshots.
func DecoderFor(path string) SnapshotDecoder {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return &JSONDecoder{}
	case ".yaml", ".yml":
		return &YAMLDecoder{}
	}
	return nil
}

// LoadSnapshotFile reads a snapshot file. A session without an id takes the
// file's base name, so re-reading the same file yields the same id. Files
// without a file type get one from their extension.
func LoadSnapshotFile(path string) (review.Session, error) {
	dec := DecoderFor(path)
	if dec == nil {
		return review.Session{}, fmt.Errorf("unsupported snapshot file: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return review.Session{}, err
	}
	s, err := dec.Decode(data)
	if err != nil {
		return review.Session{}, fmt.Errorf("%s: %w", path, err)
	}
	if s.ID == "" {
		base := filepath.Base(path)
		s.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	for i := range s.Files {
		if s.Files[i].FileType == "" {
			s.Files[i].FileType = DetectFileType(s.Files[i].Path)
		}
	}
	return *s, nil
}

var fileTypes = map[string]string{
	".rs":   "rust",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".py":   "python",
	".java": "java",
	".cpp":  "cpp",
	".cc":   "cpp",
	".cxx":  "cpp",
	".c":    "c",
	".h":    "c",
	".hpp":  "c",
	".go":   "go",
	".php":  "php",
	".rb":   "ruby",
	".html": "html",
	".css":  "css",
	".json": "json",
	".xml":  "xml",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
	".md":   "markdown",
}

// DetectFileType maps a path's extension to a language tag, or "text".
func DetectFileType(path string) string {
	if t, ok := fileTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return "text"
}
