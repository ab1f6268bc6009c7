package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader loads and validates model manifests
type Loader struct{}

// NewLoader creates a new manifest loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses a manifest file from the given path. The model name
// is derived from the manifest's parent directory.
func (l *Loader) Load(path string) (*Model, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	model, err := l.LoadFromBytes(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	model.Name = filepath.Base(filepath.Dir(path))
	return model, nil
}

// LoadFromBytes parses a manifest from raw bytes
func (l *Loader) LoadFromBytes(data []byte, ext string) (*Model, error) {
	ext = strings.ToLower(ext)

	var model Model
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &model); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &model); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExt, ext)
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}

	return &model, nil
}

// Marshal serializes a manifest back to YAML. Every field carries a yaml tag,
// so a load/marshal round trip preserves the document.
func Marshal(m *Model) ([]byte, error) {
	return yaml.Marshal(m)
}
