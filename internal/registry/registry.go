package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/modelfetch/modelfetch/internal/manifest"
)

// Sentinel errors for the registry package
var (
	// ErrZooNotFound indicates the zoo root directory does not exist
	ErrZooNotFound = errors.New("model zoo directory not found")

	// ErrNoMatch indicates no model matched the selection
	ErrNoMatch = errors.New("no model matched")

	// ErrBadPattern indicates an invalid glob pattern
	ErrBadPattern = errors.New("invalid name pattern")
)

// ManifestFileName is the manifest file expected in each model directory
const ManifestFileName = "model.yml"

// Entry is one discovered zoo entry
type Entry struct {
	Name         string
	ManifestPath string
}

// Registry discovers and loads model manifests from a zoo directory tree.
// A zoo root contains one directory per model, each holding a model.yml.
type Registry struct {
	root   string
	loader *manifest.Loader
}

// New creates a registry rooted at the given zoo directory
func New(root string) *Registry {
	return &Registry{
		root:   root,
		loader: manifest.NewLoader(),
	}
}

// Root returns the zoo root directory
func (r *Registry) Root() string {
	return r.root
}

// List returns all zoo entries sorted by name
func (r *Registry) List() ([]Entry, error) {
	info, err := os.Stat(r.root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrZooNotFound, r.root)
	}

	dirs, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read zoo directory: %w", err)
	}

	var entries []Entry
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		manifestPath := filepath.Join(r.root, d.Name(), ManifestFileName)
		if _, err := os.Stat(manifestPath); err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:         d.Name(),
			ManifestPath: manifestPath,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Select returns the entries whose names match the glob pattern. An empty
// pattern selects everything.
func (r *Registry) Select(pattern string) ([]Entry, error) {
	entries, err := r.List()
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		return entries, nil
	}

	var matched []Entry
	for _, e := range entries {
		ok, err := filepath.Match(pattern, e.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
		}
		if ok {
			matched = append(matched, e)
		}
	}

	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoMatch, pattern)
	}
	return matched, nil
}

// Load parses and validates the manifest for one entry
func (r *Registry) Load(e Entry) (*manifest.Model, error) {
	return r.loader.Load(e.ManifestPath)
}

// LoadByName loads the manifest for the named model
func (r *Registry) LoadByName(name string) (*manifest.Model, error) {
	manifestPath := filepath.Join(r.root, name, ManifestFileName)
	if _, err := os.Stat(manifestPath); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNoMatch, name)
	}
	return r.loader.Load(manifestPath)
}
