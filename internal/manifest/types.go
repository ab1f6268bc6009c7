package manifest

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Postprocessing step discriminator values
const (
	StepUnpackArchive = "unpack_archive"
	StepRegexReplace  = "regex_replace"
)

// Archive formats accepted by unpack_archive steps
var knownFormats = map[string]bool{
	"zip":    true,
	"tar":    true,
	"gztar":  true,
	"zsttar": true,
}

// sha256Pattern matches a hex-encoded 256-bit digest
var sha256Pattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// Model represents one model-zoo entry
type Model struct {
	Description        string     `yaml:"description" json:"description"`
	TaskType           string     `yaml:"task_type" json:"task_type"`
	Files              []FileSpec `yaml:"files" json:"files"`
	Postprocessing     []PostStep `yaml:"postprocessing,omitempty" json:"postprocessing,omitempty"`
	ModelOptimizerArgs []string   `yaml:"model_optimizer_args,omitempty" json:"model_optimizer_args,omitempty"`
	Framework          string     `yaml:"framework" json:"framework"`
	License            string     `yaml:"license" json:"license"`

	// Name is the zoo entry name, derived from the manifest's directory.
	// It is not part of the manifest document itself.
	Name string `yaml:"-" json:"-"`
}

// FileSpec describes one downloadable artifact
type FileSpec struct {
	Name   string `yaml:"name" json:"name"`
	Size   int64  `yaml:"size" json:"size"`
	Sha256 string `yaml:"sha256" json:"sha256"`
	Source string `yaml:"source" json:"source"`
}

// PostStep is a declared post-download transformation, discriminated by $type.
// unpack_archive uses Format and File; regex_replace uses File, Pattern,
// Replacement and Count.
type PostStep struct {
	Type        string `yaml:"$type" json:"$type"`
	Format      string `yaml:"format,omitempty" json:"format,omitempty"`
	File        string `yaml:"file,omitempty" json:"file,omitempty"`
	Pattern     string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Replacement string `yaml:"replacement,omitempty" json:"replacement,omitempty"`
	Count       int    `yaml:"count,omitempty" json:"count,omitempty"`
}

// Validate checks the manifest against the schema invariants
func (m *Model) Validate() error {
	if strings.TrimSpace(m.Framework) == "" {
		return fmt.Errorf("%w: framework", ErrMissingField)
	}
	if strings.TrimSpace(m.TaskType) == "" {
		return fmt.Errorf("%w: task_type", ErrMissingField)
	}
	if len(m.Files) == 0 {
		return ErrNoFiles
	}

	seen := make(map[string]bool, len(m.Files))
	for i, f := range m.Files {
		if f.Name == "" {
			return fmt.Errorf("files[%d]: %w", i, ErrEmptyFileName)
		}
		if !isCleanRelPath(f.Name) {
			return fmt.Errorf("files[%d] (%s): %w", i, f.Name, ErrUnsafePath)
		}
		if seen[f.Name] {
			return fmt.Errorf("files[%d] (%s): %w", i, f.Name, ErrDuplicateFileName)
		}
		seen[f.Name] = true
		if f.Size < 0 {
			return fmt.Errorf("files[%d] (%s): %w: %d", i, f.Name, ErrNegativeSize, f.Size)
		}
		if !sha256Pattern.MatchString(f.Sha256) {
			return fmt.Errorf("files[%d] (%s): %w: %q", i, f.Name, ErrBadDigest, f.Sha256)
		}
		if f.Source == "" {
			return fmt.Errorf("files[%d] (%s): %w", i, f.Name, ErrEmptySource)
		}
	}

	for i, step := range m.Postprocessing {
		if err := m.validateStep(i, step, seen); err != nil {
			return err
		}
	}

	return nil
}

func (m *Model) validateStep(i int, step PostStep, files map[string]bool) error {
	switch step.Type {
	case StepUnpackArchive:
		if !knownFormats[step.Format] {
			return fmt.Errorf("postprocessing[%d]: %w: %q", i, ErrUnknownFormat, step.Format)
		}
		if !files[step.File] {
			return fmt.Errorf("postprocessing[%d]: %w: %q", i, ErrUnknownStepFile, step.File)
		}
	case StepRegexReplace:
		if !files[step.File] {
			return fmt.Errorf("postprocessing[%d]: %w: %q", i, ErrUnknownStepFile, step.File)
		}
		if step.Pattern == "" {
			return fmt.Errorf("postprocessing[%d]: %w", i, ErrEmptyPattern)
		}
		if _, err := regexp.Compile(step.Pattern); err != nil {
			return fmt.Errorf("postprocessing[%d]: %w: %v", i, ErrEmptyPattern, err)
		}
	case "":
		return fmt.Errorf("postprocessing[%d]: %w", i, ErrMissingStepType)
	default:
		return fmt.Errorf("postprocessing[%d]: %w: %q", i, ErrUnknownStepType, step.Type)
	}
	return nil
}

// FileNames returns the declared file names in manifest order
func (m *Model) FileNames() []string {
	names := make([]string, len(m.Files))
	for i, f := range m.Files {
		names[i] = f.Name
	}
	return names
}

// FindFile returns the FileSpec for the given name
func (m *Model) FindFile(name string) (FileSpec, bool) {
	for _, f := range m.Files {
		if f.Name == name {
			return f, true
		}
	}
	return FileSpec{}, false
}

// isCleanRelPath reports whether p is a forward-slash relative path that
// stays inside its root.
func isCleanRelPath(p string) bool {
	if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return false
	}
	clean := path.Clean(p)
	if clean != p {
		return false
	}
	return clean != ".." && !strings.HasPrefix(clean, "../")
}
