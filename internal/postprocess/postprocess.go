// Package postprocess applies a manifest's declared post-download steps to a
// model's destination directory. Steps run strictly after every referenced
// file has been fetched and verified, in manifest order.
package postprocess

import (
	"fmt"
	"os"
	"regexp"

	"github.com/modelfetch/modelfetch/internal/domain"
	"github.com/modelfetch/modelfetch/internal/manifest"
	"github.com/modelfetch/modelfetch/internal/utils"
)

// Processor applies postprocessing steps
type Processor struct {
	logger *utils.Logger
}

// NewProcessor creates a postprocessing processor
func NewProcessor(logger *utils.Logger) *Processor {
	if logger == nil {
		logger = utils.NewDefaultLogger()
	}
	return &Processor{logger: logger.WithComponent("postprocess")}
}

// Apply runs every step of the model's postprocessing in declared order
// inside destDir.
func (p *Processor) Apply(model *manifest.Model, destDir string) error {
	for i, step := range model.Postprocessing {
		if err := p.applyStep(step, destDir); err != nil {
			return fmt.Errorf("postprocessing step %d (%s): %w", i, step.Type, err)
		}
	}
	return nil
}

func (p *Processor) applyStep(step manifest.PostStep, destDir string) error {
	target, err := utils.SafeJoin(destDir, step.File)
	if err != nil {
		return domain.NewExtractError(step.File, step.Format, err)
	}

	switch step.Type {
	case manifest.StepUnpackArchive:
		p.logger.Info().
			Str("file", step.File).
			Str("format", step.Format).
			Msg("Unpacking archive")
		return Unpack(step.Format, target, destDir)

	case manifest.StepRegexReplace:
		p.logger.Info().
			Str("file", step.File).
			Str("pattern", step.Pattern).
			Msg("Applying regex replacement")
		return regexReplace(target, step.Pattern, step.Replacement, step.Count)

	default:
		// Validation rejects unknown discriminators before a run starts.
		return fmt.Errorf("%w: %q", manifest.ErrUnknownStepType, step.Type)
	}
}

// regexReplace rewrites the file in place. A positive count caps the number
// of replacements; zero or negative replaces every match.
func regexReplace(path, pattern, replacement string, count int) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var out []byte
	if count > 0 {
		remaining := count
		out = re.ReplaceAllFunc(data, func(m []byte) []byte {
			if remaining <= 0 {
				return m
			}
			remaining--
			return re.ReplaceAll(m, []byte(replacement))
		})
	} else {
		out = re.ReplaceAll(data, []byte(replacement))
	}

	return os.WriteFile(path, out, 0644)
}
