// Package converter invokes the external Model Optimizer with the opaque
// argument list a manifest declares. The arguments are pass-through: the
// only interpretation applied is placeholder substitution for the download
// and conversion directories.
package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/modelfetch/modelfetch/internal/domain"
	"github.com/modelfetch/modelfetch/internal/manifest"
	"github.com/modelfetch/modelfetch/internal/utils"
)

// Placeholder tokens recognized inside model_optimizer_args
const (
	PlaceholderDownloadDir = "$dl_dir"
	PlaceholderConvertDir  = "$conv_dir"
	PlaceholderMODir       = "$mo_dir"
	PlaceholderConfigDir   = "$config_dir"
)

// ErrNoConversionArgs indicates the manifest declares no model_optimizer_args
var ErrNoConversionArgs = errors.New("manifest declares no model_optimizer_args")

// Converter runs the model optimizer for downloaded models
type Converter struct {
	moPath string
	logger *utils.Logger
	dryRun bool
}

// Options contains options for creating a Converter
type Options struct {
	// MOPath is the model optimizer executable. Looked up on PATH as "mo"
	// when empty.
	MOPath string
	Logger *utils.Logger
	DryRun bool
}

// New creates a Converter
func New(opts Options) *Converter {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewDefaultLogger()
	}
	return &Converter{
		moPath: opts.MOPath,
		logger: logger.WithComponent("converter"),
		dryRun: opts.DryRun,
	}
}

// Paths carries the concrete directories substituted for placeholders
type Paths struct {
	DownloadDir string // model's download directory
	ConvertDir  string // where converted output goes
	ConfigDir   string // directory holding the model's manifest
}

// ExpandArgs substitutes placeholder tokens in the manifest's argument list
func ExpandArgs(args []string, p Paths, moDir string) []string {
	replacer := strings.NewReplacer(
		PlaceholderDownloadDir, p.DownloadDir,
		PlaceholderConvertDir, p.ConvertDir,
		PlaceholderMODir, moDir,
		PlaceholderConfigDir, p.ConfigDir,
	)

	expanded := make([]string, len(args))
	for i, a := range args {
		expanded[i] = replacer.Replace(a)
	}
	return expanded
}

// Convert invokes the model optimizer for one model. The manifest's
// model_optimizer_args are expanded and passed verbatim.
func (c *Converter) Convert(ctx context.Context, model *manifest.Model, paths Paths) error {
	if len(model.ModelOptimizerArgs) == 0 {
		return fmt.Errorf("%s: %w", model.Name, ErrNoConversionArgs)
	}

	moPath := c.moPath
	if moPath == "" {
		found, err := exec.LookPath("mo")
		if err != nil {
			return &domain.ConvertError{Model: model.Name, Err: domain.ErrConverterNotFound}
		}
		moPath = found
	}

	args := ExpandArgs(model.ModelOptimizerArgs, paths, filepath.Dir(moPath))

	c.logger.Info().
		Str("model", model.Name).
		Str("mo", moPath).
		Strs("args", args).
		Msg("Invoking model optimizer")

	if c.dryRun {
		return nil
	}

	if err := os.MkdirAll(paths.ConvertDir, 0755); err != nil {
		return &domain.ConvertError{Model: model.Name, Err: err}
	}

	cmd := exec.CommandContext(ctx, moPath, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return &domain.ConvertError{Model: model.Name, Err: err}
	}

	return nil
}
