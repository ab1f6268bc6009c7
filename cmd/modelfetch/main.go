package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/modelfetch/modelfetch/internal/app"
	"github.com/modelfetch/modelfetch/internal/config"
	"github.com/modelfetch/modelfetch/internal/converter"
	"github.com/modelfetch/modelfetch/internal/manifest"
	"github.com/modelfetch/modelfetch/internal/registry"
	"github.com/modelfetch/modelfetch/internal/utils"
	"github.com/modelfetch/modelfetch/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "modelfetch",
	Short: "Download and convert pretrained models from a model zoo",
	Long: `ModelFetch consumes a tree of declarative model manifests and downloads
the artifacts they describe, verifying each file's size and sha256 digest
before it is put in place. Declared postprocessing steps (archive
extraction, text patching) run after verification, and manifests carrying
model optimizer arguments can be handed to an external conversion tool.`,
	Version: version.Short(),
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.modelfetch/config.yaml)")
	rootCmd.PersistentFlags().String("zoo", ".", "Model zoo directory (tree of model.yml manifests)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	_ = viper.BindPFlag("zoo.directory", rootCmd.PersistentFlags().Lookup("zoo"))

	downloadCmd.Flags().Bool("all", false, "Download every model in the zoo")
	downloadCmd.Flags().String("name", "", "Glob pattern selecting models by name")
	downloadCmd.Flags().StringP("output", "o", config.DefaultOutputDir, "Output directory")
	downloadCmd.Flags().IntP("jobs", "j", config.DefaultWorkers, "Number of concurrent fetches")
	downloadCmd.Flags().Int("retries", config.DefaultMaxRetries, "Retry budget per file")
	downloadCmd.Flags().Duration("timeout", config.DefaultTimeout, "Request timeout")
	downloadCmd.Flags().Bool("refresh", false, "Ignore the verification cache and re-verify everything")
	downloadCmd.Flags().Bool("no-progress", false, "Disable progress bars")
	downloadCmd.Flags().Bool("json", false, "Emit the batch summary as JSON")

	_ = viper.BindPFlag("output.directory", downloadCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("concurrency.workers", downloadCmd.Flags().Lookup("jobs"))
	_ = viper.BindPFlag("download.max_retries", downloadCmd.Flags().Lookup("retries"))
	_ = viper.BindPFlag("download.timeout", downloadCmd.Flags().Lookup("timeout"))

	convertCmd.Flags().Bool("all", false, "Convert every model in the zoo")
	convertCmd.Flags().String("name", "", "Glob pattern selecting models by name")
	convertCmd.Flags().String("mo", "", "Path to the model optimizer executable")
	convertCmd.Flags().String("dl-dir", config.DefaultOutputDir, "Directory holding downloaded models")
	convertCmd.Flags().String("conv-dir", "", "Directory for converted output (defaults to the download directory)")
	convertCmd.Flags().Bool("dry-run", false, "Print the expanded invocation without running it")

	infoCmd.Flags().Bool("json", false, "Emit model info as JSON")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(doctorCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// runContext returns a context cancelled on SIGINT/SIGTERM
func runContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "Shutting down gracefully...")
		cancel()
	}()

	return ctx, cancel
}

// selectModels resolves --all/--name against the zoo registry
func selectModels(cmd *cobra.Command, reg *registry.Registry) ([]*manifest.Model, error) {
	all, _ := cmd.Flags().GetBool("all")
	pattern, _ := cmd.Flags().GetString("name")

	if !all && pattern == "" {
		return nil, fmt.Errorf("select models with --all or --name PATTERN")
	}
	if all && pattern != "" {
		return nil, fmt.Errorf("--all and --name are mutually exclusive")
	}

	entries, err := reg.Select(pattern)
	if err != nil {
		return nil, err
	}

	models := make([]*manifest.Model, 0, len(entries))
	for _, e := range entries {
		model, err := reg.Load(e)
		if err != nil {
			return nil, err
		}
		models = append(models, model)
	}
	return models, nil
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download and verify model artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if noProgress, _ := cmd.Flags().GetBool("no-progress"); noProgress {
			cfg.Download.Progress = false
		}
		refresh, _ := cmd.Flags().GetBool("refresh")
		asJSON, _ := cmd.Flags().GetBool("json")

		reg := registry.New(utils.ExpandPath(cfg.Zoo.Directory))
		models, err := selectModels(cmd, reg)
		if err != nil {
			return err
		}

		orchestrator, err := app.NewOrchestrator(app.OrchestratorOptions{
			Config:  cfg,
			Verbose: verbose,
			Refresh: refresh,
		})
		if err != nil {
			return fmt.Errorf("failed to create orchestrator: %w", err)
		}
		defer orchestrator.Close()

		ctx, cancel := runContext()
		defer cancel()

		batch := orchestrator.RunBatch(ctx, models)

		if asJSON {
			if err := app.WriteJSONSummary(os.Stdout, batch); err != nil {
				return err
			}
		} else {
			app.WriteSummary(os.Stdout, batch)
		}

		if batch.HasFailures() {
			return fmt.Errorf("%d of %d models failed",
				len(batch.Models)-batch.SuccessCount(), len(batch.Models))
		}
		return nil
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Run the model optimizer for downloaded models",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		moPath, _ := cmd.Flags().GetString("mo")
		if moPath == "" {
			moPath = cfg.Converter.MOPath
		}
		dlDir, _ := cmd.Flags().GetString("dl-dir")
		convDir, _ := cmd.Flags().GetString("conv-dir")
		if convDir == "" {
			convDir = cfg.Converter.ConvertDir
		}
		if convDir == "" {
			convDir = dlDir
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		logger := utils.NewLogger(utils.LoggerOptions{
			Level:   cfg.Logging.Level,
			Format:  cfg.Logging.Format,
			Verbose: verbose,
		})

		zooDir := utils.ExpandPath(cfg.Zoo.Directory)
		reg := registry.New(zooDir)
		models, err := selectModels(cmd, reg)
		if err != nil {
			return err
		}

		conv := converter.New(converter.Options{
			MOPath: moPath,
			Logger: logger,
			DryRun: dryRun,
		})

		ctx, cancel := runContext()
		defer cancel()

		failures := 0
		for _, model := range models {
			if len(model.ModelOptimizerArgs) == 0 {
				logger.Info().Str("model", model.Name).Msg("No conversion declared, skipping")
				continue
			}

			paths := converter.Paths{
				DownloadDir: joinDir(dlDir, model.Name),
				ConvertDir:  joinDir(convDir, model.Name),
				ConfigDir:   joinDir(zooDir, model.Name),
			}
			if err := conv.Convert(ctx, model, paths); err != nil {
				logger.Error().Err(err).Str("model", model.Name).Msg("Conversion failed")
				failures++
			}
		}

		if failures > 0 {
			return fmt.Errorf("%d of %d conversions failed", failures, len(models))
		}
		return nil
	},
}

func joinDir(base, name string) string {
	p, err := utils.SafeJoin(base, name)
	if err != nil {
		return base
	}
	return p
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List models available in the zoo",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		reg := registry.New(utils.ExpandPath(cfg.Zoo.Directory))
		entries, err := reg.List()
		if err != nil {
			return err
		}

		for _, e := range entries {
			fmt.Println(e.Name)
		}
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info NAME",
	Short: "Show one model's manifest details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		reg := registry.New(utils.ExpandPath(cfg.Zoo.Directory))
		model, err := reg.LoadByName(args[0])
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(model)
		}

		fmt.Printf("Name:        %s\n", model.Name)
		fmt.Printf("Description: %s\n", model.Description)
		fmt.Printf("Task type:   %s\n", model.TaskType)
		fmt.Printf("Framework:   %s\n", model.Framework)
		fmt.Printf("License:     %s\n", model.License)
		fmt.Printf("Files:       %d\n", len(model.Files))
		var total int64
		for _, f := range model.Files {
			fmt.Printf("  %-40s %12d bytes\n", f.Name, f.Size)
			total += f.Size
		}
		fmt.Printf("Total size:  %d bytes\n", total)
		if len(model.Postprocessing) > 0 {
			fmt.Printf("Postprocessing steps: %d\n", len(model.Postprocessing))
		}
		if len(model.ModelOptimizerArgs) > 0 {
			fmt.Println("Conversion:  available (model_optimizer_args declared)")
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full())
	},
}

// Dependencies for testing
var (
	osStat       = os.Stat
	execLookPath = exec.LookPath
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the local setup",
	Long:  "Verifies that the zoo directory, output directory, and model optimizer are usable.",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Checking setup...")

		cfg, err := config.Load()
		fmt.Print("  Config: ")
		if err != nil {
			fmt.Printf("WARN (%v)\n", err)
			cfg = config.Default()
		} else {
			fmt.Println("OK")
		}

		fmt.Print("  Zoo directory: ")
		zooDir := utils.ExpandPath(cfg.Zoo.Directory)
		if info, err := osStat(zooDir); err == nil && info.IsDir() {
			fmt.Printf("OK (%s)\n", zooDir)
		} else {
			fmt.Printf("NOT FOUND (%s)\n", zooDir)
		}

		fmt.Print("  Output directory: ")
		if probe, err := os.CreateTemp(".", ".modelfetch-probe-*"); err == nil {
			probe.Close()
			os.Remove(probe.Name())
			fmt.Println("OK (writable)")
		} else {
			fmt.Println("FAILED (not writable)")
		}

		fmt.Print("  Model optimizer: ")
		if path := checkMO(cfg.Converter.MOPath); path != "" {
			fmt.Printf("OK (%s)\n", path)
		} else {
			fmt.Println("NOT FOUND (convert will be unavailable)")
		}

		return nil
	},
}

// checkMO reports the model optimizer executable path, if reachable
func checkMO(configured string) string {
	if configured != "" {
		if _, err := osStat(configured); err == nil {
			return configured
		}
		return ""
	}
	if path, err := execLookPath("mo"); err == nil {
		return path
	}
	return ""
}
