package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/modelfetch/modelfetch/internal/cache"
	"github.com/modelfetch/modelfetch/internal/config"
	"github.com/modelfetch/modelfetch/internal/domain"
	"github.com/modelfetch/modelfetch/internal/fetcher"
	"github.com/modelfetch/modelfetch/internal/manifest"
	"github.com/modelfetch/modelfetch/internal/postprocess"
	"github.com/modelfetch/modelfetch/internal/utils"
	"github.com/modelfetch/modelfetch/internal/verify"
)

// Orchestrator sequences parse, fetch, verify and postprocess for a batch
// of models. Fetches across the whole batch share one bounded worker pool.
type Orchestrator struct {
	config    *config.Config
	client    *fetcher.Client
	store     *cache.Store
	backend   domain.Cache
	processor *postprocess.Processor
	logger    *utils.Logger

	// fetchSlots bounds in-flight fetch/verify operations batch-wide
	fetchSlots chan struct{}
}

// OrchestratorOptions contains options for creating an orchestrator
type OrchestratorOptions struct {
	Config  *config.Config
	Verbose bool
	Refresh bool // bypass the verification cache

	// Cache overrides the badger backend, for tests
	Cache domain.Cache
}

// NewOrchestrator creates a new orchestrator with the given configuration
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logLevel := cfg.Logging.Level
	if opts.Verbose {
		logLevel = "debug"
	}
	logger := utils.NewLogger(utils.LoggerOptions{
		Level:   logLevel,
		Format:  cfg.Logging.Format,
		Verbose: opts.Verbose,
	})

	client := fetcher.NewClient(fetcher.ClientOptions{
		Timeout:      cfg.Download.Timeout,
		MaxRetries:   cfg.Download.MaxRetries,
		UserAgent:    cfg.Download.UserAgent,
		ShowProgress: cfg.Download.Progress,
	})

	var backend domain.Cache
	var store *cache.Store
	if opts.Cache != nil {
		backend = opts.Cache
		store = cache.NewStore(backend)
	} else if cfg.Cache.Enabled && !opts.Refresh {
		c, err := cache.NewBadgerCache(cache.Options{
			Directory: utils.ExpandPath(cfg.Cache.Directory),
		})
		if err != nil {
			// A broken cache only costs re-verification.
			logger.Warn().Err(err).Msg("Verification cache unavailable, continuing without it")
		} else {
			backend = c
			store = cache.NewStore(c)
		}
	}

	workers := cfg.Concurrency.Workers
	if workers < 1 {
		workers = 1
	}

	return &Orchestrator{
		config:     cfg,
		client:     client,
		store:      store,
		backend:    backend,
		processor:  postprocess.NewProcessor(logger),
		logger:     logger,
		fetchSlots: make(chan struct{}, workers),
	}, nil
}

// Close releases orchestrator resources
func (o *Orchestrator) Close() error {
	if o.backend != nil {
		return o.backend.Close()
	}
	return nil
}

// RunBatch downloads, verifies and postprocesses every model. Models run
// independently; one model's failure never aborts another.
func (o *Orchestrator) RunBatch(ctx context.Context, models []*manifest.Model) *domain.BatchResult {
	start := time.Now()

	o.logger.Info().
		Int("models", len(models)).
		Str("output", o.config.Output.Directory).
		Int("concurrency", cap(o.fetchSlots)).
		Msg("Starting download run")

	results := make([]domain.ModelResult, len(models))

	type indexed struct {
		model *manifest.Model
		idx   int
	}
	items := make([]indexed, len(models))
	for i, m := range models {
		items[i] = indexed{model: m, idx: i}
	}

	// Model-level parallelism is bounded by the same worker count; the
	// batch-wide fetch bound is enforced separately by fetchSlots.
	_ = utils.ParallelForEach(ctx, items, cap(o.fetchSlots), func(ctx context.Context, item indexed) error {
		results[item.idx] = o.RunModel(ctx, item.model)
		return nil
	})

	batch := &domain.BatchResult{
		Models:   results,
		Duration: time.Since(start),
	}

	o.logger.Info().
		Dur("total_duration", batch.Duration).
		Int("total", len(models)).
		Int("success", batch.SuccessCount()).
		Int("failed", len(models)-batch.SuccessCount()).
		Msg("Download run completed")

	return batch
}

// RunModel drives one model through the lifecycle
// Pending -> Fetching -> Verifying -> PostProcessing -> Done, landing in
// Failed from any state on error.
func (o *Orchestrator) RunModel(ctx context.Context, model *manifest.Model) domain.ModelResult {
	start := time.Now()
	log := o.logger.WithModel(model.Name)

	result := domain.ModelResult{
		Name:   model.Name,
		Status: domain.StatusPending,
		Files:  make([]domain.FileResult, len(model.Files)),
	}

	destDir, err := utils.SafeJoin(o.config.Output.Directory, model.Name)
	if err != nil {
		result.Status = domain.StatusFailed
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	log.Info().Int("files", len(model.Files)).Msg("Processing model")
	result.Status = domain.StatusFetching

	type indexedFile struct {
		spec manifest.FileSpec
		idx  int
	}
	files := make([]indexedFile, len(model.Files))
	for i, f := range model.Files {
		files[i] = indexedFile{spec: f, idx: i}
	}

	// Sibling files keep going when one fails (best-effort completion).
	_ = utils.ParallelForEach(ctx, files, len(files), func(ctx context.Context, item indexedFile) error {
		result.Files[item.idx] = o.processFile(ctx, model, item.spec, destDir)
		return nil
	})

	result.Status = domain.StatusVerifying
	result.Duration = time.Since(start)

	if ctx.Err() != nil {
		result.Status = domain.StatusFailed
		result.Err = ctx.Err()
		return result
	}

	if failed := result.Failed(); len(failed) > 0 {
		result.Status = domain.StatusFailed
		result.Err = failed[0].Err
		log.Error().
			Int("failed_files", len(failed)).
			Err(result.Err).
			Msg("Model failed, skipping postprocessing")
		return result
	}

	if len(model.Postprocessing) > 0 {
		result.Status = domain.StatusPostProcessing
		if err := o.runPostprocessing(ctx, model, destDir, result.Files, log); err != nil {
			result.Status = domain.StatusFailed
			result.Err = err
			result.Duration = time.Since(start)
			return result
		}
	}

	result.Status = domain.StatusDone
	result.Duration = time.Since(start)
	log.Info().Dur("duration", result.Duration).Msg("Model completed")
	return result
}

// processFile fetches and verifies one file, promoting the temp file onto
// its destination only after the digest checks out.
func (o *Orchestrator) processFile(ctx context.Context, model *manifest.Model, spec manifest.FileSpec, destDir string) domain.FileResult {
	start := time.Now()
	log := o.logger.WithModel(model.Name).WithFile(spec.Name)

	fail := func(err error) domain.FileResult {
		log.Error().Err(err).Msg("File failed")
		return domain.FileResult{
			Name:     spec.Name,
			Size:     spec.Size,
			Outcome:  domain.FileFailed,
			Duration: time.Since(start),
			Err:      err,
		}
	}

	dest, err := utils.SafeJoin(destDir, spec.Name)
	if err != nil {
		return fail(err)
	}

	// Idempotence: a file already verified on a previous run is skipped
	// without touching the network.
	if o.store.IsVerified(ctx, dest, spec.Size, spec.Sha256) {
		log.Debug().Msg("Already verified, skipping")
		return domain.FileResult{
			Name:     spec.Name,
			Size:     spec.Size,
			Outcome:  domain.FileCached,
			Duration: time.Since(start),
		}
	}

	// No record, but the file may already be in place (cache disabled or
	// lost). Re-hashing is cheaper than re-downloading.
	if _, statErr := os.Stat(dest); statErr == nil {
		if _, verr := verify.File(dest, spec.Size, spec.Sha256); verr == nil {
			if err := o.store.MarkVerified(ctx, dest, spec.Size, spec.Sha256); err != nil {
				log.Warn().Err(err).Msg("Failed to record verification")
			}
			log.Debug().Msg("Existing file verified, skipping fetch")
			return domain.FileResult{
				Name:     spec.Name,
				Size:     spec.Size,
				Outcome:  domain.FileCached,
				Duration: time.Since(start),
			}
		}
		log.Warn().Msg("Existing file failed verification, re-fetching")
	}

	select {
	case o.fetchSlots <- struct{}{}:
		defer func() { <-o.fetchSlots }()
	case <-ctx.Done():
		return fail(ctx.Err())
	}

	log.Info().Str("source", spec.Source).Int64("size", spec.Size).Msg("Fetching")

	tmpPath, err := o.client.Download(ctx, spec.Source, dest, spec.Size)
	if err != nil {
		return fail(err)
	}

	if _, err := verify.File(tmpPath, spec.Size, spec.Sha256); err != nil {
		fetcher.Discard(tmpPath)
		return fail(err)
	}

	if err := fetcher.Promote(tmpPath, dest); err != nil {
		fetcher.Discard(tmpPath)
		return fail(err)
	}

	if err := o.store.MarkVerified(ctx, dest, spec.Size, spec.Sha256); err != nil {
		log.Warn().Err(err).Msg("Failed to record verification")
	}

	log.Info().Dur("duration", time.Since(start)).Msg("Verified")
	return domain.FileResult{
		Name:     spec.Name,
		Size:     spec.Size,
		Outcome:  domain.FileVerified,
		Duration: time.Since(start),
	}
}

// runPostprocessing applies the model's steps, skipping them when a prior
// run already processed the same declaration and nothing was re-fetched.
func (o *Orchestrator) runPostprocessing(ctx context.Context, model *manifest.Model, destDir string, files []domain.FileResult, log *utils.Logger) error {
	digest := cache.StepsDigest(model.Postprocessing)

	allCached := true
	for _, f := range files {
		if f.Outcome != domain.FileCached {
			allCached = false
			break
		}
	}
	if allCached && o.store.IsProcessed(ctx, destDir, digest) {
		log.Debug().Msg("Postprocessing already applied, skipping")
		return nil
	}

	log.Info().Int("steps", len(model.Postprocessing)).Msg("Postprocessing")
	if err := o.processor.Apply(model, destDir); err != nil {
		return err
	}

	if err := o.store.MarkProcessed(ctx, destDir, digest); err != nil {
		log.Warn().Err(err).Msg("Failed to record postprocessing")
	}
	return nil
}
