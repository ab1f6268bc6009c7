package domain

import (
	"context"
	"time"
)

// ModelStatus is the terminal or in-flight state of one model's run
type ModelStatus string

const (
	StatusPending        ModelStatus = "pending"
	StatusFetching       ModelStatus = "fetching"
	StatusVerifying      ModelStatus = "verifying"
	StatusPostProcessing ModelStatus = "postprocessing"
	StatusDone           ModelStatus = "done"
	StatusFailed         ModelStatus = "failed"
)

// FileOutcome is the terminal state of one file within a model run
type FileOutcome string

const (
	FileVerified FileOutcome = "verified"
	FileCached   FileOutcome = "cached"
	FileFailed   FileOutcome = "failed"
	FileSkipped  FileOutcome = "skipped"
)

// FileResult reports the outcome of fetching and verifying one file
type FileResult struct {
	Name     string
	Size     int64
	Outcome  FileOutcome
	Duration time.Duration
	Err      error
}

// ModelResult reports the outcome of one model's download run
type ModelResult struct {
	Name     string
	Status   ModelStatus
	Files    []FileResult
	Duration time.Duration
	Err      error
}

// Failed returns the file results that did not verify
func (r *ModelResult) Failed() []FileResult {
	var failed []FileResult
	for _, f := range r.Files {
		if f.Outcome == FileFailed {
			failed = append(failed, f)
		}
	}
	return failed
}

// BatchResult aggregates per-model results for one run
type BatchResult struct {
	Models   []ModelResult
	Duration time.Duration
}

// SuccessCount returns the number of models that reached Done
func (b *BatchResult) SuccessCount() int {
	n := 0
	for _, m := range b.Models {
		if m.Status == StatusDone {
			n++
		}
	}
	return n
}

// HasFailures reports whether any model failed
func (b *BatchResult) HasFailures() bool {
	for _, m := range b.Models {
		if m.Status != StatusDone {
			return true
		}
	}
	return false
}

// Cache is a persistent key-value store for verification records
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
