package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrCacheMiss indicates a cache miss
	ErrCacheMiss = errors.New("cache miss")

	// ErrTimeout indicates a timeout occurred
	ErrTimeout = errors.New("timeout")

	// ErrInvalidURL indicates an invalid URL was provided
	ErrInvalidURL = errors.New("invalid URL")

	// ErrUnsupportedFormat indicates an archive format with no registered unpacker
	ErrUnsupportedFormat = errors.New("unsupported archive format")

	// ErrConverterNotFound indicates the model optimizer binary was not found
	ErrConverterNotFound = errors.New("model optimizer not found")
)

// FetchError represents a failure while downloading a model file
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError
func NewFetchError(url string, statusCode int, err error) *FetchError {
	return &FetchError{
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

// RetryableError indicates an error that can be retried
type RetryableError struct {
	Err        error
	RetryAfter int // Seconds to wait before retry, 0 if unknown
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("retryable error (retry after %ds): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("retryable error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var retryable *RetryableError
	if errors.As(err, &retryable) {
		return true
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		switch fetchErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
		// A fetch error without a status code is a transport failure
		// (connection reset, EOF), which is worth retrying.
		if fetchErr.StatusCode == 0 {
			return true
		}
	}

	return errors.Is(err, ErrTimeout)
}

// SizeMismatchError indicates a downloaded file's length differs from the
// manifest-declared size. Integrity failures are never retried.
type SizeMismatchError struct {
	Path     string
	Expected int64
	Actual   int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch for %s: expected %d bytes, got %d", e.Path, e.Expected, e.Actual)
}

// ChecksumMismatchError indicates a downloaded file's digest differs from the
// manifest-declared sha256.
type ChecksumMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// IsIntegrityError reports whether err is a size or checksum mismatch
func IsIntegrityError(err error) bool {
	var sizeErr *SizeMismatchError
	var sumErr *ChecksumMismatchError
	return errors.As(err, &sizeErr) || errors.As(err, &sumErr)
}

// ExtractError represents a failure while applying a postprocessing step
type ExtractError struct {
	Archive string
	Format  string
	Err     error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extraction failed for %s (%s): %v", e.Archive, e.Format, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// NewExtractError creates a new ExtractError
func NewExtractError(archive, format string, err error) *ExtractError {
	return &ExtractError{
		Archive: archive,
		Format:  format,
		Err:     err,
	}
}

// ConvertError represents a failure while invoking the model optimizer
type ConvertError struct {
	Model string
	Err   error
}

func (e *ConvertError) Error() string {
	return fmt.Sprintf("conversion failed for %s: %v", e.Model, e.Err)
}

func (e *ConvertError) Unwrap() error {
	return e.Err
}
