package fetcher

import (
	"context"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/modelfetch/modelfetch/internal/domain"
)

// Retrier handles retry logic with exponential backoff
type Retrier struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	multiplier      float64
}

// RetrierOptions contains options for creating a Retrier
type RetrierOptions struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetrierOptions returns default retrier options
func DefaultRetrierOptions() RetrierOptions {
	return RetrierOptions{
		MaxRetries:      3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	}
}

// NewRetrier creates a new Retrier with the given options
func NewRetrier(opts RetrierOptions) *Retrier {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 1 * time.Second
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 30 * time.Second
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 2.0
	}

	return &Retrier{
		maxRetries:      opts.MaxRetries,
		initialInterval: opts.InitialInterval,
		maxInterval:     opts.MaxInterval,
		multiplier:      opts.Multiplier,
	}
}

// newBackoff creates a new exponential backoff
func (r *Retrier) newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.Multiplier = r.multiplier
	b.RandomizationFactor = 0.5
	b.Reset()

	return backoff.WithMaxRetries(b, uint64(r.maxRetries))
}

// Retry executes an operation with exponential backoff. Errors that are not
// retryable per domain.IsRetryable abort immediately.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := r.newBackoff()
	b = backoff.WithContext(b, ctx)

	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}

		if !domain.IsRetryable(err) {
			return backoff.Permanent(err)
		}

		return err
	}, b)
}

// ShouldRetryStatus returns true if the HTTP status code should be retried
func ShouldRetryStatus(statusCode int) bool {
	switch statusCode {
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504:
		return true
	}
	return false
}

// ParseRetryAfter parses a Retry-After header value given in seconds
func ParseRetryAfter(retryAfter string) time.Duration {
	if retryAfter == "" {
		return 0
	}
	seconds, err := strconv.Atoi(retryAfter)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
