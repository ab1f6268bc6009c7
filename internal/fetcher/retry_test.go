package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelfetch/modelfetch/internal/domain"
)

func fastRetrier(maxRetries int) *Retrier {
	return NewRetrier(RetrierOptions{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	})
}

func TestRetrier_SuccessFirstTry(t *testing.T) {
	attempts := 0
	err := fastRetrier(3).Retry(context.Background(), func() error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetrier_RetriesRetryableErrors(t *testing.T) {
	attempts := 0
	err := fastRetrier(5).Retry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return &domain.RetryableError{Err: errors.New("connection reset")}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetrier_StopsOnPermanentError(t *testing.T) {
	permanent := domain.NewFetchError("https://example.org/x", 404, errors.New("HTTP 404"))

	attempts := 0
	err := fastRetrier(5).Retry(context.Background(), func() error {
		attempts++
		return permanent
	})

	assert.Equal(t, 1, attempts)
	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 404, fetchErr.StatusCode)
}

func TestRetrier_ExhaustsBudget(t *testing.T) {
	attempts := 0
	err := fastRetrier(2).Retry(context.Background(), func() error {
		attempts++
		return &domain.RetryableError{Err: errors.New("still down")}
	})

	assert.Error(t, err)
	assert.Equal(t, 3, attempts) // initial attempt + 2 retries
}

func TestRetrier_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := fastRetrier(50).Retry(ctx, func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return &domain.RetryableError{Err: errors.New("down")}
	})

	assert.Error(t, err)
	assert.LessOrEqual(t, attempts, 3)
}

func TestShouldRetryStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, ShouldRetryStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 410} {
		assert.False(t, ShouldRetryStatus(code), "status %d", code)
	}
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 7*time.Second, ParseRetryAfter("7"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter(""))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("soon"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("-3"))
}
