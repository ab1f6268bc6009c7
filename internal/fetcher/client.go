package fetcher

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/modelfetch/modelfetch/internal/domain"
	"github.com/modelfetch/modelfetch/internal/utils"
)

// TempSuffix is appended to a destination path while the download is in
// flight. A .part file is never promoted without verification.
const TempSuffix = ".part"

// Client downloads model files over HTTP(S)
type Client struct {
	httpClient   *http.Client
	retrier      *Retrier
	userAgent    string
	showProgress bool
}

// ClientOptions contains options for creating a Client
type ClientOptions struct {
	Timeout      time.Duration // response header timeout, not whole-body
	MaxRetries   int
	UserAgent    string
	ShowProgress bool
}

// DefaultClientOptions returns default client options
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		UserAgent:  "modelfetch",
	}
}

// NewClient creates a new download client
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   opts.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   opts.Timeout,
		ResponseHeaderTimeout: opts.Timeout,
		MaxIdleConnsPerHost:   8,
	}

	retrier := NewRetrier(RetrierOptions{
		MaxRetries:      opts.MaxRetries,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	})

	return &Client{
		httpClient:   &http.Client{Transport: transport},
		retrier:      retrier,
		userAgent:    opts.UserAgent,
		showProgress: opts.ShowProgress,
	}
}

// Download fetches url into the temporary path for dest and returns that
// path. Each retry attempt restarts the temp file from scratch; the caller
// renames it onto dest only after verification succeeds.
func (c *Client) Download(ctx context.Context, url, dest string, expectedSize int64) (string, error) {
	if err := utils.EnsureDir(dest); err != nil {
		return "", fmt.Errorf("failed to create destination directory: %w", err)
	}

	tmpPath := dest + TempSuffix

	err := c.retrier.Retry(ctx, func() error {
		return c.downloadOnce(ctx, url, tmpPath, expectedSize)
	})
	if err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	return tmpPath, nil
}

// downloadOnce performs a single download attempt into tmpPath
func (c *Client) downloadOnce(ctx context.Context, url, tmpPath string, expectedSize int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.NewFetchError(url, 0, fmt.Errorf("%w: %v", domain.ErrInvalidURL, err))
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.NewFetchError(url, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fetchErr := domain.NewFetchError(url, resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode))
		if ShouldRetryStatus(resp.StatusCode) {
			return &domain.RetryableError{
				Err:        fetchErr,
				RetryAfter: int(ParseRetryAfter(resp.Header.Get("Retry-After")).Seconds()),
			}
		}
		return fetchErr
	}

	out, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	var dst io.Writer = out
	if c.showProgress {
		total := resp.ContentLength
		if total <= 0 {
			total = expectedSize
		}
		bar := utils.NewByteProgressBar(total, utils.DescDownloading)
		defer bar.Finish()
		dst = io.MultiWriter(out, bar)
	}

	_, copyErr := io.Copy(dst, resp.Body)
	closeErr := out.Close()

	if copyErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Mid-body transport failures are worth another attempt.
		return &domain.RetryableError{Err: domain.NewFetchError(url, 0, copyErr)}
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close temp file: %w", closeErr)
	}

	return nil
}

// Discard removes a temp file left over from an aborted download
func Discard(tmpPath string) {
	os.Remove(tmpPath)
}

// Promote renames a verified temp file onto its final destination
func Promote(tmpPath, dest string) error {
	return os.Rename(tmpPath, dest)
}
