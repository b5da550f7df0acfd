// Package cloudstore is a thin adapter over a generic private per-user
// object-store API: search by filename, download/create/update/delete by
// id. It never refreshes the bearer token it is given — that is the sync
// orchestrator's duty (see internal/cloudsync).
package cloudstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/yomiyougu/core/internal/yomerr"
)

const (
	maxRetries     = 5
	baseBackoff    = 1 * time.Second
	maxBackoff     = 60 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.25
	userAgent      = "yomiyougu-core/0.1"
)

// TokenSource supplies the bearer token for every request. Acquiring and
// refreshing that token is an external collaborator's job — see
// internal/cloudsync.TokenSource for the acquisition-side contract.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is an HTTP client for the abstract per-user cloud area described
// in the component contract: construction takes a base URL, an HTTP
// client, a token source, and a logger; it handles request construction
// and retry with exponential backoff.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
	sleepFunc  func(ctx context.Context, d time.Duration) error
}

func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		token:      token,
		logger:     logger,
		sleepFunc:  timeSleep,
	}
}

// Do executes an authenticated request with retry on transient failure.
// The caller must close the response body on success.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	url := c.baseURL + path

	var attempt int
	for {
		if err := rewindBody(body); err != nil {
			return nil, err
		}

		resp, err := c.doOnce(ctx, method, url, body, contentType)
		if err != nil {
			if ctx.Err() != nil {
				return nil, yomerr.Wrap(yomerr.CodeSyncTransportFailed, ctx.Err(), "request canceled: %s %s", method, path)
			}

			if attempt < maxRetries {
				backoff := c.calcBackoff(attempt)
				c.logger.Warn("retrying cloud request after network error",
					slog.String("method", method), slog.String("path", path),
					slog.Int("attempt", attempt+1), slog.Duration("backoff", backoff),
					slog.String("error", err.Error()))

				if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
					return nil, yomerr.Wrap(yomerr.CodeSyncTransportFailed, sleepErr, "request canceled during backoff")
				}
				attempt++
				continue
			}

			return nil, yomerr.Wrap(yomerr.CodeSyncTransportFailed, err, "%s %s failed after %d retries", method, path, maxRetries)
		}

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			return resp, nil
		}

		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if isRetryable(resp.StatusCode) && attempt < maxRetries {
			backoff := c.retryBackoff(resp, attempt)
			c.logger.Warn("retrying cloud request after HTTP error",
				slog.String("method", method), slog.String("path", path),
				slog.Int("status", resp.StatusCode), slog.Int("attempt", attempt+1), slog.Duration("backoff", backoff))

			if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
				return nil, yomerr.Wrap(yomerr.CodeSyncTransportFailed, sleepErr, "request canceled during backoff")
			}
			attempt++
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, errNotFound
		}

		return nil, yomerr.New(yomerr.CodeSyncTransportFailed,
			fmt.Sprintf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, string(errBody)))
	}
}

var errNotFound = yomerr.New(yomerr.CodeSyncTransportFailed, "not found")

func (c *Client) doOnce(ctx context.Context, method, url string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("cloudstore: creating request: %w", err)
	}

	tok, err := c.token.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("cloudstore: obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return c.httpClient.Do(req)
}

func (c *Client) retryBackoff(resp *http.Response, attempt int) time.Duration {
	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}
	return c.calcBackoff(attempt)
}

func (c *Client) calcBackoff(attempt int) time.Duration {
	backoff := float64(baseBackoff) * math.Pow(backoffFactor, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}
	jitter := backoff * jitterFraction * (rand.Float64()*2 - 1)
	backoff += jitter
	return time.Duration(backoff)
}

func isRetryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func rewindBody(body io.Reader) error {
	if body == nil {
		return nil
	}
	if seeker, ok := body.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("cloudstore: rewinding request body for retry: %w", err)
		}
	}
	return nil
}

func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
