// Package market talks to external market-data providers: token identity
// and pricing, venue lookup, and the trade-aggregator fail-safe feed.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrNoData is returned by a provider that answered but had nothing for
// the requested token. Callers fall through to the next provider.
var ErrNoData = errors.New("provider returned no data")

const (
	requestTimeout = 10 * time.Second
	maxAttempts    = 3
	retryBaseDelay = 500 * time.Millisecond
)

// httpJSON is the shared retrying GET client used by every provider:
// bounded attempts with linear backoff, never an unbounded loop.
type httpJSON struct {
	client  *http.Client
	headers map[string]string
	logger  *zap.Logger
}

func newHTTPJSON(logger *zap.Logger, headers map[string]string) *httpJSON {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &httpJSON{
		client:  &http.Client{Timeout: requestTimeout},
		headers: headers,
		logger:  logger,
	}
}

// get fetches url and decodes the JSON body into out.
func (h *httpJSON) get(ctx context.Context, url string, out interface{}) error {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBaseDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range h.headers {
			req.Header.Set(k, v)
		}

		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http get: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read body: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			h.logger.Debug("provider request failed",
				zap.String("url", url),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1))
			continue
		}

		if err := json.Unmarshal(body, out); err != nil {
			lastErr = fmt.Errorf("unmarshal: %w", err)
			continue
		}

		return nil
	}

	return fmt.Errorf("all attempts failed: %w", lastErr)
}
