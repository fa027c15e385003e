// Package providers contains one adapter per upstream music service. Every
// adapter translates provider-specific JSON into the canonical core.Track
// schema and returns errors instead of swallowing them; fan-out callers
// decide whether a failure degrades to an empty contribution.
package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotFound is returned by single-item lookups when the upstream has no
// record for the requested ID.
var ErrNotFound = errors.New("not found")

const (
	// defaultHTTPTimeout bounds every adapter request uniformly.
	defaultHTTPTimeout = 10 * time.Second
)

// newHTTPClient creates the HTTP client shared by adapter constructors.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// getJSON performs a rate-limited GET and decodes the JSON response body.
func getJSON(ctx context.Context, client *http.Client, limiter *rate.Limiter, url string, dest interface{}) error {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
