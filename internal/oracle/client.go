// Package oracle is the client for the fault-injection control plane: an
// external HTTP service holding a shared counter. During chaos tests the
// counter is set to the value assigned to one of the pipeline checkpoints;
// the run that observes the match claims it, advances the counter, and
// aborts, simulating a crash at exactly that point.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Checker is what the pipeline sees: a single check-and-claim operation
// keyed by the counter value of the checkpoint about to run.
type Checker interface {
	ShouldAbort(ctx context.Context, counter int) (bool, error)
}

// Client talks to the oracle over HTTP.
type Client struct {
	baseURL string
	httpc   *http.Client

	// mu serializes check-then-increment so two concurrent pipeline runs
	// cannot both claim the same abort point.
	mu sync.Mutex
}

// New creates a Client for the oracle at baseURL (no trailing slash needed).
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 5 * time.Second},
	}
}

type variableResponse struct {
	Value int `json:"value"`
}

// Value reads the current counter.
func (c *Client) Value(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/variable", nil)
	if err != nil {
		return 0, fmt.Errorf("build oracle request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("query oracle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("query oracle: unexpected status %d", resp.StatusCode)
	}
	var body variableResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode oracle response: %w", err)
	}
	return body.Value, nil
}

// Increment advances the counter.
func (c *Client) Increment(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/variable/increment", nil)
	if err != nil {
		return fmt.Errorf("build oracle request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("increment oracle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("increment oracle: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// ShouldAbort reports whether the counter currently equals the given
// checkpoint value and, when it does, advances the counter before
// returning true. The read and the increment happen under one lock so
// only one pipeline run claims a given abort point.
func (c *Client) ShouldAbort(ctx context.Context, counter int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, err := c.Value(ctx)
	if err != nil {
		return false, err
	}
	if value != counter {
		return false, nil
	}
	if err := c.Increment(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Disabled returns a Checker that never aborts, for production operation.
func Disabled() Checker {
	return disabled{}
}

type disabled struct{}

func (disabled) ShouldAbort(context.Context, int) (bool, error) { return false, nil }
