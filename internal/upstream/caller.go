// Package upstream holds the shared JSON-over-HTTP caller used to reach the
// capture device SDK, the feature extractor and the scorer. The collaborators
// report their own failures inside the response body, so any HTTP status is
// decoded; only transport-level problems become Go errors.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

var (
	// ErrTimeout indicates a collaborator exceeded its caller-supplied bound.
	ErrTimeout = errors.New("upstream timed out")
	// ErrUnavailable indicates a collaborator was unreachable or replied with garbage.
	ErrUnavailable = errors.New("upstream unavailable")
)

// Caller issues JSON POST requests with a bounded timeout.
type Caller struct {
	client *http.Client
}

// NewCaller builds a caller whose requests are bounded by timeout. A zero
// timeout leaves the bound to the per-request context.
func NewCaller(timeout time.Duration) *Caller {
	return &Caller{client: &http.Client{Timeout: timeout}}
}

// PostJSON posts in (or an empty object when nil) to url and decodes the
// response body into out. Timeouts and transport failures map onto the
// package error kinds so callers can tell them apart from domain outcomes.
func (c *Caller) PostJSON(ctx context.Context, url string, in, out any) error {
	if in == nil {
		in = struct{}{}
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request for %s: %w", url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%s: %w", url, ErrTimeout)
		}
		return fmt.Errorf("%s: %w", url, ErrUnavailable)
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s (status %d): %w", url, resp.StatusCode, ErrUnavailable)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
