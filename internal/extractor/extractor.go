// Package extractor wraps the external feature extraction capability that
// turns a captured bitmap into a template payload.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/veriprint/veriprint/internal/upstream"
)

// ErrNoFeatures indicates the extractor produced no usable template.
var ErrNoFeatures = errors.New("extraction produced no usable template")

// Extractor converts a base64 bitmap into an opaque template payload and
// reports how many features it found.
type Extractor interface {
	Extract(ctx context.Context, imageB64 string) (json.RawMessage, int, error)
}

// Client talks to the extraction service over JSON/HTTP.
type Client struct {
	base   string
	caller *upstream.Caller
}

// NewClient builds an extractor client against the given base URL.
func NewClient(base string, caller *upstream.Caller) *Client {
	return &Client{base: base, caller: caller}
}

type extractRequest struct {
	ImageB64 string `json:"image_b64"`
}

type extractResponse struct {
	OK            bool            `json:"ok"`
	MinutiaeCount int             `json:"minutiae_count"`
	Template      json.RawMessage `json:"json_debug"`
	Error         string          `json:"error"`
}

// Extract runs feature extraction on the image. Extractor-side failures and
// featureless results both surface as ErrNoFeatures; transport problems keep
// their upstream error kinds.
func (c *Client) Extract(ctx context.Context, imageB64 string) (json.RawMessage, int, error) {
	var resp extractResponse
	if err := c.caller.PostJSON(ctx, c.base+"/extract", extractRequest{ImageB64: imageB64}, &resp); err != nil {
		return nil, 0, err
	}
	if !resp.OK {
		return nil, 0, fmt.Errorf("%w: %s", ErrNoFeatures, resp.Error)
	}
	if resp.MinutiaeCount == 0 || len(resp.Template) == 0 {
		return nil, 0, ErrNoFeatures
	}
	return resp.Template, resp.MinutiaeCount, nil
}
