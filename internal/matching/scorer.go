// Package matching holds the scorer capability contract and the pure
// reduction rules that turn raw per-template scores into decisions.
package matching

import (
	"context"
	"fmt"

	"github.com/veriprint/veriprint/internal/template"
	"github.com/veriprint/veriprint/internal/upstream"
)

// Score is one pairwise comparison outcome from the external scorer.
type Score struct {
	// Similarity is the normalized match strength in [0, 1].
	Similarity float64 `json:"score"`
	// Inliers counts the corroborating feature matches behind the score.
	Inliers int `json:"inliers"`
	// Rotation is the recovered alignment angle in degrees; large values
	// usually mean the probe came from a different finger.
	Rotation float64 `json:"angle"`
}

// Scorer is the external pairwise comparison capability. Batch results are
// aligned with the input order. The scoring algorithm itself is not part of
// this system.
type Scorer interface {
	ScoreOne(ctx context.Context, probe, candidate []template.Minutia) (Score, error)
	ScoreBatch(ctx context.Context, probe []template.Minutia, gallery [][]template.Minutia) ([]Score, error)
}

// Client talks to the scoring service over JSON/HTTP.
type Client struct {
	base   string
	caller *upstream.Caller
}

// NewClient builds a scorer client against the given base URL.
func NewClient(base string, caller *upstream.Caller) *Client {
	return &Client{base: base, caller: caller}
}

type scoreRequest struct {
	Probe   []template.Minutia   `json:"probe_minutiae"`
	Gallery [][]template.Minutia `json:"gallery_minutiae_list"`
}

type scoreResponse struct {
	OK      bool    `json:"ok"`
	Results []Score `json:"results"`
	Error   string  `json:"error"`
}

// ScoreOne compares the probe against a single candidate template.
func (c *Client) ScoreOne(ctx context.Context, probe, candidate []template.Minutia) (Score, error) {
	results, err := c.ScoreBatch(ctx, probe, [][]template.Minutia{candidate})
	if err != nil {
		return Score{}, err
	}
	return results[0], nil
}

// ScoreBatch compares the probe against every gallery entry in one call.
func (c *Client) ScoreBatch(ctx context.Context, probe []template.Minutia, gallery [][]template.Minutia) ([]Score, error) {
	var resp scoreResponse
	req := scoreRequest{Probe: probe, Gallery: gallery}
	if err := c.caller.PostJSON(ctx, c.base+"/score_batch", req, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("scorer rejected batch: %s: %w", resp.Error, upstream.ErrUnavailable)
	}
	if len(resp.Results) != len(gallery) {
		return nil, fmt.Errorf("scorer returned %d results for %d candidates: %w",
			len(resp.Results), len(gallery), upstream.ErrUnavailable)
	}
	return resp.Results, nil
}
