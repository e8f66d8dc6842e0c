// Package identification runs 1:N searches of a probe against every enrolled
// template in the directory.
package identification

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/veriprint/veriprint/internal/audit"
	"github.com/veriprint/veriprint/internal/matching"
	"github.com/veriprint/veriprint/internal/profile"
	"github.com/veriprint/veriprint/internal/template"
)

// Directory enumerates and resolves profiles.
type Directory interface {
	List(ctx context.Context) ([]profile.Profile, error)
	Get(ctx context.Context, id int64) (profile.Profile, error)
}

// GalleryLoader fetches every stored template for the search gallery.
type GalleryLoader interface {
	LoadAll(ctx context.Context) (map[int64][]template.Record, error)
}

// Probe is the sample being identified. Decoded minutiae win over a raw
// template when both are present.
type Probe struct {
	Minutiae []template.Minutia
	Template json.RawMessage
}

// Match is the identified profile with its winning comparison.
type Match struct {
	Profile    profile.Profile `json:"profile"`
	Slot       int             `json:"slot"`
	Similarity float64         `json:"score"`
	Inliers    int             `json:"inliers"`
}

// Result is the 1:N outcome. A nil Match is the no-match answer; it is a
// normal result, not an error.
type Result struct {
	Match    *Match `json:"match"`
	Compared int    `json:"compared"`
}

// Service orchestrates identification across the directory, the store, and
// the external scorer.
type Service struct {
	profiles Directory
	gallery  GalleryLoader
	scorer   matching.Scorer
	policy   matching.IdentifyPolicy
	logger   *slog.Logger
	events   audit.Recorder
}

// NewService wires an identification service.
func NewService(profiles Directory, gallery GalleryLoader, scorer matching.Scorer, policy matching.IdentifyPolicy, logger *slog.Logger, events audit.Recorder) *Service {
	return &Service{
		profiles: profiles,
		gallery:  gallery,
		scorer:   scorer,
		policy:   policy,
		logger:   logger,
		events:   events,
	}
}

// Identify compares the probe against the full gallery in one scorer batch
// and reduces the scores through the identification policy. The gallery is
// flattened in directory enumeration order, slots ascending within each
// profile, so exact ties resolve to the earlier profile. An empty or
// undecodable probe and an empty gallery both short-circuit to no-match
// without calling the scorer.
func (s *Service) Identify(ctx context.Context, probe Probe) (Result, error) {
	probeMinutiae := s.resolveProbe(probe)
	if len(probeMinutiae) == 0 {
		return Result{}, nil
	}

	directory, err := s.profiles.List(ctx)
	if err != nil {
		return Result{}, err
	}
	byProfile, err := s.gallery.LoadAll(ctx)
	if err != nil {
		return Result{}, err
	}

	var (
		gallery    [][]template.Minutia
		candidates []matching.Candidate
	)
	for _, p := range directory {
		for _, rec := range byProfile[p.ID] {
			minutiae, err := rec.Minutiae()
			if err != nil {
				s.logger.Warn("skipping undecodable slot", "profile_id", p.ID, "slot", rec.Slot, "error", err)
				continue
			}
			gallery = append(gallery, minutiae)
			candidates = append(candidates, matching.Candidate{ProfileID: p.ID, Slot: rec.Slot})
		}
	}
	if len(gallery) == 0 {
		return Result{}, nil
	}

	scores, err := s.scorer.ScoreBatch(ctx, probeMinutiae, gallery)
	if err != nil {
		return Result{}, err
	}
	for i := range candidates {
		candidates[i].Score = scores[i]
	}

	result := Result{Compared: len(candidates)}
	idx, ok := s.policy.Select(candidates)
	if !ok {
		s.record(ctx, audit.Event{Kind: audit.KindIdentification, Detail: "no match"})
		return result, nil
	}

	winner := candidates[idx]
	matched, err := s.profiles.Get(ctx, winner.ProfileID)
	if err != nil {
		// The winner vanished between listing and resolution.
		if errors.Is(err, profile.ErrNotFound) {
			return result, nil
		}
		return Result{}, err
	}

	result.Match = &Match{
		Profile:    matched,
		Slot:       winner.Slot,
		Similarity: winner.Score.Similarity,
		Inliers:    winner.Score.Inliers,
	}
	s.record(ctx, audit.Event{
		Kind:      audit.KindIdentification,
		ProfileID: matched.ID,
		Accepted:  true,
		Score:     winner.Score.Similarity,
	})
	return result, nil
}

// resolveProbe never fails: a template that does not decode is treated as an
// empty probe, so the search degrades to no-match instead of erroring.
func (s *Service) resolveProbe(probe Probe) []template.Minutia {
	if len(probe.Minutiae) > 0 {
		return probe.Minutiae
	}
	if len(probe.Template) == 0 {
		return nil
	}
	minutiae, err := template.DecodeMinutiae(probe.Template)
	if err != nil {
		s.logger.Warn("discarding undecodable probe template", "error", err)
		return nil
	}
	return minutiae
}

func (s *Service) record(ctx context.Context, event audit.Event) {
	if s.events != nil {
		s.events.Record(ctx, event)
	}
}
