// Package verification runs 1:1 matches of a probe against one profile's
// enrolled template slots.
package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/veriprint/veriprint/internal/audit"
	"github.com/veriprint/veriprint/internal/extractor"
	"github.com/veriprint/veriprint/internal/matching"
	"github.com/veriprint/veriprint/internal/profile"
	"github.com/veriprint/veriprint/internal/template"
)

var (
	// ErrNoEnrollment means the claimed profile has no stored templates, so
	// a 1:1 decision cannot be made.
	ErrNoEnrollment = errors.New("profile has no enrolled templates")
	// ErrMissingProbe means the request carried neither a template nor an image.
	ErrMissingProbe = errors.New("probe template or image required")
)

// Getter resolves the claimed profile.
type Getter interface {
	Get(ctx context.Context, id int64) (profile.Profile, error)
}

// Loader fetches the claimed profile's template slots.
type Loader interface {
	Load(ctx context.Context, profileID int64, includeImages bool) ([]template.Record, error)
}

// Probe is the live sample side of a verification. Exactly one of the fields
// should be set; a template wins when both are.
type Probe struct {
	Template json.RawMessage
	ImageB64 string
}

// SlotScore is the pairwise outcome for one enrolled slot.
type SlotScore struct {
	Slot       int     `json:"slot"`
	Similarity float64 `json:"score"`
	Inliers    int     `json:"inliers"`
}

// Result is the full 1:1 outcome. Every compared slot is reported so callers
// can see how close the decision was.
type Result struct {
	PerSlot     []SlotScore `json:"per_slot"`
	BestSlot    int         `json:"best_slot"`
	BestScore   float64     `json:"best_score"`
	BestInliers int         `json:"best_inliers"`
	Accepted    bool        `json:"accepted"`
}

// Service orchestrates verification across the directory, the store, and the
// external extract and score capabilities.
type Service struct {
	profiles Getter
	slots    Loader
	extract  extractor.Extractor
	scorer   matching.Scorer
	policy   matching.VerifyPolicy
	logger   *slog.Logger
	events   audit.Recorder
}

// NewService wires a verification service.
func NewService(profiles Getter, slots Loader, extract extractor.Extractor, scorer matching.Scorer, policy matching.VerifyPolicy, logger *slog.Logger, events audit.Recorder) *Service {
	return &Service{
		profiles: profiles,
		slots:    slots,
		extract:  extract,
		scorer:   scorer,
		policy:   policy,
		logger:   logger,
		events:   events,
	}
}

// Verify compares the probe against every enrolled slot of the claimed
// profile. The decision is the similarity argmax over slots, accepted when it
// clears the policy floors; an exact tie resolves to the lowest slot. The
// scorer is never called for a profile without enrollment.
func (s *Service) Verify(ctx context.Context, profileID int64, probe Probe) (Result, error) {
	if _, err := s.profiles.Get(ctx, profileID); err != nil {
		return Result{}, err
	}

	records, err := s.slots.Load(ctx, profileID, false)
	if err != nil {
		return Result{}, err
	}
	if len(records) == 0 {
		return Result{}, ErrNoEnrollment
	}

	probeMinutiae, err := s.resolveProbe(ctx, probe)
	if err != nil {
		return Result{}, err
	}

	gallery := make([][]template.Minutia, 0, len(records))
	slots := make([]int, 0, len(records))
	for _, rec := range records {
		minutiae, err := rec.Minutiae()
		if err != nil {
			s.logger.Warn("skipping undecodable slot", "profile_id", profileID, "slot", rec.Slot, "error", err)
			continue
		}
		gallery = append(gallery, minutiae)
		slots = append(slots, rec.Slot)
	}
	if len(gallery) == 0 {
		return Result{}, ErrNoEnrollment
	}

	scores, err := s.scorer.ScoreBatch(ctx, probeMinutiae, gallery)
	if err != nil {
		return Result{}, err
	}

	candidates := make([]matching.Candidate, len(scores))
	perSlot := make([]SlotScore, len(scores))
	for i, sc := range scores {
		candidates[i] = matching.Candidate{ProfileID: profileID, Slot: slots[i], Score: sc}
		perSlot[i] = SlotScore{Slot: slots[i], Similarity: sc.Similarity, Inliers: sc.Inliers}
	}

	best, _ := matching.Best(candidates)
	winner := candidates[best]
	result := Result{
		PerSlot:     perSlot,
		BestSlot:    winner.Slot,
		BestScore:   winner.Score.Similarity,
		BestInliers: winner.Score.Inliers,
		Accepted:    s.policy.Accept(winner.Score),
	}

	if s.events != nil {
		s.events.Record(ctx, audit.Event{
			Kind:      audit.KindVerification,
			ProfileID: profileID,
			Accepted:  result.Accepted,
			Score:     result.BestScore,
			Detail:    fmt.Sprintf("best slot %d", result.BestSlot),
		})
	}
	return result, nil
}

// resolveProbe turns the request payload into comparable features. A supplied
// template is used as-is; otherwise the image goes through extraction.
func (s *Service) resolveProbe(ctx context.Context, probe Probe) ([]template.Minutia, error) {
	if len(probe.Template) > 0 {
		minutiae, err := template.DecodeMinutiae(probe.Template)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", extractor.ErrNoFeatures, err)
		}
		if len(minutiae) == 0 {
			return nil, extractor.ErrNoFeatures
		}
		return minutiae, nil
	}
	if probe.ImageB64 == "" {
		return nil, ErrMissingProbe
	}

	payload, _, err := s.extract.Extract(ctx, probe.ImageB64)
	if err != nil {
		return nil, err
	}
	minutiae, err := template.DecodeMinutiae(payload)
	if err != nil || len(minutiae) == 0 {
		return nil, extractor.ErrNoFeatures
	}
	return minutiae, nil
}
