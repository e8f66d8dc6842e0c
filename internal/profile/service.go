package profile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/veriprint/veriprint/internal/audit"
)

const (
	dobLayout  = "2006-01-02"
	defaultDOB = "1970-01-01"
)

// Service manages the profile directory.
type Service struct {
	repo        Repository
	searchLimit int
	events      audit.Recorder
}

// NewService creates a directory service. searchLimit caps name searches;
// zero or negative falls back to 50.
func NewService(repo Repository, searchLimit int, events audit.Recorder) *Service {
	if searchLimit <= 0 {
		searchLimit = 50
	}
	return &Service{repo: repo, searchLimit: searchLimit, events: events}
}

// CreateInput captures the attributes supplied at enrollment.
type CreateInput struct {
	FullName string
	Gender   string
	DOB      string
}

// Create validates the input and inserts a new profile. A blank gender
// defaults to other and a blank date of birth to 1970-01-01.
func (s *Service) Create(ctx context.Context, input CreateInput) (Profile, error) {
	name := strings.TrimSpace(input.FullName)
	if name == "" {
		return Profile{}, fmt.Errorf("%w: full name required", ErrInvalidArgument)
	}

	gender, err := ParseGender(input.Gender)
	if err != nil {
		return Profile{}, err
	}

	dobText := input.DOB
	if strings.TrimSpace(dobText) == "" {
		dobText = defaultDOB
	}
	dob, err := time.Parse(dobLayout, dobText)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: dob %q must be YYYY-MM-DD", ErrInvalidArgument, input.DOB)
	}

	p := Profile{
		FullName:  name,
		Gender:    gender,
		DOB:       dob,
		CreatedAt: time.Now().UTC(),
	}
	id, err := s.repo.Create(ctx, p)
	if err != nil {
		return Profile{}, err
	}
	p.ID = id
	return p, nil
}

// Get fetches one profile by id.
func (s *Service) Get(ctx context.Context, id int64) (Profile, error) {
	return s.repo.Get(ctx, id)
}

// Search returns profiles whose name contains the substring, newest first,
// capped at the configured limit. An empty substring matches everything;
// guarding against that is the caller's choice.
func (s *Service) Search(ctx context.Context, substring string) ([]Profile, error) {
	return s.repo.SearchByName(ctx, substring, s.searchLimit)
}

// List enumerates every profile, newest first.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	return s.repo.List(ctx)
}

// Delete removes the profile and, through the repository's cascade, all of
// its template slots. A failed cascade leaves the profile fully intact.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.events != nil {
		s.events.Record(ctx, audit.Event{Kind: audit.KindDeletion, ProfileID: id})
	}
	return nil
}
