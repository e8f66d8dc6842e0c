package profile

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryRepository struct {
	mu       sync.RWMutex
	nextID   int64
	profiles map[int64]Profile
	purger   SlotPurger
}

// NewMemoryRepository builds an in-memory profile directory for development
// and tests. The purger, when set, receives the cascade delete for the
// profile's template slots; nil is allowed when no slots exist.
func NewMemoryRepository(purger SlotPurger) Repository {
	return &memoryRepository{profiles: make(map[int64]Profile), purger: purger}
}

func (r *memoryRepository) Create(_ context.Context, p Profile) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	p.ID = r.nextID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	r.profiles[p.ID] = p
	return p.ID, nil
}

func (r *memoryRepository) Get(_ context.Context, id int64) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepository) SearchByName(_ context.Context, substring string, limit int) ([]Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(substring)
	var matches []Profile
	for _, p := range r.profiles {
		if strings.Contains(strings.ToLower(p.FullName), needle) {
			matches = append(matches, p)
		}
	}
	sortNewestFirst(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (r *memoryRepository) List(_ context.Context) ([]Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		all = append(all, p)
	}
	sortNewestFirst(all)
	return all, nil
}

func (r *memoryRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[id]; !ok {
		return ErrNotFound
	}
	if r.purger != nil {
		if err := r.purger.RemoveProfile(ctx, id); err != nil {
			return err
		}
	}
	delete(r.profiles, id)
	return nil
}

func sortNewestFirst(profiles []Profile) {
	sort.Slice(profiles, func(i, j int) bool {
		if !profiles[i].CreatedAt.Equal(profiles[j].CreatedAt) {
			return profiles[i].CreatedAt.After(profiles[j].CreatedAt)
		}
		return profiles[i].ID > profiles[j].ID
	})
}
