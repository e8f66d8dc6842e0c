package template

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"
)

type memoryRow struct {
	payload   string
	image     *Image
	createdAt time.Time
}

// MemoryStore is an in-memory template store for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	slots  map[int64]map[int]memoryRow
	logger *slog.Logger
}

// NewMemoryStore builds an in-memory template store.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return &MemoryStore{slots: make(map[int64]map[int]memoryRow), logger: logger}
}

// Save writes the records to their positional slots under one lock, matching
// the all-or-nothing contract of the Postgres store.
func (s *MemoryStore) Save(_ context.Context, profileID int64, records []Record) error {
	if err := ValidateRecords(records); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.slots[profileID]
	if !ok {
		rows = make(map[int]memoryRow)
		s.slots[profileID] = rows
	}
	now := time.Now().UTC()
	for i, rec := range records {
		row := memoryRow{payload: string(rec.Payload), createdAt: now}
		if rec.Image != nil {
			img := *rec.Image
			if img.CapturedAt.IsZero() {
				img.CapturedAt = now
			}
			row.image = &img
		}
		rows[i+1] = row
	}
	return nil
}

// Load returns the profile's slots in ascending slot order, skipping rows
// whose payload no longer decodes.
func (s *MemoryStore) Load(_ context.Context, profileID int64, includeImages bool) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recordsLocked(profileID, includeImages), nil
}

// LoadAll returns every profile's slots keyed by profile id, without images.
func (s *MemoryStore) LoadAll(_ context.Context) (map[int64][]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gallery := make(map[int64][]Record, len(s.slots))
	for profileID := range s.slots {
		if records := s.recordsLocked(profileID, false); len(records) > 0 {
			gallery[profileID] = records
		}
	}
	return gallery, nil
}

// RemoveProfile drops every slot of a profile. It backs the directory's
// cascade delete and is not part of the Store contract.
func (s *MemoryStore) RemoveProfile(_ context.Context, profileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, profileID)
	return nil
}

func (s *MemoryStore) recordsLocked(profileID int64, includeImages bool) []Record {
	rows := s.slots[profileID]
	if len(rows) == 0 {
		return nil
	}

	slots := make([]int, 0, len(rows))
	for slot := range rows {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	records := make([]Record, 0, len(slots))
	for _, slot := range slots {
		row := rows[slot]
		if !json.Valid([]byte(row.payload)) {
			if s.logger != nil {
				s.logger.Warn("skipping corrupt template payload",
					slog.Int64("profile_id", profileID), slog.Int("slot", slot))
			}
			continue
		}
		rec := Record{Slot: slot, Payload: json.RawMessage(row.payload), CreatedAt: row.createdAt}
		if includeImages && row.image != nil {
			img := *row.image
			rec.Image = &img
		}
		records = append(records, rec)
	}
	return records
}
