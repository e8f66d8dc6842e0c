package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// MinSlots and MaxSlots bound how many templates a save may carry.
	MinSlots = 1
	MaxSlots = 3
)

var (
	// ErrSlotCount rejects saves outside the 1..3 template range.
	ErrSlotCount = errors.New("template count must be between 1 and 3")
	// ErrBadPayload rejects saves whose payload is not well-formed JSON.
	ErrBadPayload = errors.New("template payload is not valid JSON")
	// ErrProfileMissing indicates the referenced profile does not exist.
	ErrProfileMissing = errors.New("profile not found for templates")
)

// Store owns the template slots of every profile. Slot assignment is
// positional: the i-th record of a save occupies slot i+1, so no gaps can
// appear. Slots are removed only by the owning profile's cascade delete.
type Store interface {
	// Save writes 1..3 records to their positional slots as one atomic unit.
	Save(ctx context.Context, profileID int64, records []Record) error
	// Load returns a profile's records in ascending slot order, skipping any
	// row whose payload no longer decodes. Image metadata is attached only
	// when includeImages is set.
	Load(ctx context.Context, profileID int64, includeImages bool) ([]Record, error)
	// LoadAll returns every profile's records keyed by profile id, for the
	// identification gallery. Images are never included.
	LoadAll(ctx context.Context) (map[int64][]Record, error)
}

// ValidateRecords enforces the save contract. Both store backends run it
// before writing, and the enrollment flow runs it before creating the owning
// profile so an invalid save has no side effect at all.
func ValidateRecords(records []Record) error {
	if len(records) < MinSlots || len(records) > MaxSlots {
		return fmt.Errorf("%w: got %d", ErrSlotCount, len(records))
	}
	for i, rec := range records {
		if !json.Valid(rec.Payload) {
			return fmt.Errorf("%w: record %d", ErrBadPayload, i+1)
		}
	}
	return nil
}
