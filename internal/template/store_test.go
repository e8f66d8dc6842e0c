package template

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/veriprint/veriprint/internal/logging"
)

func payload(t *testing.T, minutiae string) json.RawMessage {
	t.Helper()
	raw := json.RawMessage(`{"minutiae":` + minutiae + `}`)
	if !json.Valid(raw) {
		t.Fatalf("test payload invalid: %s", raw)
	}
	return raw
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewMemoryStore(logging.Discard())
	ctx := context.Background()

	records := []Record{
		{Payload: payload(t, `[{"x":1,"y":2,"angle":10}]`)},
		{Payload: payload(t, `[{"x":3,"y":4,"angle":20}]`)},
		{Payload: payload(t, `[{"x":5,"y":6,"angle":30}]`)},
	}
	if err := store.Save(ctx, 7, records); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(ctx, 7, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i, rec := range got {
		if rec.Slot != i+1 {
			t.Fatalf("record %d in slot %d, want %d", i, rec.Slot, i+1)
		}
		if string(rec.Payload) != string(records[i].Payload) {
			t.Fatalf("slot %d payload mismatch: %s", rec.Slot, rec.Payload)
		}
	}
}

func TestPartialResaveKeepsHigherSlots(t *testing.T) {
	store := NewMemoryStore(logging.Discard())
	ctx := context.Background()

	a, b, c := payload(t, `[{"x":1}]`), payload(t, `[{"x":2}]`), payload(t, `[{"x":3}]`)
	if err := store.Save(ctx, 1, []Record{{Payload: a}, {Payload: b}, {Payload: c}}); err != nil {
		t.Fatalf("first save: %v", err)
	}

	x := payload(t, `[{"x":9}]`)
	if err := store.Save(ctx, 1, []Record{{Payload: x}}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := store.Load(ctx, 1, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records after partial re-save, got %d", len(got))
	}
	want := []string{string(x), string(b), string(c)}
	for i, rec := range got {
		if string(rec.Payload) != want[i] {
			t.Fatalf("slot %d = %s, want %s", rec.Slot, rec.Payload, want[i])
		}
	}
}

func TestSaveRejectsBadSlotCounts(t *testing.T) {
	store := NewMemoryStore(logging.Discard())
	ctx := context.Background()

	prior := payload(t, `[{"x":1}]`)
	if err := store.Save(ctx, 2, []Record{{Payload: prior}}); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	if err := store.Save(ctx, 2, nil); !errors.Is(err, ErrSlotCount) {
		t.Fatalf("empty save: expected ErrSlotCount, got %v", err)
	}

	four := make([]Record, 4)
	for i := range four {
		four[i] = Record{Payload: payload(t, `[]`)}
	}
	if err := store.Save(ctx, 2, four); !errors.Is(err, ErrSlotCount) {
		t.Fatalf("oversized save: expected ErrSlotCount, got %v", err)
	}

	got, err := store.Load(ctx, 2, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || string(got[0].Payload) != string(prior) {
		t.Fatalf("rejected saves must leave prior slots untouched, got %+v", got)
	}
}

func TestSaveRejectsMalformedPayload(t *testing.T) {
	store := NewMemoryStore(logging.Discard())
	err := store.Save(context.Background(), 3, []Record{{Payload: json.RawMessage(`{"minutiae":`)}})
	if !errors.Is(err, ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload, got %v", err)
	}
}

func TestLoadSkipsCorruptRows(t *testing.T) {
	store := NewMemoryStore(logging.Discard())
	ctx := context.Background()

	if err := store.Save(ctx, 4, []Record{
		{Payload: payload(t, `[{"x":1}]`)},
		{Payload: payload(t, `[{"x":2}]`)},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Corrupt slot 1 behind the store's back, as a broken DB row would be.
	store.mu.Lock()
	row := store.slots[4][1]
	row.payload = `{"minutiae": [truncated`
	store.slots[4][1] = row
	store.mu.Unlock()

	got, err := store.Load(ctx, 4, false)
	if err != nil {
		t.Fatalf("load must not fail on corruption: %v", err)
	}
	if len(got) != 1 || got[0].Slot != 2 {
		t.Fatalf("expected only slot 2 to survive, got %+v", got)
	}
}

func TestImagesAttachedOnlyWhenRequested(t *testing.T) {
	store := NewMemoryStore(logging.Discard())
	ctx := context.Background()

	records := []Record{{
		Payload: payload(t, `[{"x":1}]`),
		Image:   &Image{Data: "aGVsbG8=", MIME: "image/bmp"},
	}}
	if err := store.Save(ctx, 5, records); err != nil {
		t.Fatalf("save: %v", err)
	}

	plain, err := store.Load(ctx, 5, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if plain[0].Image != nil {
		t.Fatal("image must be omitted unless requested")
	}

	withImages, err := store.Load(ctx, 5, true)
	if err != nil {
		t.Fatalf("load with images: %v", err)
	}
	img := withImages[0].Image
	if img == nil || img.Data != "aGVsbG8=" || img.MIME != "image/bmp" {
		t.Fatalf("expected stored image metadata, got %+v", img)
	}
	if img.CapturedAt.IsZero() {
		t.Fatal("capture timestamp should default when absent")
	}
}

func TestLoadAllSkipsEmptyProfilesAndImages(t *testing.T) {
	store := NewMemoryStore(logging.Discard())
	ctx := context.Background()

	if err := store.Save(ctx, 10, []Record{{
		Payload: payload(t, `[{"x":1}]`),
		Image:   &Image{Data: "xx", MIME: "image/bmp"},
	}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.RemoveProfile(ctx, 11); err != nil {
		t.Fatalf("remove: %v", err)
	}

	gallery, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(gallery) != 1 {
		t.Fatalf("expected one profile in gallery, got %d", len(gallery))
	}
	if gallery[10][0].Image != nil {
		t.Fatal("gallery loads must not carry images")
	}
}

func TestRemoveProfileDropsAllSlots(t *testing.T) {
	store := NewMemoryStore(logging.Discard())
	ctx := context.Background()

	if err := store.Save(ctx, 6, []Record{
		{Payload: payload(t, `[]`)},
		{Payload: payload(t, `[]`)},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.RemoveProfile(ctx, 6); err != nil {
		t.Fatalf("remove: %v", err)
	}

	got, err := store.Load(ctx, 6, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no slots after removal, got %d", len(got))
	}
}
