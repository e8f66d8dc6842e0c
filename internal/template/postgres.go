package template

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const fkViolation = "23503"

// PostgresStore persists template slots in PostgreSQL.
type PostgresStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore builds a Postgres-backed template store.
func NewPostgresStore(db *pgxpool.Pool, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// Save upserts the records into slots 1..len(records) inside one transaction,
// so a failing slot write leaves no partial state behind.
func (s *PostgresStore) Save(ctx context.Context, profileID int64, records []Record) error {
	if err := ValidateRecords(records); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	const upsert = `INSERT INTO templates (profile_id, slot, payload, image_b64, image_mime, captured_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, now())
        ON CONFLICT (profile_id, slot) DO UPDATE SET
            payload = excluded.payload,
            image_b64 = excluded.image_b64,
            image_mime = excluded.image_mime,
            captured_at = excluded.captured_at,
            created_at = now()`

	for i, rec := range records {
		var imageData, imageMIME *string
		var capturedAt *time.Time
		if rec.Image != nil {
			imageData = &rec.Image.Data
			imageMIME = &rec.Image.MIME
			at := rec.Image.CapturedAt
			if at.IsZero() {
				at = time.Now().UTC()
			}
			capturedAt = &at
		}
		if _, err := tx.Exec(ctx, upsert, profileID, i+1, string(rec.Payload), imageData, imageMIME, capturedAt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == fkViolation {
				return ErrProfileMissing
			}
			return err
		}
	}

	return tx.Commit(ctx)
}

// Load fetches a profile's slots in ascending slot order. Rows whose payload
// fails to decode are logged and skipped, never surfaced as a read error.
func (s *PostgresStore) Load(ctx context.Context, profileID int64, includeImages bool) ([]Record, error) {
	const query = `SELECT slot, payload, image_b64, image_mime, captured_at, created_at
        FROM templates WHERE profile_id = $1 ORDER BY slot ASC`

	rows, err := s.db.Query(ctx, query, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, ok, err := s.scanRecord(rows, profileID, includeImages)
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, rec)
		}
	}
	return records, rows.Err()
}

// LoadAll batches every profile's slots in one query for the gallery scan.
func (s *PostgresStore) LoadAll(ctx context.Context) (map[int64][]Record, error) {
	const query = `SELECT profile_id, slot, payload, created_at
        FROM templates ORDER BY profile_id ASC, slot ASC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	gallery := make(map[int64][]Record)
	for rows.Next() {
		var profileID int64
		var rec Record
		var payload string
		if err := rows.Scan(&profileID, &rec.Slot, &payload, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if !json.Valid([]byte(payload)) {
			s.warnCorrupt(profileID, rec.Slot)
			continue
		}
		rec.Payload = json.RawMessage(payload)
		gallery[profileID] = append(gallery[profileID], rec)
	}
	return gallery, rows.Err()
}

func (s *PostgresStore) scanRecord(rows pgx.Rows, profileID int64, includeImages bool) (Record, bool, error) {
	var rec Record
	var payload string
	var imageData, imageMIME *string
	var capturedAt *time.Time
	if err := rows.Scan(&rec.Slot, &payload, &imageData, &imageMIME, &capturedAt, &rec.CreatedAt); err != nil {
		return Record{}, false, err
	}

	if !json.Valid([]byte(payload)) {
		s.warnCorrupt(profileID, rec.Slot)
		return Record{}, false, nil
	}
	rec.Payload = json.RawMessage(payload)

	if includeImages && imageData != nil {
		img := Image{Data: *imageData}
		if imageMIME != nil {
			img.MIME = *imageMIME
		}
		if capturedAt != nil {
			img.CapturedAt = capturedAt.UTC()
		}
		rec.Image = &img
	}
	return rec, true, nil
}

func (s *PostgresStore) warnCorrupt(profileID int64, slot int) {
	if s.logger != nil {
		s.logger.Warn("skipping corrupt template payload",
			slog.Int64("profile_id", profileID), slog.Int("slot", slot))
	}
}
