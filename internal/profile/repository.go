package profile

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists profiles. Delete cascades to the profile's template
// slots atomically; callers never remove slots on their own.
type Repository interface {
	Create(ctx context.Context, p Profile) (int64, error)
	Get(ctx context.Context, id int64) (Profile, error)
	SearchByName(ctx context.Context, substring string, limit int) ([]Profile, error)
	List(ctx context.Context) ([]Profile, error)
	Delete(ctx context.Context, id int64) error
}

// SlotPurger removes every template slot of a profile. The memory repository
// uses it to mirror the referential cascade Postgres gets from its schema.
type SlotPurger interface {
	RemoveProfile(ctx context.Context, profileID int64) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed profile repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new profile and returns its assigned id.
func (r *PostgresRepository) Create(ctx context.Context, p Profile) (int64, error) {
	const query = `INSERT INTO profiles (full_name, gender, dob, created_at)
        VALUES ($1, $2, $3, $4) RETURNING id`
	var id int64
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if err := r.db.QueryRow(ctx, query, p.FullName, string(p.Gender), p.DOB, createdAt).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// Get fetches a profile by id.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (Profile, error) {
	const query = `SELECT id, full_name, gender, dob, created_at FROM profiles WHERE id = $1`
	p, err := scanProfile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

// SearchByName returns profiles whose name contains the substring,
// most-recently-created first, capped at limit.
func (r *PostgresRepository) SearchByName(ctx context.Context, substring string, limit int) ([]Profile, error) {
	const query = `SELECT id, full_name, gender, dob, created_at FROM profiles
        WHERE full_name ILIKE '%' || $1 || '%'
        ORDER BY created_at DESC, id DESC
        LIMIT $2`
	rows, err := r.db.Query(ctx, query, substring, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProfiles(rows)
}

// List returns every profile, most-recently-created first.
func (r *PostgresRepository) List(ctx context.Context) ([]Profile, error) {
	const query = `SELECT id, full_name, gender, dob, created_at FROM profiles
        ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProfiles(rows)
}

// Delete removes the profile; the templates table's ON DELETE CASCADE makes
// the slot removal part of the same atomic statement.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (Profile, error) {
	var p Profile
	var gender string
	var dob, createdAt time.Time
	if err := row.Scan(&p.ID, &p.FullName, &gender, &dob, &createdAt); err != nil {
		return Profile{}, err
	}
	p.Gender = Gender(gender)
	p.DOB = dob
	p.CreatedAt = createdAt.UTC()
	return p, nil
}

func collectProfiles(rows pgx.Rows) ([]Profile, error) {
	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
