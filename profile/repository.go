package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals no profile facts row exists for the given user.
var ErrNotFound = errors.New("profile: not found")

// Repository provides read access to candidate facts. It implements
// matchcore.ProfileReader's Facts method; the matching core never writes
// through this repository.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed facts repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Facts fetches the compatibility-relevant facts for userID.
func (r *Repository) Facts(ctx context.Context, userID string) (Facts, error) {
	const query = `
		SELECT user_id, gender, gender_preference, age, acceptable_ages, cities
		FROM profile_facts
		WHERE user_id = $1
	`

	var f Facts
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&f.UserID,
		&f.Gender,
		&f.GenderPreference,
		&f.Age,
		&f.AcceptableAges,
		&f.Cities,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Facts{}, ErrNotFound
		}
		return Facts{}, fmt.Errorf("profile: query facts for %s: %w", userID, err)
	}

	return f, nil
}

// Upsert writes a candidate's self-reported facts, replacing any prior row.
// The onboarding flow that populates these facts is not part of this
// module; this exists so operators and tests can seed facts through
// the same repository the engine reads from.
func (r *Repository) Upsert(ctx context.Context, f Facts) error {
	const query = `
		INSERT INTO profile_facts (user_id, gender, gender_preference, age, acceptable_ages, cities)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			gender = EXCLUDED.gender,
			gender_preference = EXCLUDED.gender_preference,
			age = EXCLUDED.age,
			acceptable_ages = EXCLUDED.acceptable_ages,
			cities = EXCLUDED.cities
	`

	_, err := r.pool.Exec(ctx, query, f.UserID, f.Gender, f.GenderPreference, f.Age, f.AcceptableAges, f.Cities)
	if err != nil {
		return fmt.Errorf("profile: upsert facts for %s: %w", f.UserID, err)
	}
	return nil
}

// EnsureSchema creates the profile_facts table if it does not already
// exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const createSQL = `
CREATE TABLE IF NOT EXISTS profile_facts (
	user_id TEXT PRIMARY KEY,
	gender TEXT NOT NULL DEFAULT '',
	gender_preference TEXT NOT NULL DEFAULT 'all',
	age INTEGER NOT NULL DEFAULT 0,
	acceptable_ages INTEGER[] NOT NULL DEFAULT '{}',
	cities TEXT[] NOT NULL DEFAULT '{}'
);
`
	if _, err := pool.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("profile: create profile_facts: %w", err)
	}
	return nil
}
