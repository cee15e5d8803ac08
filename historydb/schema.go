// Package historydb durably mirrors the in-process History Ledger and
// Outcome Resolver decisions to PostgreSQL. matchcore's own ledger is the
// authoritative store for the hot path (re-pair prevention must never block
// on a database round trip); this package is a best-effort write-behind
// projection consumed by downstream reporting and outbox delivery.
package historydb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the history_pairs and outcome_outbox tables if they
// do not already exist. Grounded in cmd/api's ensureSchema bootstrap
// idiom, simplified here since historydb owns exactly two tables
// with no legacy column migrations to carry.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const createPairs = `
CREATE TABLE IF NOT EXISTS history_pairs (
	user_a TEXT NOT NULL,
	user_b TEXT NOT NULL,
	reason TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_a, user_b)
);
`
	if _, err := pool.Exec(ctx, createPairs); err != nil {
		return fmt.Errorf("historydb: create history_pairs: %w", err)
	}

	const createOutbox = `
CREATE TABLE IF NOT EXISTS outcome_outbox (
	id BIGSERIAL PRIMARY KEY,
	topic TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	delivered_at TIMESTAMPTZ
);
`
	if _, err := pool.Exec(ctx, createOutbox); err != nil {
		return fmt.Errorf("historydb: create outcome_outbox: %w", err)
	}

	const createOutboxIndex = `
CREATE INDEX IF NOT EXISTS outcome_outbox_undelivered_idx
	ON outcome_outbox (id) WHERE delivered_at IS NULL;
`
	if _, err := pool.Exec(ctx, createOutboxIndex); err != nil {
		return fmt.Errorf("historydb: create outcome_outbox index: %w", err)
	}

	return nil
}
