package historydb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"matchcore/matchcore"
)

// Mirror durably projects matchcore's History Ledger inserts and resolved
// outcomes. It satisfies matchcore.HistoryWriter (Record) and
// matchcore.OutcomeRecorder (RecordOutcome); both methods are wired via the
// engine's WithHistoryMirror / WithOutcomeRecorder builders and are always
// called best-effort, after the in-memory state has already committed.
type Mirror struct {
	pool *pgxpool.Pool
}

// NewMirror returns a Mirror backed by pool. Callers should run
// EnsureSchema once at startup before wiring a Mirror into the engine.
func NewMirror(pool *pgxpool.Pool) *Mirror {
	return &Mirror{pool: pool}
}

// Record inserts the normalized pair idempotently. A duplicate insert
// (unique violation on the PK) is not an error here, mirroring the
// in-memory ledger's own self-healing insert: two concurrent resolutions
// racing to record the same pair both succeed.
func (m *Mirror) Record(ctx context.Context, userA, userB, reason string) error {
	a, b := userA, userB
	if a > b {
		a, b = b, a
	}

	const insertSQL = `
INSERT INTO history_pairs (user_a, user_b, reason)
VALUES ($1, $2, $3)
ON CONFLICT (user_a, user_b) DO NOTHING
`
	if _, err := m.pool.Exec(ctx, insertSQL, a, b, reason); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil
		}
		return fmt.Errorf("historydb: record pair %s/%s: %w", a, b, err)
	}
	return nil
}

// outcomeEvent is the JSON payload shape written to outcome_outbox. Kept
// deliberately small: downstream consumers join back to history_pairs or
// the primary matchcore state for anything beyond the outcome itself.
type outcomeEvent struct {
	MatchID    string    `json:"match_id"`
	UserA      string    `json:"user_a"`
	UserB      string    `json:"user_b"`
	Outcome    string    `json:"outcome"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// RecordOutcome enqueues one outbox row per resolved match under the
// "match.outcome" topic, for at-least-once delivery by a downstream
// consumer not built here (that consumer is a collaborator, like the video
// call session brokerage).
func (m *Mirror) RecordOutcome(ctx context.Context, matchID, userA, userB string, outcome matchcore.Outcome) error {
	payload, err := json.Marshal(outcomeEvent{
		MatchID:    matchID,
		UserA:      userA,
		UserB:      userB,
		Outcome:    string(outcome),
		ResolvedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("historydb: marshal outcome event: %w", err)
	}

	const insertSQL = `
INSERT INTO outcome_outbox (topic, payload)
VALUES ($1, $2)
`
	if _, err := m.pool.Exec(ctx, insertSQL, outboxTopicMatchOutcome, payload); err != nil {
		return fmt.Errorf("historydb: enqueue outcome outbox: %w", err)
	}
	return nil
}

const outboxTopicMatchOutcome = "match.outcome"
