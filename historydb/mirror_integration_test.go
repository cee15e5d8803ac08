package historydb_test

import (
	"context"
	"testing"
	"time"

	"matchcore/historydb"
	"matchcore/matchcore"
	"matchcore/test/infra"
)

// TestMirror_RecordIsIdempotent exercises the durable ledger projection
// against a real Postgres container: two inserts of the same normalized
// pair must not error, and the outcome outbox must accumulate one row per
// resolution. Skips when Docker is unavailable.
func TestMirror_RecordIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if !infra.DockerAvailable(ctx) {
		t.Skip("docker not available")
	}

	pgC, dsn, err := infra.StartPostgres16(ctx, "")
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	defer pgC.Terminate(context.Background())

	pool, teardown, err := infra.BootstrapSchema(ctx, dsn, false)
	if err != nil {
		t.Fatalf("bootstrap schema: %v", err)
	}
	defer pool.Close()
	defer teardown(context.Background())

	mirror := historydb.NewMirror(pool)

	if err := mirror.Record(ctx, "alice", "bob", "matched"); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := mirror.Record(ctx, "bob", "alice", "matched"); err != nil {
		t.Fatalf("second record (reversed order) should be idempotent: %v", err)
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM history_pairs WHERE user_a = $1 AND user_b = $2`, "alice", "bob").Scan(&count); err != nil {
		t.Fatalf("count history_pairs: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one normalized row, got %d", count)
	}

	if err := mirror.RecordOutcome(ctx, "match-1", "alice", "bob", matchcore.OutcomeBothYes); err != nil {
		t.Fatalf("record outcome: %v", err)
	}

	var outboxCount int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM outcome_outbox WHERE topic = 'match.outcome'`).Scan(&outboxCount); err != nil {
		t.Fatalf("count outcome_outbox: %v", err)
	}
	if outboxCount != 1 {
		t.Fatalf("expected exactly one outbox row, got %d", outboxCount)
	}
}
