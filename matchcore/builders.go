package matchcore

import (
	"context"
	"log"
)

// WithVideoDateRecorder attaches the video-date session collaborator,
// following the teacher's fluent With... builder convention for optional
// dependencies.
func (e *Engine) WithVideoDateRecorder(r VideoDateRecorder) *Engine {
	e.videoDates = r
	return e
}

// WithHistoryMirror registers a durable-projection mirror (historydb.Mirror
// satisfies this) that is fanned out every time a new pair is recorded in
// the in-memory History Ledger.
func (e *Engine) WithHistoryMirror(w HistoryWriter) *Engine {
	e.history.OnInsert(func(userA, userB, reason string) {
		if err := w.Record(context.Background(), userA, userB, reason); err != nil {
			// Best-effort: the in-memory ledger is already authoritative
			// for the hot path; a mirror failure only degrades the
			// durable audit trail, not matching safety.
			log.Printf("matchcore: history mirror: record %s/%s: %v", userA, userB, err)
		}
	})
	return e
}

// WithOutcomeRecorder attaches the outcome audit outbox (historydb.Mirror
// satisfies this too). Every resolved match enqueues one outbox row; the
// Outcome Resolver never waits on or retries the enqueue itself.
func (e *Engine) WithOutcomeRecorder(r OutcomeRecorder) *Engine {
	e.outcomes = r
	return e
}
