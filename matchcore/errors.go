package matchcore

import "errors"

// Sentinel error kinds per the error handling design: every operation that
// fails reports one of these via errors.Is, never a bare string.
var (
	// ErrInvalidTransition marks a silent, idempotent no-op: the caller's
	// requested transition does not apply from the record's current state.
	ErrInvalidTransition = errors.New("matchcore: invalid transition")
	// ErrLockBusy marks a transient failure: another invocation already
	// holds the advisory lock for this id. The caller should wait for the
	// next trigger rather than retry immediately.
	ErrLockBusy = errors.New("matchcore: lock busy")
	// ErrNotFound marks a stale reference to a user or match that no
	// longer exists in the store.
	ErrNotFound = errors.New("matchcore: not found")
	// ErrWindowExpired marks a vote submitted after the match's vote
	// window deadline.
	ErrWindowExpired = errors.New("matchcore: vote window expired")
	// ErrConflict marks a candidate whose state changed between selection
	// and commit; the caller should retry on the next trigger.
	ErrConflict = errors.New("matchcore: conflict")
	// ErrFatal marks a detected invariant violation. The offending
	// operation rolls back; a critical log entry is expected from the
	// caller and the Sweeper reconciles on its next cycle.
	ErrFatal = errors.New("matchcore: invariant violation")
)
