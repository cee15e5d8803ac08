package matchcore

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"matchcore/profile"
)

// ProfileReader is the seam into the out-of-scope profile/preference
// collaborator: the engine only ever reads facts through this interface,
// never writes them.
type ProfileReader interface {
	Facts(ctx context.Context, userID string) (profile.Facts, error)
}

// HistoryWriter is implemented by historydb.Mirror; wiring it via
// HistoryLedger.OnInsert keeps the in-memory ledger authoritative for the
// hot path while still giving operators a durable, queryable trail.
type HistoryWriter interface {
	Record(ctx context.Context, userA, userB, reason string) error
}

// OutcomeRecorder is implemented by historydb.Mirror's outbox side. The
// Outcome Resolver fans out exactly one call per resolved match, best
// effort, never blocking or retrying inline.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, matchID, userA, userB string, outcome Outcome) error
}

// Engine ties together the User State Store, Match Store, History Ledger,
// Compatibility Filter and Fairness Scorer into the Pair Formation Engine,
// Voting Window Controller, Outcome Resolver and Queue Admission
// operations. It is the single entry point the transport collaborator
// calls.
type Engine struct {
	cfg     Config
	clock   Clock
	users   *UserStore
	matches *MatchStore
	history *HistoryLedger
	facts   ProfileReader

	videoDates VideoDateRecorder
	outcomes   OutcomeRecorder
}

// NewEngine wires a fresh, empty engine from a config, clock and a
// ProfileReader for compatibility facts.
func NewEngine(cfg Config, clock Clock, facts ProfileReader) *Engine {
	locks := newLockTable()
	users := NewUserStore(clock, locks)
	users.SetFairnessCap(cfg.FairnessCap)
	return &Engine{
		cfg:     cfg,
		clock:   clock,
		users:   users,
		matches: NewMatchStore(clock, locks),
		history: NewHistoryLedger(),
		facts:   facts,
	}
}

// Users exposes the User State Store for read-only status assembly.
func (e *Engine) Users() *UserStore { return e.users }

// Matches exposes the Match Store for read-only status assembly.
func (e *Engine) Matches() *MatchStore { return e.matches }

// History exposes the History Ledger, primarily so historydb.Mirror can
// attach its OnInsert callback during wiring.
func (e *Engine) History() *HistoryLedger { return e.history }

// Heartbeat implements the Heartbeat & Liveness operation (§4.2).
func (e *Engine) Heartbeat(ctx context.Context, userID string) {
	e.users.Heartbeat(userID)
}

// Spin implements Queue Admission (§4.9).
func (e *Engine) Spin(ctx context.Context, userID string) error {
	rec, err := e.users.TransitionWaiting(userID)
	if err != nil {
		return err
	}
	if rec.State != StateWaiting {
		// Idempotent no-op: the user was already mid-match and only got a
		// heartbeat refresh.
		return nil
	}

	deadline, cancel := context.WithTimeout(ctx, e.cfg.EngineDeadline)
	defer cancel()
	_, err = e.FormPair(deadline, userID)
	if err != nil && err != ErrLockBusy && err != errNoCandidate {
		log.Printf("matchcore: engine: spin(%s): form pair: %v", userID, err)
	}
	return nil
}

var errNoCandidate = fmt.Errorf("matchcore: no candidate")

// FormPair implements the Pair Formation Engine (§4.5), returning the
// newly created match id on success.
func (e *Engine) FormPair(ctx context.Context, userID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if !e.users.TryLockUser(userID) {
		return "", ErrLockBusy
	}
	selfLockHeld := true
	defer func() {
		if selfLockHeld {
			e.users.UnlockUser(userID)
		}
	}()

	now := e.clock.Now()
	self := e.users.Get(userID)
	if self.State != StateWaiting || !e.users.IsFresh(self, e.cfg, now) {
		return "", ErrConflict
	}

	candidateID, err := e.selectCandidate(ctx, self, now)
	if err != nil {
		return "", err
	}
	if candidateID == "" {
		return "", errNoCandidate
	}

	// Release the solo lock and re-acquire both users' locks together in
	// lexicographic order (TryLockUsers / locks.TryLockTwo), exactly the
	// two-user lock ordering the pair formation engine requires to avoid
	// the classic two-lock deadlock.
	e.users.UnlockUser(userID)
	selfLockHeld = false

	if !e.users.TryLockUsers(userID, candidateID) {
		return "", ErrLockBusy
	}
	pairLockHeld := true
	defer func() {
		if pairLockHeld {
			e.users.UnlockUsers(userID, candidateID)
		}
	}()

	// Double-checked locking: re-validate both sides under lock before
	// committing to anything.
	selfNow := e.users.Get(userID)
	candNow := e.users.Get(candidateID)
	if selfNow.State != StateWaiting || candNow.State != StateWaiting ||
		!e.users.IsFresh(selfNow, e.cfg, now) || !e.users.IsFresh(candNow, e.cfg, now) {
		return "", ErrConflict
	}
	selfFacts, err := e.facts.Facts(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("matchcore: engine: load facts for %s: %w", userID, err)
	}
	candFacts, err := e.facts.Facts(ctx, candidateID)
	if err != nil {
		return "", fmt.Errorf("matchcore: engine: load facts for %s: %w", candidateID, err)
	}
	if !Compatible(selfFacts, candFacts, e.history.HasMatched(userID, candidateID)) {
		return "", ErrConflict
	}

	// Steps 7-9: generate match, promote to active, transition both
	// users, insert history — observably atomic because both user locks
	// and the fresh match id are held for the whole sequence, and no
	// other goroutine can observe a partial version of it.
	windowStart := now
	windowExpires := now.Add(e.cfg.VoteWindow)
	match := e.matches.Create(userID, candidateID, windowStart, windowExpires)

	if _, err := e.users.TransitionMatched(userID, match.MatchID, candidateID); err != nil {
		return "", fmt.Errorf("matchcore: engine: transition initiator: %w", err)
	}
	if _, err := e.users.TransitionMatched(candidateID, match.MatchID, userID); err != nil {
		return "", fmt.Errorf("matchcore: engine: transition candidate: %w", err)
	}
	// The vote window opened at creation (the design note's preferred
	// convergence), so both users move straight to vote_window; Acknowledge
	// remains legal on either matched or vote_window for UX telemetry.
	if _, err := e.users.TransitionVoteWindow(userID); err != nil {
		log.Printf("matchcore: engine: transition initiator to vote_window: %v", err)
	}
	if _, err := e.users.TransitionVoteWindow(candidateID); err != nil {
		log.Printf("matchcore: engine: transition candidate to vote_window: %v", err)
	}
	e.history.Insert(userID, candidateID, "matched")

	return match.MatchID, nil
}

// selectCandidate implements step 3: among all waiting, fresh, compatible
// users, order by fairness DESC, waiting_since ASC and take the first.
func (e *Engine) selectCandidate(ctx context.Context, self UserRecord, now time.Time) (string, error) {
	selfFacts, err := e.facts.Facts(ctx, self.UserID)
	if err != nil {
		return "", fmt.Errorf("matchcore: engine: load facts for %s: %w", self.UserID, err)
	}

	waiting := e.users.Waiting()
	candidates := make([]UserRecord, 0, len(waiting))
	for _, c := range waiting {
		if c.UserID == self.UserID {
			continue
		}
		if !e.users.IsFresh(c, e.cfg, now) {
			continue
		}
		candFacts, err := e.facts.Facts(ctx, c.UserID)
		if err != nil {
			continue
		}
		if !Compatible(selfFacts, candFacts, e.history.HasMatched(self.UserID, c.UserID)) {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return "", nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Fairness != candidates[j].Fairness {
			return candidates[i].Fairness > candidates[j].Fairness
		}
		return candidates[i].WaitingSince.Before(candidates[j].WaitingSince)
	})
	return candidates[0].UserID, nil
}
