package matchcore

import (
	"context"
	"log"
	"time"
)

// Sweeper runs the Liveness & Expiry Sweeper (§4.8) on the engine it
// wraps. It is the pull-side safety net that complements the
// event-driven, push-side Pair Formation Engine: never rely on only one.
type Sweeper struct {
	engine *Engine
}

// NewSweeper returns a Sweeper bound to engine.
func NewSweeper(engine *Engine) *Sweeper {
	return &Sweeper{engine: engine}
}

// Sweep performs one cycle of the four ordered steps in §4.8. It never
// forces a transition that would violate an invariant; it only resolves
// matches that are already terminal in fact (expired, or stale beyond
// recovery).
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.engine.clock.Now()

	// Step 1: resolve matches whose vote window has expired with no
	// outcome yet recorded.
	for _, m := range s.engine.matches.ActiveExpired(now) {
		s.resolveExpired(ctx, m, now)
	}

	// Step 2: cancel matches with at least one stale participant.
	for _, m := range s.engine.matches.Live() {
		s.cancelIfStale(ctx, m, now)
	}

	// Step 3: stale waiting users are left in place; the freshness
	// predicate already excludes them from candidate selection, so there
	// is nothing to do here beyond the documented no-op. Queue entries
	// belonging to users holding a live match are never touched because
	// TransitionWaiting only affects users who are not already attached
	// to one.

	// Step 4: refresh fairness scores for the waiting population.
	s.engine.RefreshFairness(now)
}

// Run invokes Sweep on every tick of cfg.SweepInterval and blocks until
// ctx is cancelled. Its ticker-driven loop has the same shape as
// test/chaos's LivenessSet.DisconnectRandomly.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.engine.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *Sweeper) resolveExpired(ctx context.Context, m MatchRecord, now time.Time) {
	if !s.engine.matches.TryLockMatch(m.MatchID) {
		return
	}
	defer s.engine.matches.UnlockMatch(m.MatchID)

	fresh, err := s.engine.matches.Get(m.MatchID)
	if err != nil || fresh.Outcome != OutcomeNone || fresh.Status != MatchStatusActive {
		return
	}
	if fresh.VoteWindowExpiresAt == nil || now.Before(*fresh.VoteWindowExpiresAt) {
		return
	}

	outcome := classifyExpiry(fresh.User1Vote, fresh.User2Vote)
	resolved, err := s.engine.matches.Resolve(m.MatchID, outcome, false, now)
	if err != nil {
		return
	}
	s.engine.applyOutcome(ctx, resolved, true)
}

// cancelIfStale cancels a live match where at least one participant's
// last_active is stale, per step 2. The fresh side is routed through the
// same settleUser logic as the expiry disconnect variants.
func (s *Sweeper) cancelIfStale(ctx context.Context, m MatchRecord, now time.Time) {
	if !s.engine.matches.TryLockMatch(m.MatchID) {
		return
	}
	defer s.engine.matches.UnlockMatch(m.MatchID)

	fresh, err := s.engine.matches.Get(m.MatchID)
	if err != nil || fresh.Outcome != OutcomeNone {
		return
	}

	u1 := s.engine.users.Get(fresh.User1ID)
	u2 := s.engine.users.Get(fresh.User2ID)
	u1Stale := now.Sub(u1.LastActive) > s.engine.cfg.HeartbeatFresh && !u1.LastActive.IsZero()
	u2Stale := now.Sub(u2.LastActive) > s.engine.cfg.HeartbeatFresh && !u2.LastActive.IsZero()
	// A zero last_active is not treated as stale. Spin sets last_active,
	// so a participant who spun but never sent a heartbeat goes stale once
	// HeartbeatFresh has passed since that spin.
	if !u1Stale && !u2Stale {
		return
	}

	outcome := classifyExpiry(fresh.User1Vote, fresh.User2Vote)
	resolved, err := s.engine.matches.Resolve(m.MatchID, outcome, true, now)
	if err != nil {
		return
	}
	s.engine.applyOutcome(ctx, resolved, true)
	log.Printf("matchcore: sweeper: cancelled match %s for staleness (u1_stale=%v u2_stale=%v)", m.MatchID, u1Stale, u2Stale)
}

// classifyExpiry implements the expiry/disconnect rows of the §4.7 outcome
// table. By construction the Sweeper only ever observes matches where at
// most one side has cast a vote, because RecordVote resolves synchronously
// the instant both sides are present.
func classifyExpiry(v1, v2 Vote) Outcome {
	switch {
	case v1 == VoteNone && v2 == VoteNone:
		return OutcomeIdleIdle
	case v1 == VoteYes || v2 == VoteYes:
		return OutcomeYesPass
	default:
		return OutcomePassPass
	}
}
