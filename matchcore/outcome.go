package matchcore

import (
	"context"
	"log"
	"time"
)

// VideoDateRecorder is the seam into the out-of-scope video call session
// brokerage collaborator. The Outcome Resolver only ever calls Record; it
// never blocks a resolution on the collaborator's result beyond logging a
// failure, since the match outcome itself must never partially commit.
type VideoDateRecorder interface {
	Record(ctx context.Context, matchID, userA, userB string) error
}

// resolveVoted computes the outcome for a match where resolution was
// triggered by a vote (as opposed to Sweeper-driven expiry/disconnect) and
// applies its post-effects. The match's advisory lock is already held by
// the caller (RecordVote).
func (e *Engine) resolveVoted(ctx context.Context, match MatchRecord, now time.Time) (VoteResult, error) {
	outcome := classifyVotes(match.User1Vote, match.User2Vote)
	resolved, err := e.matches.Resolve(match.MatchID, outcome, false, now)
	if err != nil {
		// Another path (e.g. the Sweeper) already resolved this match
		// between our RecordVote write and this call; report its outcome
		// rather than erroring, preserving "second writer either sees the
		// resolved outcome... or is rejected" without a double-outcome.
		return VoteResult{Resolved: true, Outcome: resolved.Outcome}, nil
	}

	// silentNoneIsIdle=false: a pass resolving while the partner simply
	// hasn't voted yet (still live, not stale) is not a disconnect —
	// the untouched side is treated like a pass_pass peer and respins,
	// per "If the vote is pass, resolve immediately".
	e.applyOutcome(ctx, resolved, false)
	return VoteResult{Resolved: true, Outcome: outcome}, nil
}

// classifyVotes implements the outcome table of §4.7 for resolution
// triggered by a live vote (as opposed to Sweeper-driven expiry). A pass
// resolves immediately regardless of whether the partner has voted yet, so
// the partner's vote may legitimately still be VoteNone here; such a case
// is classified the same as pass_pass since no yes is present.
func classifyVotes(v1, v2 Vote) Outcome {
	switch {
	case v1 == VoteYes && v2 == VoteYes:
		return OutcomeBothYes
	case v1 == VoteYes || v2 == VoteYes:
		return OutcomeYesPass
	default:
		return OutcomePassPass
	}
}

// applyOutcome performs the post-effects of a just-resolved match: history
// recording, fairness boosts, auto-respin, and detaching both users. Called
// with the match's advisory lock held so detach + respin complete before
// any other path can observe the match as resolved-but-users-still-attached.
func (e *Engine) applyOutcome(ctx context.Context, match MatchRecord, silentNoneIsIdle bool) {
	e.history.Insert(match.User1ID, match.User2ID, string(match.Outcome))

	if e.outcomes != nil {
		if err := e.outcomes.RecordOutcome(ctx, match.MatchID, match.User1ID, match.User2ID, match.Outcome); err != nil {
			log.Printf("matchcore: engine: record outcome for match %s: %v", match.MatchID, err)
		}
	}

	switch match.Outcome {
	case OutcomeBothYes:
		if e.videoDates != nil {
			if err := e.videoDates.Record(ctx, match.MatchID, match.User1ID, match.User2ID); err != nil {
				log.Printf("matchcore: engine: record video date for match %s: %v", match.MatchID, err)
			}
		}
		e.detachToIdle(match.User1ID)
		e.detachToIdle(match.User2ID)

	case OutcomeYesPass, OutcomePassPass:
		// Covers the simultaneous-vote case, the live-unilateral-pass
		// case, and the Sweeper's disconnect/expiry variants. Which of
		// those applies determines how a VoteNone side is treated:
		// respun like a pass peer (live path) or sent idle (the Sweeper's
		// silent, truly-stale partner).
		e.settleUser(ctx, match.User1ID, match.User1Vote, silentNoneIsIdle)
		e.settleUser(ctx, match.User2ID, match.User2Vote, silentNoneIsIdle)

	case OutcomeIdleIdle:
		e.detachToIdle(match.User1ID)
		e.detachToIdle(match.User2ID)
	}
}

// settleUser applies the single-user post-effect for a yes_pass or
// pass_pass outcome: a yes voter always gets a fairness boost and
// auto-respins, a pass voter always auto-respins. A side that never voted
// (VoteNone) respins like a pass peer unless silentNoneIsIdle is set, in
// which case it is the Sweeper's genuinely-stale disconnect variant and
// goes idle instead.
func (e *Engine) settleUser(ctx context.Context, userID string, vote Vote, silentNoneIsIdle bool) {
	switch vote {
	case VoteYes:
		boosted := e.users.Get(userID).Fairness + e.cfg.FairnessBoost
		e.users.SetFairness(userID, boosted, e.cfg.FairnessCap)
		e.autoRespin(ctx, userID)
	case VotePass:
		e.autoRespin(ctx, userID)
	default:
		if silentNoneIsIdle {
			e.detachToIdle(userID)
		} else {
			e.autoRespin(ctx, userID)
		}
	}
}

// detachToIdle moves the user to idle, preserving their current fairness.
func (e *Engine) detachToIdle(userID string) {
	current := e.users.Get(userID)
	if _, err := e.users.Detach(userID, current.Fairness); err != nil {
		log.Printf("matchcore: engine: detach %s: %v", userID, err)
	}
}

// autoRespin detaches the user and immediately re-admits them to the
// queue, inside the same critical section that resolved the outcome, per
// the "auto-respin is performed inside the same atomic unit" requirement.
func (e *Engine) autoRespin(ctx context.Context, userID string) {
	current := e.users.Get(userID)
	if _, err := e.users.Detach(userID, current.Fairness); err != nil {
		log.Printf("matchcore: engine: detach %s before respin: %v", userID, err)
		return
	}
	if err := e.Spin(ctx, userID); err != nil {
		log.Printf("matchcore: engine: auto-respin %s: %v", userID, err)
	}
}
