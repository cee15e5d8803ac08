// Package oracles implements periodic invariant checks run against a live
// matchcore.Engine during concurrency stress runs. Each oracle mirrors one
// of the safety properties a correct Pair Formation Engine and Outcome
// Resolver must never violate, regardless of how adversarially Spin,
// RecordVote and the Sweeper interleave.
package oracles

import (
	"fmt"

	"matchcore/matchcore"
)

// Oracle is one invariant check over the engine's current state.
type Oracle struct {
	Name  string
	Check func(e *matchcore.Engine) (string, bool)
}

// All returns every registered oracle.
func All() []Oracle {
	return []Oracle{
		{Name: "O1_no_double_attachment", Check: noDoubleAttachment},
		{Name: "O2_no_self_match", Check: noSelfMatch},
		{Name: "O3_outcome_implies_terminal_status", Check: outcomeImpliesTerminalStatus},
		{Name: "O4_vote_window_non_negative", Check: voteWindowNonNegative},
		{Name: "O5_fairness_within_bounds", Check: fairnessWithinBounds},
		{Name: "O6_attached_user_points_at_live_match", Check: attachedUserPointsAtLiveMatch},
	}
}

// Run executes every oracle and returns the first failure's name and a
// description of the offending row, or an empty name if all pass.
func Run(e *matchcore.Engine) (string, string, error) {
	for _, o := range All() {
		if detail, ok := o.Check(e); !ok {
			return o.Name, detail, nil
		}
	}
	return "", "", nil
}

// noDoubleAttachment checks that no user id is attached (as a participant)
// to two distinct live matches at once.
func noDoubleAttachment(e *matchcore.Engine) (string, bool) {
	seen := make(map[string]string, 64)
	for _, m := range e.Matches().Live() {
		for _, uid := range [2]string{m.User1ID, m.User2ID} {
			if prior, ok := seen[uid]; ok && prior != m.MatchID {
				return fmt.Sprintf("user %s attached to both %s and %s", uid, prior, m.MatchID), false
			}
			seen[uid] = m.MatchID
		}
	}
	return "", true
}

// noSelfMatch checks no match ever paired a user with themselves.
func noSelfMatch(e *matchcore.Engine) (string, bool) {
	for _, m := range e.Matches().All() {
		if m.User1ID == m.User2ID {
			return fmt.Sprintf("match %s pairs %s with itself", m.MatchID, m.User1ID), false
		}
	}
	return "", true
}

// outcomeImpliesTerminalStatus checks that a resolved outcome always
// coincides with an ended or cancelled status, never active.
func outcomeImpliesTerminalStatus(e *matchcore.Engine) (string, bool) {
	for _, m := range e.Matches().All() {
		if m.Outcome != matchcore.OutcomeNone && m.Status == matchcore.MatchStatusActive {
			return fmt.Sprintf("match %s has outcome %s but status active", m.MatchID, m.Outcome), false
		}
	}
	return "", true
}

// voteWindowNonNegative checks the vote window's expiry never precedes its
// start.
func voteWindowNonNegative(e *matchcore.Engine) (string, bool) {
	for _, m := range e.Matches().All() {
		if m.VoteWindowStartedAt == nil || m.VoteWindowExpiresAt == nil {
			continue
		}
		if m.VoteWindowExpiresAt.Before(*m.VoteWindowStartedAt) {
			return fmt.Sprintf("match %s window expires before it starts", m.MatchID), false
		}
	}
	return "", true
}

// fairnessWithinBounds checks that no known user's fairness score is
// negative. The upper bound (the configured fairness cap) is not checked
// here.
func fairnessWithinBounds(e *matchcore.Engine) (string, bool) {
	for _, u := range e.Users().All() {
		if u.Fairness < 0 {
			return fmt.Sprintf("user %s has negative fairness %d", u.UserID, u.Fairness), false
		}
	}
	return "", true
}

// attachedUserPointsAtLiveMatch checks that any user whose state claims
// attachment to a match (matched, vote_window, video_date) actually names a
// match that is still live and includes them as a participant.
func attachedUserPointsAtLiveMatch(e *matchcore.Engine) (string, bool) {
	live := make(map[string]matchcore.MatchRecord, 64)
	for _, m := range e.Matches().Live() {
		live[m.MatchID] = m
	}

	for _, u := range e.Users().All() {
		switch u.State {
		case matchcore.StateMatched, matchcore.StateVoteWindow, matchcore.StateVideoDate:
		default:
			continue
		}
		m, ok := live[u.MatchID]
		if !ok {
			return fmt.Sprintf("user %s claims attachment to non-live match %s", u.UserID, u.MatchID), false
		}
		if m.User1ID != u.UserID && m.User2ID != u.UserID {
			return fmt.Sprintf("user %s claims match %s but is not a participant", u.UserID, u.MatchID), false
		}
	}
	return "", true
}
