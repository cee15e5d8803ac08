package matchcore

import "context"

// AcknowledgeResult is the structured response for Acknowledge, matching
// the external interface's {window_open, expires_at, waiting_for_partner}
// shape.
type AcknowledgeResult struct {
	WindowOpen        bool
	ExpiresAt         *string
	WaitingForPartner bool
}

// Acknowledge implements the Voting Window Controller's Acknowledge
// operation (§4.6). Because this engine opens the vote window at match
// creation, acknowledgement never itself opens anything; it is informational
// telemetry recorded once per user and is idempotent on repeat calls.
func (e *Engine) Acknowledge(ctx context.Context, userID, matchID string) (AcknowledgeResult, error) {
	if _, err := e.users.Acknowledge(userID, matchID); err != nil {
		return AcknowledgeResult{}, err
	}

	match, err := e.matches.Get(matchID)
	if err != nil {
		return AcknowledgeResult{}, err
	}

	result := AcknowledgeResult{
		WindowOpen: match.Status == MatchStatusActive,
	}
	if match.VoteWindowExpiresAt != nil {
		s := match.VoteWindowExpiresAt.UTC().Format(rfc3339Milli)
		result.ExpiresAt = &s
	}
	partnerID := match.otherUser(userID)
	partner := e.users.Get(partnerID)
	result.WaitingForPartner = partner.AcknowledgedAt == nil
	return result, nil
}

const rfc3339Milli = "2006-01-02T15:04:05.000Z07:00"

// VoteResult is the structured response for RecordVote, matching the
// external interface's {resolved, outcome?, waiting_for_partner?} shape.
type VoteResult struct {
	Resolved          bool
	Outcome           Outcome
	WaitingForPartner bool
}

// RecordVote implements the Voting Window Controller's RecordVote
// operation (§4.6): legal while the match is active and unexpired,
// overwrite-allowed, pass is immediately terminal, yes waits for the
// partner. Resolution is serialized on the match's advisory lock so
// concurrent votes resolve exactly once.
func (e *Engine) RecordVote(ctx context.Context, userID, matchID string, vote Vote) (VoteResult, error) {
	if vote != VoteYes && vote != VotePass {
		return VoteResult{}, ErrInvalidTransition
	}

	if !e.matches.TryLockMatch(matchID) {
		return VoteResult{}, ErrLockBusy
	}
	defer e.matches.UnlockMatch(matchID)

	now := e.clock.Now()
	match, err := e.matches.RecordVote(matchID, userID, vote, now)
	if err != nil {
		if existing, getErr := e.matches.Get(matchID); getErr == nil && existing.Outcome != OutcomeNone {
			return VoteResult{Resolved: true, Outcome: existing.Outcome}, nil
		}
		return VoteResult{}, err
	}

	v1, v2 := match.User1Vote, match.User2Vote
	bothCast := v1 != VoteNone && v2 != VoteNone
	anyPass := vote == VotePass

	if !bothCast && !anyPass {
		return VoteResult{Resolved: false, WaitingForPartner: true}, nil
	}

	return e.resolveVoted(ctx, match, now)
}
