package matchcore

import "context"

// MatchSnapshot is the read-only match view embedded in a StatusResult.
type MatchSnapshot struct {
	MatchID             string
	PartnerID           string
	Status              MatchStatus
	Outcome             Outcome
	User1Vote           Vote
	User2Vote           Vote
	VoteWindowStartedAt *string
	VoteWindowExpiresAt *string
	// PartnerFresh is a supplemental field (SPEC_FULL §5): true when the
	// partner's last_active is within the freshness window, letting
	// polling clients render a "partner may have disconnected" hint
	// before the Sweeper formally cancels the match.
	PartnerFresh bool
}

// StatusResult is the read-only view GetStatus assembles from the stores.
type StatusResult struct {
	UserID string
	State  UserState
	Match  *MatchSnapshot
}

// GetStatus implements the read-only external interface of §6, assembled
// without taking any advisory lock: readers tolerate stale snapshots by
// design (§5's shared resource policy).
func (e *Engine) GetStatus(ctx context.Context, userID string) (StatusResult, error) {
	user := e.users.Get(userID)
	result := StatusResult{UserID: userID, State: user.State}

	if user.MatchID == "" {
		return result, nil
	}

	match, err := e.matches.Get(user.MatchID)
	if err != nil {
		// The user thinks they're attached to a match that no longer
		// exists in the store; report bare state rather than erroring
		// the whole status read.
		return result, nil
	}

	now := e.clock.Now()
	partner := e.users.Get(match.otherUser(userID))
	snap := &MatchSnapshot{
		MatchID:      match.MatchID,
		PartnerID:    partner.UserID,
		Status:       match.Status,
		Outcome:      match.Outcome,
		User1Vote:    match.User1Vote,
		User2Vote:    match.User2Vote,
		PartnerFresh: e.users.IsFresh(partner, e.cfg, now),
	}
	if match.VoteWindowStartedAt != nil {
		s := match.VoteWindowStartedAt.UTC().Format(rfc3339Milli)
		snap.VoteWindowStartedAt = &s
	}
	if match.VoteWindowExpiresAt != nil {
		s := match.VoteWindowExpiresAt.UTC().Format(rfc3339Milli)
		snap.VoteWindowExpiresAt = &s
	}
	result.Match = snap
	return result, nil
}
