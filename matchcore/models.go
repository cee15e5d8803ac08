package matchcore

import "time"

// UserState is the set of legal values for a user record's state machine.
type UserState string

const (
	StateIdle       UserState = "idle"
	StateWaiting    UserState = "waiting"
	StateMatched    UserState = "matched"
	StateVoteWindow UserState = "vote_window"
	StateVideoDate  UserState = "video_date"
)

// MatchStatus is the set of legal values for a match record's status.
type MatchStatus string

const (
	MatchStatusPaired    MatchStatus = "paired"
	MatchStatusActive    MatchStatus = "active"
	MatchStatusEnded     MatchStatus = "ended"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// Vote is a single participant's cast ballot. The zero value represents
// "not yet voted", distinct from either cast value.
type Vote string

const (
	VoteNone Vote = ""
	VoteYes  Vote = "yes"
	VotePass Vote = "pass"
)

// Outcome is the terminal classification of a resolved match.
type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomeBothYes  Outcome = "both_yes"
	OutcomeYesPass  Outcome = "yes_pass"
	OutcomePassPass Outcome = "pass_pass"
	OutcomeIdleIdle Outcome = "idle_idle"
)

// UserRecord is the single source of truth for one user's position in the
// matchmaking lifecycle. Every field is only ever mutated while the
// UserStore's mutex is held; see UserStore for which operations also take
// the user's advisory lock.
type UserRecord struct {
	UserID         string
	State          UserState
	MatchID        string
	PartnerID      string
	Fairness       int
	WaitingSince   time.Time
	LastActive     time.Time
	AcknowledgedAt *time.Time
}

// clone returns a value copy safe to hand to a caller outside the lock.
func (u UserRecord) clone() UserRecord {
	if u.AcknowledgedAt != nil {
		t := *u.AcknowledgedAt
		u.AcknowledgedAt = &t
	}
	return u
}

// MatchRecord is the single source of truth for one pairing's vote window
// and outcome. User ids are stored in stable (min, max) order so that the
// History Ledger and any diagnostic tooling can normalize on the same pair
// representation the match itself uses.
type MatchRecord struct {
	MatchID             string
	User1ID             string
	User2ID             string
	Status              MatchStatus
	VoteWindowStartedAt *time.Time
	VoteWindowExpiresAt *time.Time
	User1Vote           Vote
	User2Vote           Vote
	Outcome             Outcome
	CreatedAt           time.Time
	UpdatedAt           time.Time
	EndedAt             *time.Time
}

func (m MatchRecord) clone() MatchRecord {
	if m.VoteWindowStartedAt != nil {
		t := *m.VoteWindowStartedAt
		m.VoteWindowStartedAt = &t
	}
	if m.VoteWindowExpiresAt != nil {
		t := *m.VoteWindowExpiresAt
		m.VoteWindowExpiresAt = &t
	}
	if m.EndedAt != nil {
		t := *m.EndedAt
		m.EndedAt = &t
	}
	return m
}

// voteFor returns the vote slot belonging to userID, and reports whether
// userID actually participates in the match.
func (m MatchRecord) voteFor(userID string) (Vote, bool) {
	switch userID {
	case m.User1ID:
		return m.User1Vote, true
	case m.User2ID:
		return m.User2Vote, true
	default:
		return VoteNone, false
	}
}

// otherUser returns the participant id other than userID.
func (m MatchRecord) otherUser(userID string) string {
	if userID == m.User1ID {
		return m.User2ID
	}
	return m.User1ID
}

// normalizePair returns (min, max) lexicographic ordering of two user ids,
// the canonical form used by the History Ledger and match records alike.
func normalizePair(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}
