package matchcore

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MatchStore is the single source of truth for match records, the
// in-process analogue of the reference implementation's matches table.
// Like UserStore, mutation always happens while the match's advisory lock
// is held.
type MatchStore struct {
	locks *lockTable
	clock Clock

	mu      sync.RWMutex
	records map[string]*MatchRecord
}

// NewMatchStore returns an empty match store.
func NewMatchStore(clock Clock, locks *lockTable) *MatchStore {
	return &MatchStore{
		locks:   locks,
		clock:   clock,
		records: make(map[string]*MatchRecord),
	}
}

// Get returns a snapshot of the match record, or ErrNotFound.
func (s *MatchStore) Get(matchID string) (MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[matchID]
	if !ok {
		return MatchRecord{}, ErrNotFound
	}
	return r.clone(), nil
}

// Create inserts a new match already promoted to active with the vote
// window open, per the engine's "insert in paired, simultaneously promote
// to active" step. user1/user2 are stored in stable (min, max) order.
func (s *MatchStore) Create(user1, user2 string, windowStart, windowExpires time.Time) MatchRecord {
	lo, hi := normalizePair(user1, user2)
	now := s.clock.Now()
	rec := &MatchRecord{
		MatchID:             uuid.NewString(),
		User1ID:             lo,
		User2ID:             hi,
		Status:              MatchStatusActive,
		VoteWindowStartedAt: &windowStart,
		VoteWindowExpiresAt: &windowExpires,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	s.mu.Lock()
	s.records[rec.MatchID] = rec
	s.mu.Unlock()

	return rec.clone()
}

// RecordVote overwrites userID's vote on matchID, subject to the match
// being active and the window not yet expired. Returns the updated
// snapshot. The caller must already hold the match's advisory lock.
func (s *MatchStore) RecordVote(matchID, userID string, vote Vote, now time.Time) (MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[matchID]
	if !ok {
		return MatchRecord{}, ErrNotFound
	}
	if r.Status != MatchStatusActive {
		return r.clone(), ErrInvalidTransition
	}
	if r.VoteWindowExpiresAt == nil || !now.Before(*r.VoteWindowExpiresAt) {
		return r.clone(), ErrWindowExpired
	}
	switch userID {
	case r.User1ID:
		r.User1Vote = vote
	case r.User2ID:
		r.User2Vote = vote
	default:
		return MatchRecord{}, ErrNotFound
	}
	r.UpdatedAt = now
	return r.clone(), nil
}

// Resolve sets the terminal outcome and ends the match. It is a no-op
// (returns the existing record, ErrInvalidTransition) if the match is
// already resolved, guaranteeing outcome immutability.
func (s *MatchStore) Resolve(matchID string, outcome Outcome, cancelled bool, now time.Time) (MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[matchID]
	if !ok {
		return MatchRecord{}, ErrNotFound
	}
	if r.Outcome != OutcomeNone {
		return r.clone(), ErrInvalidTransition
	}
	r.Outcome = outcome
	if cancelled {
		r.Status = MatchStatusCancelled
	} else {
		r.Status = MatchStatusEnded
	}
	r.UpdatedAt = now
	r.EndedAt = &now
	return r.clone(), nil
}

// ActiveExpired returns snapshots of every active match whose vote window
// has expired with no outcome recorded yet — the Sweeper's step 1 input.
func (s *MatchStore) ActiveExpired(now time.Time) []MatchRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []MatchRecord
	for _, r := range s.records {
		if r.Status == MatchStatusActive && r.Outcome == OutcomeNone &&
			r.VoteWindowExpiresAt != nil && !now.Before(*r.VoteWindowExpiresAt) {
			out = append(out, r.clone())
		}
	}
	return out
}

// Live returns snapshots of every match still in paired or active status,
// the Sweeper's step 2 input for stale-participant detection.
func (s *MatchStore) Live() []MatchRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []MatchRecord
	for _, r := range s.records {
		if r.Status == MatchStatusPaired || r.Status == MatchStatusActive {
			out = append(out, r.clone())
		}
	}
	return out
}

// All returns snapshots of every match record regardless of status, for
// diagnostic and invariant-checking callers.
func (s *MatchStore) All() []MatchRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MatchRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.clone())
	}
	return out
}

// TryLockMatch attempts the non-blocking advisory lock for matchID.
func (s *MatchStore) TryLockMatch(matchID string) bool {
	return s.locks.TryLock(matchKey(matchID))
}

// UnlockMatch releases the advisory lock for matchID.
func (s *MatchStore) UnlockMatch(matchID string) {
	s.locks.Unlock(matchKey(matchID))
}

func matchKey(matchID string) string { return fmt.Sprintf("match:%s", matchID) }
