// Package locks implements the sharded, non-blocking advisory lock table
// described for the matching core: every mutation of a shared record
// acquires a TryLock keyed on that record's id before touching it, mirroring
// the way the reference Postgres implementation relies on row-level FOR
// UPDATE locks for the same purpose.
package locks

import (
	"hash/fnv"
	"sync"
)

const shardCount = 256

// Table is a lazily-populated set of per-key mutexes, partitioned into a
// fixed number of shards so that unrelated keys rarely contend on the same
// housekeeping lock when the table itself grows (only keys that hash to the
// same shard do).
type Table struct {
	shards [shardCount]shard
}

type shard struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns an empty lock table.
func New() *Table {
	t := &Table{}
	for i := range t.shards {
		t.shards[i].locks = make(map[string]*sync.Mutex)
	}
	return t
}

func (t *Table) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &t.shards[h.Sum32()%shardCount]
}

func (t *Table) mutexFor(key string) *sync.Mutex {
	s := t.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	return m
}

// TryLock attempts to acquire the advisory lock for key without blocking.
// It reports whether the lock was acquired. Callers must call Unlock with
// the same key exactly once, and only when TryLock returned true.
func (t *Table) TryLock(key string) bool {
	return t.mutexFor(key).TryLock()
}

// Unlock releases the advisory lock for key.
func (t *Table) Unlock(key string) {
	t.mutexFor(key).Unlock()
}

// TryLockTwo acquires the locks for keyA and keyB in ascending lexicographic
// order to avoid the classic two-lock deadlock, exactly as the pair
// formation engine's lock-ordering rule requires. It reports whether both
// locks were acquired; if the second acquisition fails the first is
// released before returning.
func (t *Table) TryLockTwo(keyA, keyB string) bool {
	first, second := keyA, keyB
	if second < first {
		first, second = second, first
	}
	if !t.TryLock(first) {
		return false
	}
	if !t.TryLock(second) {
		t.Unlock(first)
		return false
	}
	return true
}

// UnlockTwo releases both locks acquired by a prior successful TryLockTwo.
// Order does not matter for release.
func (t *Table) UnlockTwo(keyA, keyB string) {
	t.Unlock(keyA)
	t.Unlock(keyB)
}
