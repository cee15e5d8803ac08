// Package chaos injects disconnects into a running stress test, the
// in-memory analogue of the reference harness's random backend
// termination: instead of killing a Postgres connection, it silences one
// live participant's heartbeats so the Sweeper's staleness detection gets
// exercised under real concurrency.
package chaos

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// LivenessSet tracks which actor ids are currently simulated-connected.
// Every id starts alive; DisconnectRandomly flips entries to disconnected
// over time and never reconnects them, modeling a permanent client drop.
type LivenessSet struct {
	mu    sync.RWMutex
	alive map[string]bool
}

// NewLivenessSet returns a set with every id marked alive.
func NewLivenessSet(ids []string) *LivenessSet {
	alive := make(map[string]bool, len(ids))
	for _, id := range ids {
		alive[id] = true
	}
	return &LivenessSet{alive: alive}
}

// Alive returns a closure suitable as actors.Liveness for id.
func (s *LivenessSet) Alive(id string) func() bool {
	return func() bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.alive[id]
	}
}

// DisconnectRandomly periodically marks one still-alive id as disconnected,
// simulating a dropped client mid-run.
func (s *LivenessSet) DisconnectRandomly(ctx context.Context, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if rand.Intn(5) != 0 {
				continue
			}
			s.disconnectOne()
		}
	}
}

func (s *LivenessSet) disconnectOne() {
	s.mu.Lock()
	defer s.mu.Unlock()
	candidates := make([]string, 0, len(s.alive))
	for id, alive := range s.alive {
		if alive {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return
	}
	s.alive[candidates[rand.Intn(len(candidates))]] = false
}
