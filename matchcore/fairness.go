package matchcore

import (
	"time"

	"golang.org/x/sync/errgroup"
)

// fairnessRefreshConcurrency bounds how many waiting users' fairness scores
// are recomputed in parallel per Sweep cycle. Each recomputation is a pure
// function plus one SetFairness call, so the bound exists only to keep a
// very large waiting population from spraying goroutines, not because the
// work is expensive.
const fairnessRefreshConcurrency = 16

// fairnessScore is the pure step function mapping a wait duration to a
// fairness boost, with thresholds {20s, 60s, 120s, 300s} and values
// {0, 5, 10, 15, 20}. Monotone non-decreasing, hard-capped at 20
// regardless of the Config's FairnessCap (see clampFairness for outcome
// boosts, which do honor a configurable cap).
func fairnessScore(wait time.Duration) int {
	switch {
	case wait < 20*time.Second:
		return 0
	case wait < 60*time.Second:
		return 5
	case wait < 120*time.Second:
		return 10
	case wait < 300*time.Second:
		return 15
	default:
		return 20
	}
}

// RefreshFairness recomputes and stores the fairness score for every
// currently-waiting user, based on elapsed wait time at `now`. This is
// invoked by the Sweeper's step 4 and may also be called before a
// scheduling cycle, per §4.3's "invoked on the full waiting population
// before each scheduling cycle" contract.
func (e *Engine) RefreshFairness(now time.Time) {
	g := new(errgroup.Group)
	g.SetLimit(fairnessRefreshConcurrency)
	for _, r := range e.users.Waiting() {
		r := r
		g.Go(func() error {
			score := fairnessScore(now.Sub(r.WaitingSince))
			if score > r.Fairness {
				e.users.SetFairness(r.UserID, score, e.cfg.FairnessCap)
			}
			return nil
		})
	}
	_ = g.Wait()
}
