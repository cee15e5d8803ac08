// Package actors implements the concurrent agents a stress run throws at a
// matchcore.Engine: spinners racing for pairs, voters racing to cast a
// ballot before the window expires, and heartbeaters keeping a user fresh.
// Each actor loops until stop is closed or ctx is cancelled, the same
// shape as the reference stress harness's Postgres-contention actors.
package actors

import (
	"context"
	"math/rand"
	"time"

	"matchcore/matchcore"
)

// Liveness reports whether an actor should currently act as connected.
// Chaos.DisconnectRandomly flips a victim's entry to simulate a dropped
// client without tearing down its goroutine, so the goroutine still exits
// cleanly on stop/ctx like every other actor.
type Liveness func() bool

// Spinner repeatedly calls Spin for userID, modeling a participant who
// keeps tapping "find me a match" — including while already paired, which
// Spin must treat as an idempotent heartbeat refresh rather than a reset.
// It goes quiet (but keeps its goroutine alive) once alive reports false.
func Spinner(ctx context.Context, engine *matchcore.Engine, userID string, alive Liveness, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if alive() {
			if err := engine.Spin(ctx, userID); err != nil && err != matchcore.ErrLockBusy {
				return err
			}
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// Heartbeater keeps userID fresh for the duration of the run, modeling a
// client that never drops its connection until alive reports false.
func Heartbeater(ctx context.Context, engine *matchcore.Engine, userID string, alive Liveness, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if alive() {
			engine.Heartbeat(ctx, userID)
		}
		time.Sleep(time.Duration(100+rand.Intn(100)) * time.Millisecond)
	}
}

// Voter polls userID's status and, once it observes an open vote window,
// makes one attempt to cast vote for that match id; an attempt rejected as
// busy or expired is not retried. It keeps
// polling afterward in case the user gets re-paired by an auto-respin. A
// disconnected actor (alive() false) stops casting new votes, letting the
// Sweeper's staleness path resolve its match instead.
func Voter(ctx context.Context, engine *matchcore.Engine, userID string, vote matchcore.Vote, alive Liveness, stop <-chan struct{}) error {
	voted := make(map[string]struct{}, 8)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		if alive() {
			status, err := engine.GetStatus(ctx, userID)
			if err == nil && status.Match != nil && status.State == matchcore.StateVoteWindow {
				if _, already := voted[status.Match.MatchID]; !already {
					if _, err := engine.RecordVote(ctx, userID, status.Match.MatchID, vote); err != nil &&
						err != matchcore.ErrLockBusy && err != matchcore.ErrWindowExpired {
						return err
					}
					voted[status.Match.MatchID] = struct{}{}
				}
			}
		}
		time.Sleep(time.Duration(15+rand.Intn(25)) * time.Millisecond)
	}
}
