// Package testutil holds helpers for tests that wait on background work,
// such as a simulation driven by a ticker.
package testutil

import (
	"context"
	"fmt"
	"time"
)

// Poll checks condition every interval until it holds, timeout passes, or
// ctx is done.
func Poll(ctx context.Context, condition func() bool, timeout, interval time.Duration) error {
	_, err := WaitForState(ctx, condition, func(ok bool) bool { return ok }, timeout, interval)
	return err
}

// WaitForState reads getter every interval until predicate accepts the
// value, which is returned.
//
//	stats, err := WaitForState(ctx, colony.stats,
//		func(s colonyStats) bool { return s.Frame >= 10 },
//		5*time.Second,
//		time.Millisecond)
func WaitForState[T any](ctx context.Context, getter func() T, predicate func(T) bool, timeout, interval time.Duration) (T, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		state := getter()
		if predicate(state) {
			return state, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-deadline.C:
			var zero T
			return zero, fmt.Errorf("timeout waiting for target state (type %T, threshold: %v)", state, timeout)
		case <-tick.C:
		}
	}
}
