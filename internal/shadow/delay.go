// Package shadow implements the deliberate response delays applied to throttled and failed
// authentication attempts.
//
// Waits park the calling goroutine on a timer; they never occupy an OS thread and always
// return early when the context ends.
package shadow

import (
	"context"
	"time"
)

// Waiter applies shadow delays. The zero value uses the real clock.
type Waiter struct {
	// After and Now are replaced in tests.
	After func(time.Duration) <-chan time.Time
	Now   func() time.Time
}

func (w Waiter) after(d time.Duration) <-chan time.Time {
	if w.After != nil {
		return w.After(d)
	}
	return time.After(d)
}

func (w Waiter) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// Wait blocks for d or until ctx is done, returning ctx.Err() in the latter case.
func (w Waiter) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-w.after(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start marks a decision point. The returned Floor waits out whatever remains of d when
// Wait is called, so work done in between overlaps the delay instead of adding to it.
func (w Waiter) Start(d time.Duration) Floor {
	return Floor{w: w, deadline: w.now().Add(d)}
}

// Floor is a minimum delay measured from a decision point.
type Floor struct {
	w        Waiter
	deadline time.Time
}

// Wait blocks until the floor's deadline or until ctx is done.
func (f Floor) Wait(ctx context.Context) error {
	return f.w.Wait(ctx, f.deadline.Sub(f.w.now()))
}
