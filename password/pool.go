package password

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of concurrent memory-hard computations.
//
// Each Argon2 call allocates the profile's full memory cost, so an unbounded burst of
// logins would multiply that by the request count. A nil *Pool runs calls unbounded.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool returns a Pool admitting at most size concurrent computations.
// A size below one is treated as one.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Do runs fn once a slot is free. It returns ctx.Err() if ctx ends while waiting.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if p == nil || p.sem == nil {
		return fn()
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}
