package rate

import "errors"

var (
	// ErrRateLimited is returned once an IP has spent its budget for the window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps any failure of the Redis backend.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
