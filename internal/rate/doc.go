// Package rate provides the Redis-backed per-IP attempt budget used by login and
// registration.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. The first consumption past
// the budget re-arms the TTL with the block duration. Keys are <prefix>:<ip>, default
// prefix "lip".
//
// # What this package must NOT do
//
//   - Decide what happens to a throttled request (shadow delays live in internal/shadow).
//   - Be imported outside the credAuth module.
package rate
