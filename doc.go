// Package credAuth authenticates users by email and password and issues a short-lived
// signed token on success.
//
// Passwords are pre-hashed with SHA-256, combined with a server-side pepper and encoded with
// Argon2id. Peppers can be rotated: retired peppers stay accepted and digests that used one
// are re-encoded on the next successful login, as are digests weaker than the strong profile
// or older than the rotation period.
//
// Login attempts spend a per-IP budget held in Redis. A blocked IP is answered only after a
// long shadow delay; a failed attempt after a short one, identical for unknown emails and
// wrong passwords. Repeated failures on one account trigger a one-shot owner alert.
//
// Engine methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// credAuth is the public surface: [Engine], [Builder], [Config] and value types. Flow
// orchestration, throttling, shadow delays and audit dispatch live under internal/.
// Persistence is supplied through [UserStore]; see userstore/memory and userstore/postgres.
package credAuth
