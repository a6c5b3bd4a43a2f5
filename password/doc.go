// Package password implements the credential primitives: prehashing, peppering, Argon2id
// encoding and the rotation policy.
//
// # Pipeline
//
// A raw password is never fed to Argon2 directly:
//
//	input  = pepper || hex(sha256(raw))
//	digest = $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The [Verifier] walks a [PepperSet] so that retired peppers keep verifying until every
// account has logged in once under the current pepper. [RehashPolicy] decides when a
// verified digest is re-encoded: pepper mismatch, parameters differing from the target
// profile, or a digest older than the rotation period.
//
// # What this package must NOT do
//
//   - Store or retrieve digests.
//   - Import any other credAuth package.
//   - Log passwords, prehashes, peppers or digests.
package password
