package password

import "time"

// DefaultRotationPeriod is the maximum age of a digest before it is re-encoded on login.
const DefaultRotationPeriod = 30 * 24 * time.Hour

// RehashReasons records which triggers fired for a verified digest.
type RehashReasons struct {
	PepperMismatch bool
	WeakParams     bool
	Stale          bool
	// ParamsErr is set when the stored digest could not be inspected; WeakParams is true then.
	ParamsErr error
}

// Any reports whether at least one trigger fired.
func (r RehashReasons) Any() bool {
	return r.PepperMismatch || r.WeakParams || r.Stale
}

// RehashPolicy decides whether a successfully verified digest must be re-encoded.
type RehashPolicy struct {
	Target Config
	Period time.Duration
}

// Evaluate applies the policy to a verified match.
//
// lastRehash is the zero time when the account has never been rotated, which always counts
// as stale.
func (p RehashPolicy) Evaluate(match Match, currentPepper, digest string, lastRehash, now time.Time) RehashReasons {
	var r RehashReasons

	r.PepperMismatch = match.Pepper != currentPepper

	needs, err := NeedsRehash(digest, p.Target)
	if err != nil {
		r.ParamsErr = err
		needs = true
	}
	r.WeakParams = needs

	period := p.Period
	if period <= 0 {
		period = DefaultRotationPeriod
	}
	r.Stale = lastRehash.IsZero() || now.Sub(lastRehash) >= period

	return r
}
