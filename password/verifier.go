package password

import "context"

// Match is the outcome of a verification attempt.
type Match struct {
	Matched bool
	// Pepper is the pepper that reproduced the digest. Only meaningful when Matched is true.
	Pepper string
	// Version classifies Pepper against the set the verifier was built with.
	Version PepperVersion
	// Fallback is true when the hinted pepper missed and a later scan found the match.
	Fallback bool
	// Attempts counts the Argon2 evaluations performed.
	Attempts int
}

// Verifier checks a prehashed password against a stored digest across a PepperSet.
type Verifier struct {
	peppers PepperSet
	pool    *Pool
}

// NewVerifier returns a Verifier over peppers. pool may be nil.
func NewVerifier(peppers PepperSet, pool *Pool) *Verifier {
	return &Verifier{peppers: peppers, pool: pool}
}

// Peppers returns the set this verifier scans.
func (v *Verifier) Peppers() PepperSet {
	return v.peppers
}

// Verify tries the pepper(s) named by hint first, then every remaining pepper, current first
// and then olds in recency order, stopping at the first match.
//
// A miss returns a zero Match with a nil error. A malformed digest returns a zero Match and an
// error wrapping ErrMalformedHash without running any Argon2 evaluation. ctx only bounds the wait
// for a hashing slot.
func (v *Verifier) Verify(ctx context.Context, digest, prehashed string, hint PepperVersion) (Match, error) {
	parsed, err := parsePHC(digest)
	if err != nil {
		return Match{}, err
	}

	var (
		result Match
		tried  = make(map[string]struct{}, v.peppers.Len())
	)

	try := func(pepper string, version PepperVersion) (bool, error) {
		if _, seen := tried[pepper]; seen {
			return false, nil
		}
		tried[pepper] = struct{}{}
		result.Attempts++

		var ok bool
		if err := v.pool.Do(ctx, func() error {
			ok = parsed.matches(Apply(pepper, prehashed))
			return nil
		}); err != nil {
			return false, err
		}
		if ok {
			result.Matched = true
			result.Pepper = pepper
			result.Version = version
		}
		return ok, nil
	}

	switch hint {
	case PepperCurrent:
		if ok, err := try(v.peppers.current, PepperCurrent); ok || err != nil {
			return result, err
		}
	case PepperOld:
		for _, old := range v.peppers.olds {
			if ok, err := try(old, PepperOld); ok || err != nil {
				return result, err
			}
		}
	}

	hinted := len(tried) > 0
	if ok, err := try(v.peppers.current, PepperCurrent); ok || err != nil {
		result.Fallback = ok && hinted
		return result, err
	}
	for _, old := range v.peppers.olds {
		if ok, err := try(old, PepperOld); ok || err != nil {
			result.Fallback = ok && hinted
			return result, err
		}
	}

	return Match{Attempts: result.Attempts}, nil
}
