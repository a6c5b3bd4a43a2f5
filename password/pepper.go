package password

import (
	"errors"
	"strings"
)

// PepperVersion is the hint stored alongside a digest recording which pepper produced it.
type PepperVersion int8

const (
	// PepperUnknown means no hint is available and every pepper must be scanned.
	PepperUnknown PepperVersion = -1
	// PepperCurrent marks a digest produced with the current pepper.
	PepperCurrent PepperVersion = 0
	// PepperOld marks a digest produced with one of the retired peppers.
	PepperOld PepperVersion = 1
)

func (v PepperVersion) String() string {
	switch v {
	case PepperCurrent:
		return "current"
	case PepperOld:
		return "old"
	default:
		return "unknown"
	}
}

var (
	// ErrEmptyOldPepper is returned when an old pepper entry is empty.
	ErrEmptyOldPepper = errors.New("old pepper must not be empty")
	// ErrOldPepperIsCurrent is returned when the current pepper also appears in the old list.
	ErrOldPepperIsCurrent = errors.New("old peppers must not contain the current pepper")
)

// PepperSet holds the current pepper and retired peppers, most recent first.
//
// An empty Current disables peppering. A PepperSet is read-only once built.
type PepperSet struct {
	current string
	olds    []string
}

// NewPepperSet validates and copies the given peppers.
func NewPepperSet(current string, olds []string) (PepperSet, error) {
	set := PepperSet{current: current, olds: make([]string, 0, len(olds))}
	for _, old := range olds {
		if old == "" {
			return PepperSet{}, ErrEmptyOldPepper
		}
		if old == current {
			return PepperSet{}, ErrOldPepperIsCurrent
		}
		set.olds = append(set.olds, old)
	}
	return set, nil
}

// ParsePepperList splits a comma-separated pepper list, trimming blanks and dropping empty entries.
func ParsePepperList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Current returns the pepper used for all new digests.
func (p PepperSet) Current() string {
	return p.current
}

// Olds returns a copy of the retired peppers in recency order.
func (p PepperSet) Olds() []string {
	return append([]string(nil), p.olds...)
}

// Len returns the number of distinct peppers a full scan will try.
func (p PepperSet) Len() int {
	return 1 + len(p.olds)
}

// Enabled reports whether a non-empty current pepper is configured.
func (p PepperSet) Enabled() bool {
	return p.current != ""
}

// Apply combines pepper and a prehashed password into the Argon2 input.
func Apply(pepper, prehashed string) string {
	return pepper + prehashed
}
