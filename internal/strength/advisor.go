// Package strength provides advisory passphrase scoring. Advice is
// purely informational: it is shown to the user before encryption
// and never gates whether encryption proceeds. Callers must check
// Available and treat an unavailable advisor as "no advice".
package strength

import (
	"math"
	"strings"
	"unicode"
)

// Score buckets, weakest to strongest.
const (
	ScoreVeryWeak = iota
	ScoreWeak
	ScoreFair
	ScoreStrong
	ScoreVeryStrong
)

// Advice is the result of assessing a passphrase.
type Advice struct {
	Score   int
	Label   string
	Warning string
}

// Advisor assesses passphrase strength. Implementations may be
// remote services; Available lets callers degrade gracefully when
// the advisor cannot be reached.
type Advisor interface {
	Available() bool
	Assess(passphrase string) Advice
}

// Estimator is a local entropy-class estimator. It is deliberately
// rough: its job is to warn about obviously weak passphrases, not to
// measure real-world guessability.
type Estimator struct{}

// NewEstimator creates a local advisor.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Available always reports true for the local estimator.
func (e *Estimator) Available() bool {
	return true
}

// Assess estimates the entropy class of a passphrase.
func (e *Estimator) Assess(passphrase string) Advice {
	bits := entropyBits(passphrase)

	switch {
	case bits < 28:
		return Advice{
			Score:   ScoreVeryWeak,
			Label:   "very weak",
			Warning: "this passphrase could be guessed almost instantly",
		}
	case bits < 40:
		return Advice{
			Score:   ScoreWeak,
			Label:   "weak",
			Warning: "a longer passphrase with mixed character classes is strongly recommended",
		}
	case bits < 60:
		return Advice{
			Score:   ScoreFair,
			Label:   "fair",
			Warning: "consider adding length; there is no recovery if it is guessed or lost",
		}
	case bits < 80:
		return Advice{Score: ScoreStrong, Label: "strong"}
	default:
		return Advice{Score: ScoreVeryStrong, Label: "very strong"}
	}
}

// entropyBits estimates log2 of the search space from the character
// classes in use and the length, discounted for repetition.
func entropyBits(s string) float64 {
	if s == "" {
		return 0
	}

	var lower, upper, digit, other bool
	unique := make(map[rune]struct{})

	for _, r := range s {
		unique[r] = struct{}{}
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			other = true
		}
	}

	var space float64
	if lower {
		space += 26
	}
	if upper {
		space += 26
	}
	if digit {
		space += 10
	}
	if other {
		space += 33
	}

	length := float64(len([]rune(s)))

	// Heavy repetition shrinks the effective length.
	distinct := float64(len(unique))
	if distinct < length/2 {
		length = length/2 + distinct/2
	}

	// Runs of one repeated character barely count.
	if isSingleRun(s) {
		length = math.Min(length, 2)
	}

	return length * math.Log2(space)
}

func isSingleRun(s string) bool {
	runes := []rune(s)
	if len(runes) == 0 {
		return false
	}
	return strings.Count(s, string(runes[0]))*len(string(runes[0])) == len(s)
}
