package council

import (
	"math/rand/v2"
)

// Selector chooses which character speaks next. The randomness source is
// injectable so tests can drive deterministic picks; the default draws from
// the process-wide math/rand/v2 generator.
type Selector struct {
	intn func(n int) int
}

// SelectorOption configures a [Selector] during construction.
type SelectorOption func(*Selector)

// WithIntN replaces the randomness source. fn must return a value in [0, n).
func WithIntN(fn func(n int) int) SelectorOption {
	return func(s *Selector) {
		s.intn = fn
	}
}

// NewSelector creates a Selector with the process-wide randomness source.
func NewSelector(opts ...SelectorOption) *Selector {
	s := &Selector{intn: rand.IntN}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ChooseInitial picks a uniform-random character from the full roster.
// Returns [ErrEmptyRoster] for an empty roster.
func (s *Selector) ChooseInitial(roster []Character) (Character, error) {
	if len(roster) == 0 {
		return Character{}, ErrEmptyRoster
	}
	return roster[s.intn(len(roster))], nil
}

// ChooseNext picks a uniform-random character from the roster excluding
// exactly the immediately preceding speaker, so no character ever speaks
// twice in a row. Returns [ErrRosterTooSmall] for rosters with fewer than 2
// characters, where the exclusion would leave no candidates.
func (s *Selector) ChooseNext(roster []Character, previous Character) (Character, error) {
	if len(roster) < 2 {
		return Character{}, ErrRosterTooSmall
	}
	candidates := make([]Character, 0, len(roster)-1)
	for _, ch := range roster {
		if ch.Name != previous.Name {
			candidates = append(candidates, ch)
		}
	}
	return candidates[s.intn(len(candidates))], nil
}
