package council

import (
	"errors"
	"testing"
)

func testRoster(names ...string) []Character {
	out := make([]Character, len(names))
	for i, n := range names {
		out[i] = Character{ID: i + 1, Name: n}
	}
	return out
}

func TestSelector_ChooseInitial(t *testing.T) {
	s := NewSelector(WithIntN(func(n int) int { return 0 }))

	ch, err := s.ChooseInitial(testRoster("Gordon", "Joy", "Blues"))
	if err != nil {
		t.Fatalf("ChooseInitial: %v", err)
	}
	if ch.Name != "Gordon" {
		t.Errorf("chosen = %q, want Gordon", ch.Name)
	}
}

func TestSelector_ChooseInitial_EmptyRoster(t *testing.T) {
	s := NewSelector()

	_, err := s.ChooseInitial(nil)
	if !errors.Is(err, ErrEmptyRoster) {
		t.Errorf("err = %v, want ErrEmptyRoster", err)
	}
}

func TestSelector_ChooseNext_NeverRepeatsPrevious(t *testing.T) {
	roster := testRoster("Gordon", "Joy", "Blues")
	s := NewSelector()

	previous := roster[1]
	for i := 0; i < 500; i++ {
		ch, err := s.ChooseNext(roster, previous)
		if err != nil {
			t.Fatalf("ChooseNext: %v", err)
		}
		if ch.Name == previous.Name {
			t.Fatalf("iteration %d: chose previous speaker %q", i, ch.Name)
		}
		previous = ch
	}
}

func TestSelector_ChooseNext_ExcludesExactlyPrevious(t *testing.T) {
	roster := testRoster("Gordon", "Joy", "Blues")
	// intn always picks index 0 in the candidate slice, so the candidate
	// ordering is observable.
	s := NewSelector(WithIntN(func(n int) int {
		if n != 2 {
			t.Fatalf("candidate count = %d, want 2", n)
		}
		return 0
	}))

	ch, err := s.ChooseNext(roster, roster[0])
	if err != nil {
		t.Fatalf("ChooseNext: %v", err)
	}
	if ch.Name != "Joy" {
		t.Errorf("chosen = %q, want Joy", ch.Name)
	}
}

func TestSelector_ChooseNext_RosterTooSmall(t *testing.T) {
	s := NewSelector()

	for _, roster := range [][]Character{nil, testRoster("Gordon")} {
		_, err := s.ChooseNext(roster, Character{Name: "Gordon"})
		if !errors.Is(err, ErrRosterTooSmall) {
			t.Errorf("roster len %d: err = %v, want ErrRosterTooSmall", len(roster), err)
		}
	}
}
