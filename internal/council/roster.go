// Package council implements the Quack Council turn-taking core: the
// character roster, the bounded conversation history store, speaker
// selection, turn generation, and the debate orchestrator that ties them
// together.
package council

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/quackcouncil/quackd/internal/config"
)

// fuzzyNameThreshold is the minimum Jaro-Winkler similarity for a by-name
// lookup to resolve. Speech-to-text mangles character names ("Gordan",
// "blues"), so exact matching alone would reject valid requests.
const fuzzyNameThreshold = 0.85

// Character is one configured council persona. Immutable after load.
type Character struct {
	// ID is the character's numeric identifier, derived from roster order
	// (1-based). It is the "duckId" exposed on the HTTP surface.
	ID int

	// Name is the character's unique display name.
	Name string

	// Prompt is the persona description injected into the LLM system prompt.
	Prompt string

	// Style is the speaking-style tag.
	Style string

	// VoiceID is the TTS provider-specific voice identifier.
	VoiceID string
}

// Roster is the immutable set of council characters, loaded once at startup.
// Ids are assigned from roster order so the id↔name mapping can never drift
// from the configured characters. Safe for concurrent use (read-only).
type Roster struct {
	characters []Character
	byName     map[string]Character
	byID       map[int]Character
}

// NewRoster builds a Roster from validated character configs.
func NewRoster(configs []config.CharacterConfig) *Roster {
	r := &Roster{
		characters: make([]Character, 0, len(configs)),
		byName:     make(map[string]Character, len(configs)),
		byID:       make(map[int]Character, len(configs)),
	}
	for i, cc := range configs {
		ch := Character{
			ID:      i + 1,
			Name:    cc.Name,
			Prompt:  cc.Prompt,
			Style:   cc.Style,
			VoiceID: cc.VoiceID,
		}
		r.characters = append(r.characters, ch)
		r.byName[strings.ToLower(ch.Name)] = ch
		r.byID[ch.ID] = ch
	}
	return r
}

// Characters returns a copy of the full roster in id order.
func (r *Roster) Characters() []Character {
	out := make([]Character, len(r.characters))
	copy(out, r.characters)
	return out
}

// Len returns the number of characters in the roster.
func (r *Roster) Len() int {
	return len(r.characters)
}

// ByID resolves a character by its numeric id.
// Returns [ErrUnknownCharacter] if the id is not in the roster.
func (r *Roster) ByID(id int) (Character, error) {
	ch, ok := r.byID[id]
	if !ok {
		return Character{}, ErrUnknownCharacter
	}
	return ch, nil
}

// ByName resolves a character by name, case-insensitively. When no exact
// match exists, the closest name by Jaro-Winkler similarity is used if it
// clears [fuzzyNameThreshold].
// Returns [ErrUnknownCharacter] if nothing resolves.
func (r *Roster) ByName(name string) (Character, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return Character{}, ErrUnknownCharacter
	}
	if ch, ok := r.byName[lower]; ok {
		return ch, nil
	}

	// Fuzzy fallback for transcribed or misspelled names.
	var (
		best      Character
		bestScore float64
	)
	for key, ch := range r.byName {
		if score := matchr.JaroWinkler(lower, key, false); score > bestScore {
			best, bestScore = ch, score
		}
	}
	if bestScore >= fuzzyNameThreshold {
		return best, nil
	}
	return Character{}, ErrUnknownCharacter
}
