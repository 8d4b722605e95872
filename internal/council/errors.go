package council

import (
	"errors"
	"fmt"
)

// ErrRosterTooSmall is returned when a speaker choice needs an alternative to
// the previous speaker but the roster has fewer than 2 characters.
var ErrRosterTooSmall = errors.New("council: roster must contain at least 2 characters")

// ErrEmptyRoster is returned when an initial speaker choice is requested from
// an empty roster.
var ErrEmptyRoster = errors.New("council: roster is empty")

// ErrUnknownCharacter is returned when a character lookup by id or name does
// not resolve. Callers treat it as an expected condition, not a crash.
var ErrUnknownCharacter = errors.New("council: unknown character")

// CollaboratorError wraps a failure of an external collaborator (text
// generation, voice synthesis, or transcription). The failing stage is
// recorded so the host surface can report a descriptive message.
type CollaboratorError struct {
	// Stage is the pipeline stage that failed ("llm", "tts", "stt").
	Stage string

	// Err is the underlying provider error.
	Err error
}

// Error implements the error interface.
func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("council: %s collaborator: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying provider error.
func (e *CollaboratorError) Unwrap() error {
	return e.Err
}
