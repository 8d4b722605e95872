// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., ElevenLabs) and
// presents a uniform batch interface: one utterance of text in, one complete
// raw PCM audio buffer out. Providers that stream internally must reassemble
// the chunks before returning, because callers persist whole playable
// artifacts rather than piping audio to a live output.
//
// Implementations must be safe for concurrent use. Multiple synthesis
// requests may run in parallel (one per council character).
package tts

import "context"

// VoiceProfile describes a synthesis voice configuration.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name, when known.
	Name string

	// Provider is the name of the TTS provider that owns this voice.
	Provider string

	// Metadata carries provider-specific labels (accent, age, category, ...).
	Metadata map[string]string
}

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize converts text into a single complete buffer of raw 16-bit
	// signed little-endian PCM audio in the requested voice. An empty text
	// input returns an empty buffer and no error.
	//
	// Returns an error if the voice is unknown, the provider cannot be
	// reached, or ctx is cancelled before synthesis completes.
	Synthesize(ctx context.Context, text string, voice VoiceProfile) ([]byte, error)

	// SampleRate reports the sample rate in Hz of the PCM audio produced by
	// Synthesize. Constant for the lifetime of the provider.
	SampleRate() int

	// ListVoices returns all voice profiles available from this provider. The
	// list reflects the provider's current catalogue and may change between
	// calls if the underlying service adds or removes voices.
	ListVoices(ctx context.Context) ([]VoiceProfile, error)
}
