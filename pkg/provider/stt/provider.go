// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a batch transcription service (e.g., a local
// whisper-server instance) and converts a complete uploaded audio blob into
// text. "Nothing understood" is a valid result, not an error: providers
// return an empty string when recognition fails but transport succeeded, so
// callers can distinguish a silent recording from a broken dependency.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe converts a complete audio recording into text. audio is an
	// encoded container (WAV and similar widely supported formats; consult the
	// implementation) rather than raw PCM.
	//
	// An empty string with a nil error means the audio was processed but no
	// speech was recognised. A non-nil error means the provider itself failed
	// (transport, authentication, or ctx cancellation).
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
