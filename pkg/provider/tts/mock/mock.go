// Package mock provides a test double for the tts.Provider interface.
//
// Use Provider in unit tests to feed deterministic PCM buffers into the
// synthesis fan-out and to inject per-call failures or delays.
package mock

import (
	"context"
	"sync"

	"github.com/quackcouncil/quackd/pkg/provider/tts"
)

// Compile-time check that *Provider satisfies [tts.Provider].
var _ tts.Provider = (*Provider)(nil)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Text is the text passed to Synthesize.
	Text string
	// Voice is the voice profile passed to Synthesize.
	Voice tts.VoiceProfile
}

// Provider is a mock implementation of tts.Provider.
//
// By default Synthesize returns Audio (or a small non-empty buffer when Audio
// is nil) for every call. Set SynthesizeFunc to control behaviour per call —
// e.g., to fail for one ordinal or to sleep and exercise completion-order
// jitter.
type Provider struct {
	mu sync.Mutex

	// Audio is the PCM buffer returned by Synthesize when SynthesizeFunc is nil.
	Audio []byte

	// Err, if non-nil, is returned by Synthesize instead of audio.
	Err error

	// Rate is the value reported by SampleRate. Defaults to 16000 when zero.
	Rate int

	// Voices is returned by ListVoices.
	Voices []tts.VoiceProfile

	// ListErr, if non-nil, is returned by ListVoices.
	ListErr error

	// SynthesizeFunc, if non-nil, overrides the canned behaviour entirely.
	SynthesizeFunc func(ctx context.Context, text string, voice tts.VoiceProfile) ([]byte, error)

	// SynthesizeCalls records every invocation of Synthesize in order.
	SynthesizeCalls []SynthesizeCall
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) ([]byte, error) {
	p.mu.Lock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Text: text, Voice: voice})
	fn := p.SynthesizeFunc
	audio, err := p.Audio, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, voice)
	}
	if err != nil {
		return nil, err
	}
	if audio == nil {
		audio = []byte{0, 0, 0, 0}
	}
	return audio, nil
}

// SampleRate implements tts.Provider.
func (p *Provider) SampleRate() int {
	if p.Rate > 0 {
		return p.Rate
	}
	return 16000
}

// ListVoices implements tts.Provider.
func (p *Provider) ListVoices(_ context.Context) ([]tts.VoiceProfile, error) {
	if p.ListErr != nil {
		return nil, p.ListErr
	}
	return p.Voices, nil
}

// Calls returns a snapshot of all recorded Synthesize invocations.
func (p *Provider) Calls() []SynthesizeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SynthesizeCall, len(p.SynthesizeCalls))
	copy(out, p.SynthesizeCalls)
	return out
}
