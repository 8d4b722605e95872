// Package mock provides a test double for the stt.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/quackcouncil/quackd/pkg/provider/stt"
)

// Compile-time check that *Provider satisfies [stt.Provider].
var _ stt.Provider = (*Provider)(nil)

// Provider is a mock implementation of stt.Provider.
// Text and Err are returned as-is; an empty Text with nil Err models the
// "nothing understood" result.
type Provider struct {
	mu sync.Mutex

	// Text is returned by Transcribe.
	Text string

	// Err, if non-nil, is returned by Transcribe instead of text.
	Err error

	// TranscribeCalls records the audio payload sizes of every invocation.
	TranscribeCalls [][]byte
}

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(_ context.Context, audio []byte) (string, error) {
	p.mu.Lock()
	p.TranscribeCalls = append(p.TranscribeCalls, audio)
	p.mu.Unlock()

	if p.Err != nil {
		return "", p.Err
	}
	return p.Text, nil
}
