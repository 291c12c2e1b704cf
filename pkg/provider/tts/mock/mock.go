// Package mock provides a test double for the tts.Synthesizer interface.
//
// Use Provider to return controlled audio bytes and voice catalogues and to
// verify the text and voice id that callers pass to the backend.
//
// Example:
//
//	p := &mock.Provider{
//	    SynthesizeResult: []byte("mp3"),
//	    ListVoicesResult: []tts.Voice{{ID: "v1", Name: "Alice"}},
//	}
//	audio, _ := p.Synthesize(ctx, "Hallo", "v1")
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lorespeaker/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Ctx is the context passed to Synthesize.
	Ctx context.Context
	// Text is the text passed to Synthesize.
	Text string
	// VoiceID is the voice id passed to Synthesize.
	VoiceID string
}

// ListVoicesCall records a single invocation of ListVoices.
type ListVoicesCall struct {
	// Ctx is the context passed to ListVoices.
	Ctx context.Context
}

// Provider is a mock implementation of tts.Synthesizer.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// SynthesizeResult is returned as the audio bytes from Synthesize.
	SynthesizeResult []byte

	// SynthesizeErr, if non-nil, is returned as the error from Synthesize.
	SynthesizeErr error

	// SynthesizeFunc, if non-nil, overrides SynthesizeResult/SynthesizeErr
	// entirely. The call is still recorded.
	SynthesizeFunc func(ctx context.Context, text, voiceID string) ([]byte, error)

	// ListVoicesResult is returned by ListVoices.
	ListVoicesResult []tts.Voice

	// ListVoicesErr, if non-nil, is returned as the error from ListVoices.
	ListVoicesErr error

	// --- Call records ---

	// SynthesizeCalls records every call to Synthesize in order.
	SynthesizeCalls []SynthesizeCall

	// ListVoicesCalls records every call to ListVoices in order.
	ListVoicesCalls []ListVoicesCall
}

// Synthesize records the call and returns the configured response.
func (p *Provider) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	p.mu.Lock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Ctx: ctx, Text: text, VoiceID: voiceID})
	fn := p.SynthesizeFunc
	result, err := p.SynthesizeResult, p.SynthesizeErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, voiceID)
	}
	return result, err
}

// ListVoices records the call and returns ListVoicesResult, ListVoicesErr.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ListVoicesCalls = append(p.ListVoicesCalls, ListVoicesCall{Ctx: ctx})
	return p.ListVoicesResult, p.ListVoicesErr
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = nil
	p.ListVoicesCalls = nil
}

// Ensure Provider implements tts.Synthesizer at compile time.
var _ tts.Synthesizer = (*Provider)(nil)
