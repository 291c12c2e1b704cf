// Package tts defines the Synthesizer interface for Text-to-Speech backends.
//
// A synthesizer wraps a speech service (e.g., ElevenLabs or OpenAI) and
// produces one complete encoded audio clip per call. Whole-clip synthesis is
// deliberate: clips are content-addressed in the on-disk audio cache, so the
// full byte stream must exist before playback starts.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Voice describes one entry of a provider's voice catalogue.
type Voice struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider identifies which backend this voice belongs to.
	Provider string

	// Labels holds provider-specific voice attributes (gender, age, accent,
	// category). Keys are lower-case.
	Labels map[string]string
}

// Gender returns the voice's gender label, or "" when the provider ships no
// gender metadata.
func (v Voice) Gender() string {
	return v.Labels["gender"]
}

// Synthesizer is the abstraction over any TTS backend.
type Synthesizer interface {
	// Synthesize renders text with the given provider voice and returns the
	// complete encoded audio clip (MP3 for the bundled providers). The call
	// blocks until synthesis finishes or ctx is done.
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)

	// ListVoices returns the provider's current voice catalogue. The list
	// may change between calls if the underlying service adds or removes
	// voices.
	ListVoices(ctx context.Context) ([]Voice, error)
}
