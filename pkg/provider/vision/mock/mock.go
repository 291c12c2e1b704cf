// Package mock provides a test double for the vision.Transcriber interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lorespeaker/pkg/provider/vision"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// PNG is a copy of the image bytes passed to Transcribe.
	PNG []byte
	// Prompt is the prompt passed to Transcribe.
	Prompt string
}

// Transcriber is a mock implementation of vision.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// TranscribeResult is returned as the text from Transcribe.
	TranscribeResult string

	// TranscribeErr, if non-nil, is returned as the error from Transcribe.
	TranscribeErr error

	// TranscribeCalls records every call to Transcribe in order.
	TranscribeCalls []TranscribeCall
}

// Transcribe records the call and returns the configured response.
func (t *Transcriber) Transcribe(ctx context.Context, png []byte, prompt string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pngCopy := make([]byte, len(png))
	copy(pngCopy, png)
	t.TranscribeCalls = append(t.TranscribeCalls, TranscribeCall{Ctx: ctx, PNG: pngCopy, Prompt: prompt})
	return t.TranscribeResult, t.TranscribeErr
}

// Reset clears all recorded calls. Thread-safe.
func (t *Transcriber) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.TranscribeCalls = nil
}

// Ensure Transcriber implements vision.Transcriber at compile time.
var _ vision.Transcriber = (*Transcriber)(nil)
