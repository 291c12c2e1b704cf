// Package vision defines the interface for AI image transcription backends.
//
// A Transcriber reads the visible text out of an image. Unlike classical OCR
// it receives the raw screenshot crop without any preprocessing, because
// vision models handle color, anti-aliasing and decorative fonts on their
// own and preprocessing tends to destroy information they use.
package vision

import "context"

// Transcriber extracts visible text from an encoded image.
type Transcriber interface {
	// Transcribe returns the text visible in the PNG-encoded image. The
	// prompt instructs the model how to transcribe; implementations pass it
	// verbatim. An empty result with nil error means the model saw no text.
	Transcribe(ctx context.Context, png []byte, prompt string) (string, error)
}
