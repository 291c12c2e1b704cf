// Package recognize turns a prepared dialog image into text.
//
// Two engines implement the Recognizer interface: Classical runs a local
// Tesseract OCR pass over the binarized image, Vision sends the raw crop to
// an AI vision model. Which one runs is decided per pipeline run from
// configuration, so a settings change takes effect without restart.
//
// Every result carries a Source tag so callers can tell engine output,
// pipeline-level not-found and provider failures apart. No Recognizer ever
// returns a raw empty string: empty or too-short output collapses to the
// [NoTextFound] sentinel.
package recognize

import (
	"context"
	"image"
	"strings"
)

// Source identifies where a recognition result came from.
type Source string

const (
	// SourceTesseract marks text produced by the local OCR engine.
	SourceTesseract Source = "tesseract"
	// SourceGemini marks text produced by the AI vision engine.
	SourceGemini Source = "gemini"
	// SourceSystem marks pipeline-generated results such as the not-found
	// sentinel, regardless of which stage failed to find text.
	SourceSystem Source = "system"
	// SourceError marks results standing in for a provider failure.
	SourceError Source = "error"
)

// NoTextFound is the canonical sentinel returned whenever no usable text
// could be extracted. Downstream consumers compare against it instead of
// checking for empty strings.
const NoTextFound = "Kein Text gefunden"

// minTextLen is the minimum number of runes a recognition result must have
// to count as real text. Shorter output is OCR noise in practice.
const minTextLen = 5

// Result is a recognized text with its provenance.
type Result struct {
	Text   string
	Source Source
}

// NotFound reports whether r carries the not-found sentinel.
func (r Result) NotFound() bool {
	return r.Text == NoTextFound
}

// Recognizer extracts text from a dialog image. Implementations convert
// their own failures into sentinel or error-tagged results; a non-nil error
// is reserved for programming mistakes such as a nil image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (Result, error)
}

// Normalize collapses whitespace runs to single spaces and trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// finalize normalizes raw engine output and tags it. Empty or too-short
// text collapses to the sentinel with [SourceSystem].
func finalize(raw string, src Source) Result {
	text := Normalize(raw)
	if len([]rune(text)) < minTextLen {
		return Result{Text: NoTextFound, Source: SourceSystem}
	}
	return Result{Text: text, Source: src}
}
