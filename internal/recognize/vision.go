package recognize

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MrWong99/lorespeaker/pkg/provider/vision"
)

// transcriptionPrompt instructs the vision model to transcribe literally.
// Interface chrome and accented characters are called out explicitly because
// both are frequent failure modes on game screenshots.
const transcriptionPrompt = `Transcribe the text visible in this image exactly as written, word for word.
Return only the transcribed text, without any commentary, labels or formatting.
Ignore user interface elements such as buttons, icons, borders and item counters.
Pay close attention to German umlauts and accented characters (ä, ö, ü, ß, é).
If no readable text is visible, return an empty response.`

// visionErrorText stands in for a failed AI transcription. It is distinct
// from [NoTextFound] so callers can tell "nothing to read" from "reading
// failed".
const visionErrorText = "Fehler bei der KI-Texterkennung"

// defaultVisionTimeout bounds the network round-trip to the vision model.
const defaultVisionTimeout = 30 * time.Second

// Vision implements Recognizer by sending the unprocessed region crop to an
// AI vision model. Unlike Classical it must receive the raw colored crop:
// vision models use color and context that binarization destroys.
type Vision struct {
	transcriber vision.Transcriber
	timeout     time.Duration
	log         *slog.Logger
}

var _ Recognizer = (*Vision)(nil)

// NewVision creates a vision-model-backed recognizer.
func NewVision(t vision.Transcriber) *Vision {
	return &Vision{
		transcriber: t,
		timeout:     defaultVisionTimeout,
		log:         slog.With("component", "ai-ocr"),
	}
}

// Recognize transcribes img via the vision model. Provider failures are not
// fatal: they log a warning and yield an error-tagged result.
func (v *Vision) Recognize(ctx context.Context, img image.Image) (Result, error) {
	if img == nil {
		return Result{}, errors.New("recognize: image must not be nil")
	}
	data, err := encodePNG(img)
	if err != nil {
		return Result{}, fmt.Errorf("recognize: encode image: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	text, err := v.transcriber.Transcribe(ctx, data, transcriptionPrompt)
	if err != nil {
		v.log.Warn("vision transcription failed", "error", err)
		return Result{Text: visionErrorText, Source: SourceError}, nil
	}
	return finalize(text, SourceGemini), nil
}
