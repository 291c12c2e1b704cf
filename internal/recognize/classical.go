package recognize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// minWhitelistLen is the threshold below which a configured character
// whitelist is ignored. Very short whitelists cripple recognition more than
// they help, so they are treated as "disabled".
const minWhitelistLen = 5

// Classical implements Recognizer using a local Tesseract installation.
// It expects the binarized TextIsolator output, not a raw screenshot crop.
type Classical struct {
	language  string
	psm       int
	whitelist string
	log       *slog.Logger
}

var _ Recognizer = (*Classical)(nil)

// NewClassical creates a Tesseract-backed recognizer. language is a
// "+"-separated list like "deu+eng", psm the Tesseract page segmentation
// mode, whitelist an optional character whitelist (ignored when shorter
// than six characters).
func NewClassical(language string, psm int, whitelist string) *Classical {
	return &Classical{
		language:  language,
		psm:       psm,
		whitelist: whitelist,
		log:       slog.With("component", "ocr"),
	}
}

// Recognize runs Tesseract over img. OCR failures are not fatal: they log a
// warning and yield the not-found sentinel, so a flaky native dependency
// cannot take the pipeline down.
func (c *Classical) Recognize(ctx context.Context, img image.Image) (Result, error) {
	if img == nil {
		return Result{}, errors.New("recognize: image must not be nil")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("recognize: %w", err)
	}

	data, err := encodePNG(img)
	if err != nil {
		return Result{}, fmt.Errorf("recognize: encode image: %w", err)
	}

	text, err := c.runTesseract(data)
	if err != nil {
		c.log.Warn("tesseract failed, treating as no text", "error", err)
		return Result{Text: NoTextFound, Source: SourceSystem}, nil
	}
	return finalize(text, SourceTesseract), nil
}

func (c *Classical) runTesseract(png []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(splitLanguages(c.language)...); err != nil {
		return "", fmt.Errorf("set language %q: %w", c.language, err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(c.psm)); err != nil {
		return "", fmt.Errorf("set page segmentation mode %d: %w", c.psm, err)
	}
	if whitelistEnabled(c.whitelist) {
		if err := client.SetVariable(gosseract.TESSEDIT_CHAR_WHITELIST, c.whitelist); err != nil {
			return "", fmt.Errorf("set whitelist: %w", err)
		}
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return text, nil
}

// splitLanguages turns "deu+eng" into the language list Tesseract expects.
func splitLanguages(language string) []string {
	var out []string
	for _, lang := range strings.Split(language, "+") {
		if lang = strings.TrimSpace(lang); lang != "" {
			out = append(out, lang)
		}
	}
	if len(out) == 0 {
		out = []string{"eng"}
	}
	return out
}

// whitelistEnabled reports whether wl is long enough to be applied.
func whitelistEnabled(wl string) bool {
	return len([]rune(wl)) > minWhitelistLen
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
