// Package gemini implements vision.Transcriber using Google's Gemini models.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/MrWong99/lorespeaker/pkg/provider/vision"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// Option is a functional option for configuring the Transcriber.
type Option func(*Transcriber)

// WithModel sets the Gemini model id (default [DefaultModel]).
func WithModel(model string) Option {
	return func(t *Transcriber) {
		if model != "" {
			t.model = model
		}
	}
}

// Transcriber implements vision.Transcriber backed by the Gemini API.
type Transcriber struct {
	client *genai.Client
	model  string
}

// Compile-time interface assertion.
var _ vision.Transcriber = (*Transcriber)(nil)

// New creates a new Gemini Transcriber. apiKey must be non-empty.
func New(ctx context.Context, apiKey string, opts ...Option) (*Transcriber, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: apiKey must not be empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	t := &Transcriber{client: client, model: DefaultModel}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Transcribe sends the image and prompt to the model and returns the text of
// the first candidate, trimmed of surrounding whitespace.
func (t *Transcriber) Transcribe(ctx context.Context, png []byte, prompt string) (string, error) {
	if len(png) == 0 {
		return "", errors.New("gemini: image must not be empty")
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(png, "image/png"),
		}, genai.RoleUser),
	}
	resp, err := t.client.Models.GenerateContent(ctx, t.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
