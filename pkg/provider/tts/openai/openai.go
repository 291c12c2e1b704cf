// Package openai provides an OpenAI-backed TTS synthesizer via the OpenAI
// speech API. It implements the tts.Synthesizer interface and is used as the
// fallback backend when ElevenLabs is unavailable.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/lorespeaker/pkg/provider/tts"
)

// defaultVoice is used when the requested voice id is not an OpenAI voice.
// In fallback operation the caller passes an ElevenLabs voice id; a stable
// default keeps the fallback audible instead of erroring out.
const defaultVoice = "alloy"

// catalog is the fixed OpenAI voice set. The speech API has no list
// endpoint, so the catalogue is static. Gender labels follow OpenAI's own
// voice descriptions and feed the same gender filter as ElevenLabs labels.
var catalog = []tts.Voice{
	{ID: "alloy", Name: "Alloy", Provider: "openai", Labels: map[string]string{"gender": "neutral"}},
	{ID: "echo", Name: "Echo", Provider: "openai", Labels: map[string]string{"gender": "male"}},
	{ID: "fable", Name: "Fable", Provider: "openai", Labels: map[string]string{"gender": "neutral", "accent": "british"}},
	{ID: "nova", Name: "Nova", Provider: "openai", Labels: map[string]string{"gender": "female"}},
	{ID: "onyx", Name: "Onyx", Provider: "openai", Labels: map[string]string{"gender": "male"}},
	{ID: "shimmer", Name: "Shimmer", Provider: "openai", Labels: map[string]string{"gender": "female"}},
}

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithModel sets the speech model (default "tts-1").
func WithModel(model string) Option {
	return func(p *Provider) {
		if model != "" {
			p.model = openai.SpeechModel(model)
		}
	}
}

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.extraOpts = append(p.extraOpts, option.WithBaseURL(url))
	}
}

// Provider implements tts.Synthesizer backed by the OpenAI speech API.
type Provider struct {
	client    openai.Client
	model     openai.SpeechModel
	extraOpts []option.RequestOption
}

// Compile-time interface assertion.
var _ tts.Synthesizer = (*Provider)(nil)

// New creates a new OpenAI Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai: apiKey must not be empty")
	}
	p := &Provider{model: openai.SpeechModelTTS1}
	for _, o := range opts {
		o(p)
	}
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, p.extraOpts...)
	p.client = openai.NewClient(reqOpts...)
	return p, nil
}

// Synthesize renders text and returns the MP3 bytes. Unknown voice ids map
// to [defaultVoice].
func (p *Provider) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	resp, err := p.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          p.model,
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(resolveVoice(voiceID)),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: synthesize: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("openai: empty audio response")
	}
	return audio, nil
}

// ListVoices returns the static OpenAI voice catalogue.
func (p *Provider) ListVoices(_ context.Context) ([]tts.Voice, error) {
	out := make([]tts.Voice, len(catalog))
	copy(out, catalog)
	return out, nil
}

// resolveVoice maps voiceID onto a valid OpenAI voice name.
func resolveVoice(voiceID string) string {
	for _, v := range catalog {
		if v.ID == voiceID {
			return voiceID
		}
	}
	return defaultVoice
}
