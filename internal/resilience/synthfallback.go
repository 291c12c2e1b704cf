package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/lorespeaker/pkg/provider/tts"
)

// ErrAllBackendsFailed is returned when every registered backend failed or
// had an open breaker.
var ErrAllBackendsFailed = errors.New("all synthesis backends failed")

// backend pairs a named synthesizer with its circuit breaker.
type backend struct {
	name    string
	synth   tts.Synthesizer
	breaker *Breaker
}

// SynthFallback implements [tts.Synthesizer] across an ordered chain of
// backends. The first healthy backend wins; backends with an open breaker
// are skipped without a call.
type SynthFallback struct {
	backends []backend
	cfg      BreakerConfig
}

// Compile-time interface assertion.
var _ tts.Synthesizer = (*SynthFallback)(nil)

// NewSynthFallback creates a chain with primary as the preferred backend.
func NewSynthFallback(primaryName string, primary tts.Synthesizer, cfg BreakerConfig) *SynthFallback {
	sf := &SynthFallback{cfg: cfg}
	sf.add(primaryName, primary)
	return sf
}

// AddFallback appends a backend tried after all previously registered ones.
func (sf *SynthFallback) AddFallback(name string, synth tts.Synthesizer) {
	sf.add(name, synth)
}

func (sf *SynthFallback) add(name string, synth tts.Synthesizer) {
	cfg := sf.cfg
	cfg.Name = name
	sf.backends = append(sf.backends, backend{
		name:    name,
		synth:   synth,
		breaker: NewBreaker(cfg),
	})
}

// Synthesize renders text with the first healthy backend.
func (sf *SynthFallback) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	return execute(sf, func(s tts.Synthesizer) ([]byte, error) {
		return s.Synthesize(ctx, text, voiceID)
	})
}

// ListVoices returns the voice catalogue of the first healthy backend. The
// chain is not merged: mixing catalogues would hand out voice ids the
// currently active backend cannot speak.
func (sf *SynthFallback) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	return execute(sf, func(s tts.Synthesizer) ([]tts.Voice, error) {
		return s.ListVoices(ctx)
	})
}

// execute walks the chain until one backend succeeds. A function rather
// than a method because methods cannot introduce the result type parameter.
func execute[R any](sf *SynthFallback, fn func(tts.Synthesizer) (R, error)) (R, error) {
	var (
		zero    R
		lastErr error
	)
	for i := range sf.backends {
		be := &sf.backends[i]
		var result R
		err := be.breaker.Do(func() error {
			var callErr error
			result, callErr = fn(be.synth)
			return callErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrOpen) {
			slog.Debug("skipping synthesis backend, circuit open", "backend", be.name)
		} else {
			slog.Warn("synthesis backend failed, trying next", "backend", be.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllBackendsFailed, lastErr)
}
