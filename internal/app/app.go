// Package app wires all Lorespeaker subsystems into a running application.
//
// New creates and connects the capture, localization, recognition, voice
// and playback subsystems from configuration, Run serves the HTTP control
// API and background maintenance tasks until the context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/lorespeaker/internal/audiocache"
	"github.com/MrWong99/lorespeaker/internal/capture"
	"github.com/MrWong99/lorespeaker/internal/config"
	"github.com/MrWong99/lorespeaker/internal/health"
	"github.com/MrWong99/lorespeaker/internal/locate"
	"github.com/MrWong99/lorespeaker/internal/npclog"
	"github.com/MrWong99/lorespeaker/internal/observe"
	"github.com/MrWong99/lorespeaker/internal/pipeline"
	"github.com/MrWong99/lorespeaker/internal/playback"
	"github.com/MrWong99/lorespeaker/internal/resilience"
	"github.com/MrWong99/lorespeaker/internal/voice"
	"github.com/MrWong99/lorespeaker/pkg/provider/tts"
	"github.com/MrWong99/lorespeaker/pkg/provider/tts/elevenlabs"
	openaitts "github.com/MrWong99/lorespeaker/pkg/provider/tts/openai"
	"github.com/MrWong99/lorespeaker/pkg/provider/vision"
	"github.com/MrWong99/lorespeaker/pkg/provider/vision/gemini"
)

// sweepInterval is how often the audio cache budget is enforced in the
// background.
const sweepInterval = 10 * time.Minute

// shutdownTimeout bounds the graceful HTTP server shutdown.
const shutdownTimeout = 15 * time.Second

// ErrNoSynthesizer is returned by the placeholder backend installed when no
// TTS API key is configured. Text-only operation still works.
var ErrNoSynthesizer = errors.New("no TTS backend configured")

// App owns all subsystem lifetimes.
type App struct {
	server

	store  *config.Store
	cache  *audiocache.Cache
	player *playback.Player
	srv    *http.Server
	log    *slog.Logger
}

// New creates an App by wiring all subsystems from the configuration
// snapshot in store.
func New(ctx context.Context, store *config.Store) (*App, error) {
	snap := store.Snapshot()
	log := slog.With("component", "app")

	// Region localization. Missing templates disable localization instead
	// of failing startup; the pipeline then reports "no text found" until
	// templates are calibrated and reloaded.
	locator := locate.NewLocator(nil)
	if err := locator.Reload(snap.TemplatesDir); err != nil {
		log.Warn("region localization disabled until templates are calibrated",
			"dir", snap.TemplatesDir, "error", err)
	}

	synth, err := buildSynthesizer(snap)
	if err != nil {
		return nil, fmt.Errorf("app: build synthesizer: %w", err)
	}

	var transcriber vision.Transcriber
	if snap.GeminiAPIKey != "" {
		transcriber, err = gemini.New(ctx, snap.GeminiAPIKey, gemini.WithModel(snap.GeminiModel))
		if err != nil {
			return nil, fmt.Errorf("app: build vision transcriber: %w", err)
		}
	} else if snap.UseAIVision {
		log.Warn("use_ai_ocr is enabled but gemini_api_key is empty, falling back to classical OCR")
	}

	cache, err := audiocache.New(snap.CacheDir, snap.CacheMaxBytes)
	if err != nil {
		return nil, fmt.Errorf("app: init audio cache: %w", err)
	}

	catalog := voice.NewCatalog(synth)
	assigner := voice.NewAssigner(catalog, voice.NewMappingStore(snap.VoiceMappingPath))
	player := playback.NewPlayer()

	pl := pipeline.New(pipeline.Deps{
		Config:   store,
		Frames:   capture.NewScreenSource(),
		Locator:  locator,
		Vision:   transcriber,
		Synth:    synth,
		Assigner: assigner,
		Cache:    cache,
		Speakers: npclog.NewReader(snap.GameLogPath),
		Player:   player,
		Metrics:  observe.DefaultMetrics(),
	})

	a := &App{
		store:  store,
		cache:  cache,
		player: player,
		log:    log,
	}
	a.server = server{
		store:   store,
		runner:  pl,
		catalog: catalog,
		locator: locator,
		sweeper: cache,
		toggler: player,
		health:  newHealthHandler(locator, snap.CacheDir),
		log:     slog.With("component", "api"),
	}
	a.srv = &http.Server{
		Addr:              snap.ListenAddr,
		Handler:           observe.Middleware(observe.DefaultMetrics())(a.server.routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return a, nil
}

// buildSynthesizer assembles the TTS failover chain from configured API
// keys: ElevenLabs primary, OpenAI fallback.
func buildSynthesizer(snap config.Config) (tts.Synthesizer, error) {
	var backends []struct {
		name  string
		synth tts.Synthesizer
	}
	if snap.APIKey != "" {
		el, err := elevenlabs.New(snap.APIKey, elevenlabs.WithModel(snap.TTSModel))
		if err != nil {
			return nil, err
		}
		backends = append(backends, struct {
			name  string
			synth tts.Synthesizer
		}{"elevenlabs", el})
	}
	if snap.OpenAIAPIKey != "" {
		oa, err := openaitts.New(snap.OpenAIAPIKey)
		if err != nil {
			return nil, err
		}
		backends = append(backends, struct {
			name  string
			synth tts.Synthesizer
		}{"openai", oa})
	}
	if len(backends) == 0 {
		slog.Warn("no TTS API key configured, running text-only")
		return unconfiguredSynth{}, nil
	}

	chain := resilience.NewSynthFallback(backends[0].name, backends[0].synth, resilience.BreakerConfig{})
	for _, b := range backends[1:] {
		chain.AddFallback(b.name, b.synth)
	}
	return chain, nil
}

// unconfiguredSynth stands in when no TTS backend is configured. Synthesis
// fails softly at the point of use; voice listing yields an empty catalog
// so the assigner takes its emergency path.
type unconfiguredSynth struct{}

func (unconfiguredSynth) Synthesize(context.Context, string, string) ([]byte, error) {
	return nil, ErrNoSynthesizer
}

func (unconfiguredSynth) ListVoices(context.Context) ([]tts.Voice, error) {
	return nil, nil
}

// newHealthHandler builds the readiness checks for the control API.
func newHealthHandler(locator *locate.Locator, cacheDir string) *health.Handler {
	return health.New(
		health.Checker{Name: "templates", Check: func(context.Context) error {
			if !locator.Ready() {
				return errors.New("template set not loaded")
			}
			return nil
		}},
		health.Checker{Name: "cache", Check: func(context.Context) error {
			probe := filepath.Join(cacheDir, ".probe")
			if err := os.WriteFile(probe, nil, 0o644); err != nil {
				return err
			}
			return os.Remove(probe)
		}},
	)
}

// Run serves the control API and background maintenance tasks until ctx is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("control API listening", "addr", a.srv.Addr)
		if err := a.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: control API: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.player.Stop()
		return a.srv.Shutdown(shutdownCtx)
	})

	// Prefetch the voice catalog so the first pipeline run does not pay
	// the fetch latency. Best effort.
	g.Go(func() error {
		if err := a.catalog.Refresh(ctx); err != nil {
			a.log.Warn("voice catalog prefetch failed", "error", err)
		}
		return nil
	})

	// Periodic cache budget sweep with one immediate pass at startup.
	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			if err := a.cache.EnforceBudget(); err != nil {
				a.log.Warn("cache sweep failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	return g.Wait()
}

// RunOnce executes a single pipeline run, for one-shot CLI invocations.
func (a *App) RunOnce(ctx context.Context, skipAudio bool) (string, string, error) {
	res, err := a.runner.Run(ctx, pipeline.RunOptions{SkipAudio: skipAudio})
	if err != nil {
		return "", "", err
	}
	return res.Text, string(res.Source), nil
}
