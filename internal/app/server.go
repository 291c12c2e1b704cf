package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/lorespeaker/internal/config"
	"github.com/MrWong99/lorespeaker/internal/health"
	"github.com/MrWong99/lorespeaker/internal/pipeline"
	"github.com/MrWong99/lorespeaker/internal/recognize"
	"github.com/MrWong99/lorespeaker/pkg/provider/tts"
)

// pipelineRunner triggers one screenshot-to-speech cycle.
type pipelineRunner interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (recognize.Result, error)
}

// voiceCatalog exposes the cached voice list.
type voiceCatalog interface {
	Voices(ctx context.Context) []tts.Voice
	Refresh(ctx context.Context) error
}

// templateReloader swaps the corner template set at runtime.
type templateReloader interface {
	Reload(dir string) error
	Ready() bool
}

// cacheSweeper enforces the audio cache byte budget.
type cacheSweeper interface {
	EnforceBudget() error
}

// audioToggler pauses or resumes the running clip.
type audioToggler interface {
	TogglePause() bool
}

// server implements the HTTP control API. It is separate from [App] so
// tests can construct it with fakes.
type server struct {
	store   *config.Store
	runner  pipelineRunner
	catalog voiceCatalog
	locator templateReloader
	sweeper cacheSweeper
	toggler audioToggler
	health  *health.Handler
	log     *slog.Logger
}

// routes builds the control API mux.
func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /scan", s.handleScan)
	mux.HandleFunc("GET /voices", s.handleVoices)
	mux.HandleFunc("POST /templates/reload", s.handleReloadTemplates)
	mux.HandleFunc("POST /cache/sweep", s.handleCacheSweep)
	mux.HandleFunc("POST /audio/toggle", s.handleAudioToggle)
	mux.Handle("GET /metrics", promhttp.Handler())
	s.health.Register(mux)
	return mux
}

// scanResponse is the JSON body returned by POST /scan.
type scanResponse struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// handleScan triggers one pipeline run. ?skip_audio=true returns the
// recognized text without synthesis or playback. A run already in flight
// yields 409.
func (s *server) handleScan(w http.ResponseWriter, r *http.Request) {
	opts := pipeline.RunOptions{
		SkipAudio: r.URL.Query().Get("skip_audio") == "true",
	}
	res, err := s.runner.Run(r.Context(), opts)
	if errors.Is(err, pipeline.ErrBusy) {
		writeError(w, http.StatusConflict, "a scan is already in progress")
		return
	}
	if err != nil {
		s.log.Error("scan failed", "error", err)
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}
	writeJSON(w, http.StatusOK, scanResponse{Text: res.Text, Source: string(res.Source)})
}

// handleVoices returns the voice catalog. ?refresh=true forces a provider
// fetch first.
func (s *server) handleVoices(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		if err := s.catalog.Refresh(r.Context()); err != nil {
			s.log.Warn("voice catalog refresh failed", "error", err)
			writeError(w, http.StatusBadGateway, "voice catalog refresh failed")
			return
		}
	}
	voices := s.catalog.Voices(r.Context())
	if voices == nil {
		voices = []tts.Voice{}
	}
	writeJSON(w, http.StatusOK, voices)
}

// handleReloadTemplates swaps in the template set currently on disk. Used
// after calibration saved new corner images.
func (s *server) handleReloadTemplates(w http.ResponseWriter, r *http.Request) {
	dir := s.store.Snapshot().TemplatesDir
	if err := s.locator.Reload(dir); err != nil {
		s.log.Warn("template reload failed", "dir", dir, "error", err)
		writeError(w, http.StatusUnprocessableEntity, "template reload failed: "+err.Error())
		return
	}
	s.log.Info("templates reloaded", "dir", dir)
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

// handleCacheSweep runs the cache budget enforcement immediately.
func (s *server) handleCacheSweep(w http.ResponseWriter, _ *http.Request) {
	if err := s.sweeper.EnforceBudget(); err != nil {
		s.log.Warn("cache sweep failed", "error", err)
		writeError(w, http.StatusInternalServerError, "cache sweep failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "swept"})
}

// handleAudioToggle pauses or resumes the current clip.
func (s *server) handleAudioToggle(w http.ResponseWriter, _ *http.Request) {
	paused := s.toggler.TogglePause()
	writeJSON(w, http.StatusOK, map[string]bool{"paused": paused})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
