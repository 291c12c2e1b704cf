// Package playback plays cached MP3 clips on the default audio device.
//
// Playback is fire-and-forget: Play starts a clip and returns, a later Play
// supersedes whatever is still running, and TogglePause is the only
// out-of-band control. The audio context is created lazily on the first
// clip because its sample rate comes from the decoded stream.
package playback

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"
)

// Player plays one MP3 clip at a time.
type Player struct {
	mu      sync.Mutex
	otoCtx  *oto.Context
	current *oto.Player
	file    *os.File
	paused  bool
	log     *slog.Logger
}

// NewPlayer creates an idle Player.
func NewPlayer() *Player {
	return &Player{log: slog.With("component", "playback")}
}

// Play starts playing the MP3 file at path, stopping any clip that is still
// running. It returns once playback has started, not when it finishes.
func (p *Player) Play(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("playback: open clip: %w", err)
	}
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("playback: decode clip: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.otoCtx == nil {
		// The context is process-global in oto and keeps its sample rate
		// for the lifetime of the program. All clips come from the same
		// TTS backend, so one rate fits all of them.
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   dec.SampleRate(),
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			f.Close()
			return fmt.Errorf("playback: init audio device: %w", err)
		}
		<-ready
		p.otoCtx = ctx
	}

	p.stopLocked()

	p.current = p.otoCtx.NewPlayer(dec)
	p.file = f
	p.paused = false
	p.current.Play()
	p.log.Debug("playback started", "path", path, "sample_rate", dec.SampleRate())
	return nil
}

// TogglePause pauses a running clip or resumes a paused one. It reports
// whether playback is paused afterwards. Toggling with no clip loaded is a
// no-op that reports false.
func (p *Player) TogglePause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return false
	}
	if p.paused {
		p.current.Play()
		p.paused = false
	} else {
		p.current.Pause()
		p.paused = true
	}
	return p.paused
}

// Stop stops the current clip, if any.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.current != nil {
		if err := p.current.Close(); err != nil {
			p.log.Warn("closing previous clip failed", "error", err)
		}
		p.current = nil
	}
	if p.file != nil {
		p.file.Close()
		p.file = nil
	}
	p.paused = false
}
