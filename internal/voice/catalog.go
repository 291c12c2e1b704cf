// Package voice assigns stable TTS voices to NPC names.
//
// The catalog holds the provider's voice list in memory, the mapping store
// persists name-to-voice decisions as flat JSON, and the Assigner combines
// both with a deterministic hash so the same character always speaks with
// the same voice, across runs and machines.
package voice

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrWong99/lorespeaker/pkg/provider/tts"
)

// Catalog caches the voice list of a TTS provider. It is fetched once at
// startup and refreshed on demand; an empty catalog is a valid state that
// the Assigner handles with its emergency fallback.
type Catalog struct {
	synth tts.Synthesizer

	mu     sync.RWMutex
	voices []tts.Voice
}

// NewCatalog creates a catalog backed by synth's ListVoices.
func NewCatalog(synth tts.Synthesizer) *Catalog {
	return &Catalog{synth: synth}
}

// Refresh fetches the voice list from the provider and replaces the cached
// copy. On error the previous copy is kept.
func (c *Catalog) Refresh(ctx context.Context) error {
	voices, err := c.synth.ListVoices(ctx)
	if err != nil {
		return fmt.Errorf("voice: refresh catalog: %w", err)
	}
	c.mu.Lock()
	c.voices = voices
	c.mu.Unlock()
	return nil
}

// Voices returns the cached voice list. If the cache is empty it attempts a
// single fetch; a fetch failure yields an empty list, never an error, so
// callers degrade instead of crashing when the provider is down.
func (c *Catalog) Voices(ctx context.Context) []tts.Voice {
	c.mu.RLock()
	cached := c.voices
	c.mu.RUnlock()
	if len(cached) > 0 {
		return cached
	}

	// Best effort. Refresh keeps the (empty) cache on failure.
	_ = c.Refresh(ctx)

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.voices
}
