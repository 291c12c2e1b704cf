// Package resilience keeps speech synthesis available when a cloud backend
// misbehaves.
//
// [Breaker] is a three-state circuit breaker (closed → open → half-open)
// that stops hammering a failing API. [SynthFallback] chains several TTS
// backends behind one [tts.Synthesizer], each guarded by its own breaker,
// so an ElevenLabs outage degrades to the fallback voice instead of
// silencing the pipeline.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by [Breaker.Do] while the breaker rejects calls.
var ErrOpen = errors.New("circuit open")

// breakerState is the operating mode of a [Breaker].
type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// BreakerConfig tunes a [Breaker]. Zero values get defaults.
type BreakerConfig struct {
	// Name labels the breaker in log messages.
	Name string

	// MaxFailures is how many consecutive failures trip the breaker.
	// Default: 3.
	MaxFailures int

	// Cooldown is how long a tripped breaker rejects calls before letting
	// a single probe through. Default: 30s.
	Cooldown time.Duration
}

// Breaker is a circuit breaker around one synthesis backend. After
// MaxFailures consecutive failures it rejects calls for Cooldown, then
// admits one probe: a successful probe closes the breaker, a failed one
// restarts the cooldown.
type Breaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker creates a closed [Breaker].
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Breaker{
		name:        cfg.Name,
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
	}
}

// Do runs fn unless the breaker is rejecting calls, in which case it
// returns [ErrOpen] without invoking fn.
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// admit decides whether a call may go through right now.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateOpen:
		if time.Since(b.openedAt) < b.cooldown {
			return ErrOpen
		}
		b.state = stateHalfOpen
		b.probing = true
		slog.Info("circuit breaker probing backend", "name", b.name)
		return nil
	case stateHalfOpen:
		if b.probing {
			// One probe at a time.
			return ErrOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

// record updates breaker state after a call.
func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateHalfOpen {
		b.probing = false
		if err != nil {
			b.state = stateOpen
			b.openedAt = time.Now()
			slog.Warn("circuit breaker re-opened after failed probe", "name", b.name)
			return
		}
		b.state = stateClosed
		b.failures = 0
		slog.Info("circuit breaker closed after successful probe", "name", b.name)
		return
	}

	if err == nil {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.maxFailures {
		b.state = stateOpen
		b.openedAt = time.Now()
		slog.Warn("circuit breaker opened", "name", b.name, "consecutive_failures", b.failures)
	}
}

// Open reports whether the breaker currently rejects calls.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == stateOpen && time.Since(b.openedAt) < b.cooldown
}

// Reset forces the breaker back to closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = stateClosed
	b.failures = 0
	b.probing = false
}
