package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failingCalls(b *Breaker, n int) {
	for i := 0; i < n; i++ {
		b.Do(func() error { return errBoom })
	}
}

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", MaxFailures: 3, Cooldown: time.Minute})

	failingCalls(b, 2)
	if b.Open() {
		t.Fatal("breaker opened before reaching max failures")
	}
	failingCalls(b, 1)
	if !b.Open() {
		t.Fatal("breaker did not open after max failures")
	}

	called := false
	err := b.Do(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Errorf("err = %v, want ErrOpen", err)
	}
	if called {
		t.Error("fn was called while the breaker was open")
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 3, Cooldown: time.Minute})

	failingCalls(b, 2)
	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	failingCalls(b, 2)
	if b.Open() {
		t.Error("breaker opened although a success reset the count")
	}
}

func TestBreakerProbeClosesAfterCooldown(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 1, Cooldown: 10 * time.Millisecond})

	failingCalls(b, 1)
	if !b.Open() {
		t.Fatal("breaker should be open")
	}

	time.Sleep(20 * time.Millisecond)

	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("probe call failed: %v", err)
	}
	if b.Open() {
		t.Error("breaker still open after successful probe")
	}
	if err := b.Do(func() error { return nil }); err != nil {
		t.Errorf("call after closing failed: %v", err)
	}
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 1, Cooldown: 10 * time.Millisecond})

	failingCalls(b, 1)
	time.Sleep(20 * time.Millisecond)

	if err := b.Do(func() error { return errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("probe err = %v, want errBoom", err)
	}
	if !b.Open() {
		t.Error("breaker should have re-opened after the failed probe")
	}
}

func TestBreakerReset(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 1, Cooldown: time.Hour})

	failingCalls(b, 1)
	if !b.Open() {
		t.Fatal("breaker should be open")
	}
	b.Reset()
	if b.Open() {
		t.Error("breaker still open after Reset")
	}
	if err := b.Do(func() error { return nil }); err != nil {
		t.Errorf("call after Reset failed: %v", err)
	}
}
