package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/lorespeaker/pkg/provider/tts"
	ttsmock "github.com/MrWong99/lorespeaker/pkg/provider/tts/mock"
)

func TestSynthFallbackPrefersPrimary(t *testing.T) {
	primary := &ttsmock.Provider{SynthesizeResult: []byte("primary")}
	secondary := &ttsmock.Provider{SynthesizeResult: []byte("secondary")}

	sf := NewSynthFallback("elevenlabs", primary, BreakerConfig{})
	sf.AddFallback("openai", secondary)

	audio, err := sf.Synthesize(context.Background(), "Hallo", "v1")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "primary" {
		t.Errorf("audio = %q, want primary", audio)
	}
	if len(secondary.SynthesizeCalls) != 0 {
		t.Error("fallback was called although the primary succeeded")
	}
}

func TestSynthFallbackFailsOver(t *testing.T) {
	primary := &ttsmock.Provider{SynthesizeErr: errors.New("quota exceeded")}
	secondary := &ttsmock.Provider{SynthesizeResult: []byte("secondary")}

	sf := NewSynthFallback("elevenlabs", primary, BreakerConfig{})
	sf.AddFallback("openai", secondary)

	audio, err := sf.Synthesize(context.Background(), "Hallo", "v1")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "secondary" {
		t.Errorf("audio = %q, want secondary", audio)
	}
}

func TestSynthFallbackAllFail(t *testing.T) {
	primary := &ttsmock.Provider{SynthesizeErr: errors.New("down")}
	secondary := &ttsmock.Provider{SynthesizeErr: errors.New("also down")}

	sf := NewSynthFallback("elevenlabs", primary, BreakerConfig{})
	sf.AddFallback("openai", secondary)

	if _, err := sf.Synthesize(context.Background(), "Hallo", "v1"); !errors.Is(err, ErrAllBackendsFailed) {
		t.Errorf("err = %v, want ErrAllBackendsFailed", err)
	}
}

func TestSynthFallbackSkipsOpenBreaker(t *testing.T) {
	primary := &ttsmock.Provider{SynthesizeErr: errors.New("down")}
	secondary := &ttsmock.Provider{SynthesizeResult: []byte("ok")}

	sf := NewSynthFallback("elevenlabs", primary, BreakerConfig{MaxFailures: 2, Cooldown: time.Hour})
	sf.AddFallback("openai", secondary)

	for i := 0; i < 3; i++ {
		if _, err := sf.Synthesize(context.Background(), "Hallo", "v1"); err != nil {
			t.Fatalf("Synthesize %d: %v", i, err)
		}
	}
	// Two failures trip the primary's breaker, the third round must skip it.
	if n := len(primary.SynthesizeCalls); n != 2 {
		t.Errorf("primary called %d times, want 2", n)
	}
	if n := len(secondary.SynthesizeCalls); n != 3 {
		t.Errorf("secondary called %d times, want 3", n)
	}
}

func TestSynthFallbackListVoicesUsesFirstHealthy(t *testing.T) {
	primary := &ttsmock.Provider{ListVoicesErr: errors.New("down")}
	secondary := &ttsmock.Provider{ListVoicesResult: []tts.Voice{{ID: "alloy", Name: "Alloy"}}}

	sf := NewSynthFallback("elevenlabs", primary, BreakerConfig{})
	sf.AddFallback("openai", secondary)

	voices, err := sf.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 1 || voices[0].ID != "alloy" {
		t.Errorf("voices = %v", voices)
	}
}
