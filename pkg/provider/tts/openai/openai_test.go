package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestSynthesizeRequestShape(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	p, err := New("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	audio, err := p.Synthesize(context.Background(), "Hallo Wanderer", "onyx")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Errorf("audio = %q, want %q", audio, "mp3-bytes")
	}
	if !strings.HasSuffix(gotPath, "/audio/speech") {
		t.Errorf("path = %q, want suffix /audio/speech", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want Bearer test-key", gotAuth)
	}
	if gotBody["input"] != "Hallo Wanderer" {
		t.Errorf("input = %v, want Hallo Wanderer", gotBody["input"])
	}
	if gotBody["voice"] != "onyx" {
		t.Errorf("voice = %v, want onyx", gotBody["voice"])
	}
	if gotBody["model"] != "tts-1" {
		t.Errorf("model = %v, want tts-1", gotBody["model"])
	}
}

func TestSynthesizeMapsUnknownVoice(t *testing.T) {
	var gotVoice string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		gotVoice, _ = body["voice"].(string)
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	p, err := New("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// ElevenLabs voice ids are not valid here and must fall back.
	if _, err := p.Synthesize(context.Background(), "text", "21m00Tcm4TlvDq8ikWAM"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if gotVoice != defaultVoice {
		t.Errorf("voice = %q, want %q", gotVoice, defaultVoice)
	}
}

func TestSynthesizeEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p, err := New("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Synthesize(context.Background(), "text", "alloy"); err == nil {
		t.Fatal("expected error for empty audio response")
	}
}

func TestListVoices(t *testing.T) {
	p, err := New("test-key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	voices, err := p.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != len(catalog) {
		t.Fatalf("got %d voices, want %d", len(voices), len(catalog))
	}
	byID := map[string]string{}
	for _, v := range voices {
		byID[v.ID] = v.Gender()
		if v.Provider != "openai" {
			t.Errorf("voice %s provider = %q, want openai", v.ID, v.Provider)
		}
	}
	if byID["onyx"] != "male" || byID["nova"] != "female" {
		t.Errorf("gender labels wrong: %v", byID)
	}
}
