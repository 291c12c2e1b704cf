package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestSynthesize_RequestShape(t *testing.T) {
	var gotPath, gotKey string
	var gotBody synthesizeRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	p, err := New("xi-secret", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	audio, err := p.Synthesize(context.Background(), "Der Wald ruft.", "v123")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !bytes.Equal(audio, []byte("mp3-bytes")) {
		t.Errorf("audio = %q", audio)
	}
	if gotPath != "/v1/text-to-speech/v123" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "xi-secret" {
		t.Errorf("xi-api-key = %q", gotKey)
	}
	if gotBody.Text != "Der Wald ruft." {
		t.Errorf("text = %q", gotBody.Text)
	}
	if gotBody.ModelID != defaultModel {
		t.Errorf("model_id = %q", gotBody.ModelID)
	}
	if gotBody.VoiceSettings.Stability != defaultStability {
		t.Errorf("stability = %v", gotBody.VoiceSettings.Stability)
	}
	if gotBody.VoiceSettings.SimilarityBoost != defaultSimilarityBoost {
		t.Errorf("similarity_boost = %v", gotBody.VoiceSettings.SimilarityBoost)
	}
}

func TestSynthesize_APIErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "invalid api key"}`))
	}))
	defer srv.Close()

	p, _ := New("bad-key", WithBaseURL(srv.URL))
	if _, err := p.Synthesize(context.Background(), "text", "v123"); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestSynthesize_EmptyVoice(t *testing.T) {
	p, _ := New("key")
	if _, err := p.Synthesize(context.Background(), "text", ""); err == nil {
		t.Fatal("expected error for empty voice id")
	}
}

func TestParseVoicesResponse(t *testing.T) {
	raw := []byte(`{
		"voices": [
			{
				"voice_id": "21m00Tcm4TlvDq8ikWAM",
				"name": "Rachel",
				"category": "premade",
				"labels": {"Gender": "female", "accent": "american"}
			},
			{
				"voice_id": "abc",
				"name": "Adam",
				"labels": {"gender": "male"}
			}
		]
	}`)

	voices, err := parseVoicesResponse(raw)
	if err != nil {
		t.Fatalf("parseVoicesResponse: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("expected 2 voices, got %d", len(voices))
	}

	rachel := voices[0]
	if rachel.ID != "21m00Tcm4TlvDq8ikWAM" || rachel.Name != "Rachel" {
		t.Errorf("unexpected first voice: %+v", rachel)
	}
	if rachel.Provider != "elevenlabs" {
		t.Errorf("provider = %q", rachel.Provider)
	}
	// Label keys are normalised to lower case so Gender() works regardless
	// of the API's casing.
	if rachel.Gender() != "female" {
		t.Errorf("gender = %q", rachel.Gender())
	}
	if rachel.Labels["category"] != "premade" {
		t.Errorf("category label = %q", rachel.Labels["category"])
	}
	if voices[1].Gender() != "male" {
		t.Errorf("second voice gender = %q", voices[1].Gender())
	}
}

func TestListVoices_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/voices" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"voices": [{"voice_id": "v1", "name": "Test", "labels": {}}]}`))
	}))
	defer srv.Close()

	p, _ := New("key", WithBaseURL(srv.URL))
	voices, err := p.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 1 || voices[0].ID != "v1" {
		t.Errorf("voices = %+v", voices)
	}
}
