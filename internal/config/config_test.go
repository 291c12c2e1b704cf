package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromReader_BackfillsDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`{"monitor_index": 2, "api_key": "xi-test"}`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.MonitorIndex != 2 {
		t.Errorf("expected monitor_index 2, got %d", cfg.MonitorIndex)
	}
	if cfg.APIKey != "xi-test" {
		t.Errorf("expected api_key to survive, got %q", cfg.APIKey)
	}

	// Keys absent from the file must come from the defaults.
	def := Default()
	if cfg.OCRLanguage != def.OCRLanguage {
		t.Errorf("expected default ocr_language %q, got %q", def.OCRLanguage, cfg.OCRLanguage)
	}
	if cfg.PaddingRight != def.PaddingRight {
		t.Errorf("expected default padding_right %d, got %d", def.PaddingRight, cfg.PaddingRight)
	}
	if cfg.CacheMaxBytes != def.CacheMaxBytes {
		t.Errorf("expected default cache_max_bytes %d, got %d", def.CacheMaxBytes, cfg.CacheMaxBytes)
	}
}

func TestLoadFromReader_InvalidValues(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"bad log level", `{"log_level": "verbose"}`},
		{"negative padding", `{"padding_left": -3}`},
		{"psm out of range", `{"ocr_psm": 42}`},
		{"zero cache budget", `{"cache_max_bytes": 0}`},
		{"monitor zero", `{"monitor_index": 0}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadFromReader(strings.NewReader(tc.json)); err == nil {
				t.Errorf("expected validation error for %s", tc.json)
			}
		})
	}
}

func TestLoad_MissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OCRPageSegMode != Default().OCRPageSegMode {
		t.Errorf("expected default psm, got %d", cfg.OCRPageSegMode)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected defaults written to disk: %v", err)
	}

	// A second load must round-trip the persisted defaults.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("Load (second): %v", err)
	}
	if *again != *cfg {
		t.Errorf("persisted defaults differ from in-memory defaults")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.UseAIVision = true
	cfg.OCRWhitelist = "abcdefgh"
	cfg.PaddingRight = 75
	if err := Save(path, &cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *loaded != cfg {
		t.Errorf("round-trip mismatch:\n got %+v\nwant %+v", *loaded, cfg)
	}
}

func TestStore_UpdateRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store := NewStore(Default(), path)

	bad := Default()
	bad.CacheMaxBytes = -1
	if err := store.Update(bad); err == nil {
		t.Fatal("expected Update to reject invalid config")
	}
	if got := store.Snapshot().CacheMaxBytes; got != Default().CacheMaxBytes {
		t.Errorf("snapshot mutated after rejected update: %d", got)
	}
}

func TestStore_UpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store := NewStore(Default(), path)

	next := Default()
	next.MonitorIndex = 3
	if err := store.Update(next); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := store.Snapshot().MonitorIndex; got != 3 {
		t.Errorf("expected snapshot monitor_index 3, got %d", got)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.MonitorIndex != 3 {
		t.Errorf("expected persisted monitor_index 3, got %d", loaded.MonitorIndex)
	}
}
