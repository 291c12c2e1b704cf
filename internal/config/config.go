// Package config provides the configuration schema, loader, and persistence
// for the lorespeaker screen-reader service.
//
// The configuration lives in a single flat JSON file that is shared with the
// external calibration UI. The core treats it as collaborator state: it is
// loaded once at startup with defaults backfilled for missing keys, re-read
// per pipeline run through a [Store], and rewritten in full on every save.
package config

import (
	"errors"
	"fmt"
	"sync"
)

// LogLevel controls log verbosity for the lorespeaker service.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration record. Keys mirror the flat JSON file
// written by the calibration UI, so field tags must stay stable.
type Config struct {
	// ListenAddr is the TCP address of the local control endpoint (e.g., "127.0.0.1:7953").
	ListenAddr string `json:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `json:"log_level"`

	// MonitorIndex selects the display to capture, starting at 1 for the
	// primary monitor. Out-of-range values fall back to the primary.
	MonitorIndex int `json:"monitor_index"`

	// TemplatesDir holds the four corner template images used for region
	// localization. If any template is missing, localization is disabled.
	TemplatesDir string `json:"templates_dir"`

	// PaddingTop..PaddingRight expand the detected dialog region. The four
	// values are independent because the game's UI chrome is asymmetric.
	PaddingTop    int `json:"padding_top"`
	PaddingBottom int `json:"padding_bottom"`
	PaddingLeft   int `json:"padding_left"`
	PaddingRight  int `json:"padding_right"`

	// OCRLanguage is the Tesseract language set (e.g., "deu+eng").
	OCRLanguage string `json:"ocr_language"`

	// OCRPageSegMode is the Tesseract page segmentation mode.
	OCRPageSegMode int `json:"ocr_psm"`

	// OCRWhitelist restricts Tesseract to the listed characters. Values of
	// five characters or fewer are treated as "no whitelist".
	OCRWhitelist string `json:"ocr_whitelist"`

	// UseAIVision switches recognition from Tesseract to the Gemini vision
	// model. Evaluated per pipeline run, so a settings change takes effect
	// without a restart.
	UseAIVision bool `json:"use_ai_ocr"`

	// GeminiAPIKey authenticates the vision model calls.
	GeminiAPIKey string `json:"gemini_api_key"`

	// GeminiModel is the vision model identifier.
	GeminiModel string `json:"gemini_model"`

	// APIKey is the ElevenLabs API key for voice listing and synthesis.
	APIKey string `json:"api_key"`

	// OpenAIAPIKey enables the fallback speech synthesizer when set.
	OpenAIAPIKey string `json:"openai_api_key"`

	// TTSModel is the ElevenLabs model used for synthesis.
	TTSModel string `json:"tts_model"`

	// VoiceMappingPath is the flat JSON file mapping NPC names to voice ids.
	VoiceMappingPath string `json:"voice_mapping_path"`

	// CacheDir holds synthesized audio files.
	CacheDir string `json:"cache_dir"`

	// CacheMaxBytes bounds the total size of CacheDir. The eviction sweep
	// deletes oldest files first once the bound is exceeded.
	CacheMaxBytes int64 `json:"cache_max_bytes"`

	// GameLogPath is the game's chat log, used to attribute dialogue lines
	// to an NPC name.
	GameLogPath string `json:"game_log_path"`

	// AudioDelayMS pauses before playback starts, so the spoken line does
	// not collide with the game's own interface sounds.
	AudioDelayMS int `json:"audio_delay_ms"`

	// DebugMode persists annotated detection frames and the pre-OCR image
	// for the calibration UI.
	DebugMode bool `json:"debug_mode"`

	// Hotkey is stored for the external UI that owns keyboard binding.
	// The core never reads it.
	Hotkey string `json:"hotkey"`
}

// Default returns a Config populated with every default value. Loading merges
// the file's contents over this baseline so missing keys are backfilled.
func Default() Config {
	return Config{
		ListenAddr:       "127.0.0.1:7953",
		LogLevel:         LogInfo,
		MonitorIndex:     1,
		TemplatesDir:     "templates",
		PaddingTop:       10,
		PaddingBottom:    20,
		PaddingLeft:      10,
		PaddingRight:     50,
		OCRLanguage:      "deu+eng",
		OCRPageSegMode:   6,
		GeminiModel:      "gemini-2.0-flash",
		TTSModel:         "eleven_turbo_v2_5",
		VoiceMappingPath: "voice_mapping.json",
		CacheDir:         "AudioCache",
		CacheMaxBytes:    1 << 30,
		AudioDelayMS:     500,
		Hotkey:           "ctrl+alt+s",
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.MonitorIndex < 1 {
		errs = append(errs, fmt.Errorf("monitor_index %d is invalid; monitors are numbered from 1", cfg.MonitorIndex))
	}
	for _, p := range []struct {
		name  string
		value int
	}{
		{"padding_top", cfg.PaddingTop},
		{"padding_bottom", cfg.PaddingBottom},
		{"padding_left", cfg.PaddingLeft},
		{"padding_right", cfg.PaddingRight},
	} {
		if p.value < 0 {
			errs = append(errs, fmt.Errorf("%s %d is invalid; padding must be >= 0", p.name, p.value))
		}
	}
	if cfg.OCRPageSegMode < 0 || cfg.OCRPageSegMode > 13 {
		errs = append(errs, fmt.Errorf("ocr_psm %d is out of range [0, 13]", cfg.OCRPageSegMode))
	}
	if cfg.CacheMaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("cache_max_bytes %d is invalid; the cache budget must be positive", cfg.CacheMaxBytes))
	}

	return errors.Join(errs...)
}

// Store owns the live configuration. Components read a snapshot per pipeline
// run via [Store.Snapshot] instead of caching individual fields, so settings
// changed by the UI take effect on the next run.
//
// Store is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	cfg  Config
	path string
}

// NewStore creates a Store holding cfg, persisted at path.
func NewStore(cfg Config, path string) *Store {
	return &Store{cfg: cfg, path: path}
}

// Snapshot returns a copy of the current configuration.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update validates next, installs it as the current configuration, and
// persists it to disk. The previous configuration is kept on any failure.
func (s *Store) Update(next Config) error {
	if err := Validate(&next); err != nil {
		return fmt.Errorf("config: validate: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := Save(s.path, &next); err != nil {
		return err
	}
	s.cfg = next
	return nil
}
