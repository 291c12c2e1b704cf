// Command lorespeaker reads quest dialog off the screen and speaks it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/lorespeaker/internal/app"
	"github.com/MrWong99/lorespeaker/internal/config"
	"github.com/MrWong99/lorespeaker/internal/observe"
)

// version is injected via -ldflags at release build time.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.json", "path to the JSON configuration file")
	once := flag.Bool("once", false, "run a single scan and exit instead of serving the control API")
	skipAudio := flag.Bool("skip-audio", false, "with -once: print the recognized text without synthesizing audio")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	// A missing config file is written with defaults so a first start works
	// out of the box.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lorespeaker: %v\n", err)
		return 1
	}
	store := config.NewStore(*cfg, *configPath)

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("lorespeaker starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.ListenAddr,
		"log_level", cfg.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "lorespeaker",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Application ───────────────────────────────────────────────────────────
	application, err := app.New(ctx, store)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	printStartupSummary(*cfg)

	if *once {
		text, source, err := application.RunOnce(ctx, *skipAudio)
		if err != nil {
			slog.Error("scan failed", "err", err)
			return 1
		}
		fmt.Printf("[%s] %s\n", source, text)
		return 0
	}

	slog.Info("ready — press Ctrl+C to shut down")
	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg config.Config) {
	ocrEngine := "tesseract (" + cfg.OCRLanguage + ")"
	if cfg.UseAIVision {
		ocrEngine = cfg.GeminiModel
	}
	ttsBackend := "(not configured)"
	switch {
	case cfg.APIKey != "" && cfg.OpenAIAPIKey != "":
		ttsBackend = "elevenlabs + openai fallback"
	case cfg.APIKey != "":
		ttsBackend = "elevenlabs"
	case cfg.OpenAIAPIKey != "":
		ttsBackend = "openai"
	}

	fmt.Println("╔═══════════════════════════════════════════╗")
	fmt.Println("║        Lorespeaker — startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════════╣")
	printRow("Monitor", fmt.Sprintf("%d", cfg.MonitorIndex))
	printRow("Templates", cfg.TemplatesDir)
	printRow("OCR engine", ocrEngine)
	printRow("TTS backend", ttsBackend)
	printRow("Cache budget", fmt.Sprintf("%d MiB", cfg.CacheMaxBytes>>20))
	printRow("Listen addr", cfg.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════════╝")
}

func printRow(key, value string) {
	if len(value) > 24 {
		value = value[:21] + "…"
	}
	fmt.Printf("║  %-13s : %-24s ║\n", key, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
