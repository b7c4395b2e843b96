package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hotrod462/mikey/internal/capture"
	"github.com/hotrod462/mikey/internal/config"
	"github.com/hotrod462/mikey/internal/device"
	"github.com/hotrod462/mikey/internal/merge"
	"github.com/hotrod462/mikey/internal/metrics"
	"github.com/hotrod462/mikey/internal/notes"
	"github.com/hotrod462/mikey/internal/server"
	"github.com/hotrod462/mikey/internal/session"
	"github.com/hotrod462/mikey/internal/transcribe"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "mikey"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	listDevices := flag.Bool("devices", false, "List input devices and exit")
	record := flag.Bool("record", false, "Record a session until interrupted")
	transcribeDir := flag.String("transcribe", "", "Transcribe an existing session directory")
	flag.Parse()

	// Secrets come from .env in development; a missing file is fine
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	if *listDevices {
		if err := printDevices(); err != nil {
			logger.Error("Failed to list devices", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	if !*record && *transcribeDir == "" {
		fmt.Fprintln(os.Stderr, "Nothing to do: pass -record, -transcribe <dir> or -devices")
		flag.Usage()
		os.Exit(2)
	}

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()

	backend, err := newBackend(cfg.Transcription, logger)
	if err != nil {
		logger.Error("Failed to create transcription backend", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var summarizer notes.Summarizer
	if cfg.Notes.Enabled {
		summarizer, err = notes.NewChatSummarizer(notes.ChatConfig{
			APIKey:  cfg.Notes.APIKey,
			BaseURL: cfg.Notes.BaseURL,
			Model:   cfg.Notes.Model,
		}, logger)
		if err != nil {
			logger.Error("Failed to create summarizer", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// The device host is only needed for recording
	var host device.Host
	if *record {
		host, err = device.NewPortAudioHost()
		if err != nil {
			logger.Error("Failed to initialize audio subsystem", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer host.Close()
	}

	sysFormat, _ := device.ParseFormat(cfg.Capture.SystemFormat)
	micFormat, _ := device.ParseFormat(cfg.Capture.MicFormat)
	mgr, err := session.NewManager(session.Config{
		BaseDir: cfg.Session.BaseDir,
		Capture: capture.CoordinatorConfig{
			FlushInterval:   cfg.Capture.GetFlushInterval(),
			WarmUp:          cfg.Capture.GetWarmUp(),
			SystemFormat:    sysFormat,
			MicFormat:       micFormat,
			SystemFrameSize: cfg.Capture.SystemFrameSize,
			MicFrameSize:    cfg.Capture.MicFrameSize,
		},
		Engine: transcribe.EngineConfig{
			ChunkSeconds:   cfg.Transcription.ChunkSeconds,
			OverlapSeconds: cfg.Transcription.OverlapSeconds,
			Language:       cfg.Transcription.Language,
			Retry: transcribe.RetryPolicy{
				Cooldown:    cfg.Transcription.GetCooldown(),
				MaxAttempts: cfg.Transcription.MaxAttempts,
			},
		},
		Tracks: merge.TrackOptions{OrderByStart: cfg.Session.OrderByStart},
	}, host, backend, summarizer, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create session manager", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Monitoring server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start monitoring server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Ctrl-C stops the recording, a second one aborts transcription
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	exitCode := 0
	dir := *transcribeDir
	if *record {
		logger.Info("Recording, press Ctrl-C to stop")
		dir, err = recordSession(ctx, mgr, host, cfg.Capture, logger)
		if err != nil {
			logger.Error("Recording failed", slog.String("error", err.Error()))
			exitCode = 1
			dir = ""
		}
	}

	if dir != "" {
		// Transcription continues after the recording was interrupted, so a
		// fresh context picks up where the cancelled one left off
		tctx, tcancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		if err := mgr.Transcribe(tctx, dir); err != nil {
			logger.Error("Transcription failed", slog.String("error", err.Error()))
			exitCode = 1
		} else {
			logger.Info("Session complete", slog.String("dir", dir))
		}
		tcancel()
	}

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping monitoring server", slog.String("error", err.Error()))
		}
	}

	logger.Info("Service stopped")
	os.Exit(exitCode)
}

// recordSession resolves the configured devices and runs one recording.
func recordSession(ctx context.Context, mgr *session.Manager, host device.Host, cfg config.CaptureConfig, logger *slog.Logger) (string, error) {
	systemID := cfg.SystemDevice
	if systemID < 0 {
		info, err := device.FindLoopback(host)
		if err != nil {
			return "", err
		}
		logger.Info("Selected loopback device", slog.String("name", info.Name), slog.Int("id", info.ID))
		systemID = info.ID
	}

	micID := cfg.MicDevice
	if micID < 0 {
		info, err := defaultMic(host, systemID)
		if err != nil {
			return "", err
		}
		logger.Info("Selected microphone device", slog.String("name", info.Name), slog.Int("id", info.ID))
		micID = info.ID
	}

	return mgr.Record(ctx, systemID, micID)
}

// defaultMic returns the first input device that is not the loopback device.
func defaultMic(host device.Host, loopbackID int) (device.Info, error) {
	devices, err := host.InputDevices()
	if err != nil {
		return device.Info{}, err
	}
	for _, d := range devices {
		if d.ID != loopbackID && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return device.Info{}, fmt.Errorf("no microphone device found")
}

// newBackend creates the configured speech-to-text backend.
func newBackend(cfg config.TranscriptionConfig, logger *slog.Logger) (transcribe.Backend, error) {
	switch cfg.Backend {
	case "vosk":
		return transcribe.NewVoskBackend(transcribe.VoskConfig{URL: cfg.VoskURL}, logger)
	default:
		return transcribe.NewWhisperBackend(transcribe.WhisperConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Prompt:  cfg.Prompt,
		}, logger)
	}
}

// printDevices lists every input device on stdout.
func printDevices() error {
	host, err := device.NewPortAudioHost()
	if err != nil {
		return err
	}
	defer host.Close()

	devices, err := host.InputDevices()
	if err != nil {
		return err
	}
	for _, d := range devices {
		fmt.Printf("%3d  %-50s  channels=%d  rate=%d\n",
			d.ID, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
	}
	return nil
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
