package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Capture: CaptureConfig{
			SystemDevice:    -1,
			MicDevice:       -1,
			FlushInterval:   60,
			WarmUp:          2,
			SystemFormat:    "float32",
			MicFormat:       "int16",
			SystemFrameSize: 1024,
			MicFrameSize:    4096,
		},
		Session: SessionConfig{
			BaseDir: "recordings",
		},
		Transcription: TranscriptionConfig{
			Backend:        "whisper",
			APIKey:         "test-key",
			Model:          "whisper-1",
			ChunkSeconds:   600,
			OverlapSeconds: 10,
			Cooldown:       60,
		},
		Notes: NotesConfig{
			Enabled: false,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Address: "127.0.0.1",
			Port:    9090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError string
	}{
		{
			name:   "valid configuration",
			mutate: func(c *Config) {},
		},
		{
			name:        "zero flush interval",
			mutate:      func(c *Config) { c.Capture.FlushInterval = 0 },
			expectError: "flush_interval",
		},
		{
			name:        "unknown sample format",
			mutate:      func(c *Config) { c.Capture.SystemFormat = "float64" },
			expectError: "system_format",
		},
		{
			name:        "frame size too small",
			mutate:      func(c *Config) { c.Capture.MicFrameSize = 16 },
			expectError: "mic_frame_size",
		},
		{
			name:        "empty session base dir",
			mutate:      func(c *Config) { c.Session.BaseDir = "" },
			expectError: "base_dir",
		},
		{
			name:        "unknown transcription backend",
			mutate:      func(c *Config) { c.Transcription.Backend = "deepgram" },
			expectError: "backend",
		},
		{
			name:        "whisper without api key",
			mutate:      func(c *Config) { c.Transcription.APIKey = "" },
			expectError: "api_key",
		},
		{
			name: "vosk without url",
			mutate: func(c *Config) {
				c.Transcription.Backend = "vosk"
				c.Transcription.VoskURL = ""
			},
			expectError: "vosk_url",
		},
		{
			name:        "overlap larger than chunk",
			mutate:      func(c *Config) { c.Transcription.OverlapSeconds = 700 },
			expectError: "overlap_seconds",
		},
		{
			name:        "zero cooldown",
			mutate:      func(c *Config) { c.Transcription.Cooldown = 0 },
			expectError: "cooldown",
		},
		{
			name: "notes enabled without model",
			mutate: func(c *Config) {
				c.Notes.Enabled = true
				c.Notes.APIKey = "key"
				c.Notes.Model = ""
			},
			expectError: "model",
		},
		{
			name:        "invalid http port",
			mutate:      func(c *Config) { c.HTTP.Port = 70000 },
			expectError: "port",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Logging.Level = "verbose" },
			expectError: "level",
		},
		{
			name:        "invalid log format",
			mutate:      func(c *Config) { c.Logging.Format = "xml" },
			expectError: "format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expectError == "" {
				if err != nil {
					t.Errorf("Expected valid config, got error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.expectError) {
				t.Errorf("Error %q does not mention %q", err.Error(), tt.expectError)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	yaml := `
capture:
  system_device: -1
  mic_device: -1
  flush_interval: 60
  warm_up: 2
  system_format: float32
  mic_format: int16
  system_frame_size: 1024
  mic_frame_size: 4096

session:
  base_dir: recordings
  order_by_start: true

transcription:
  backend: whisper
  api_key: file-key
  model: whisper-large-v3
  chunk_seconds: 600
  overlap_seconds: 10
  cooldown: 60

notes:
  enabled: false

http:
  enabled: false

logging:
  level: debug
  format: text
  output: stderr
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Transcription.APIKey != "file-key" {
		t.Errorf("API key not read from file: %q", cfg.Transcription.APIKey)
	}
	if !cfg.Session.OrderByStart {
		t.Error("order_by_start not parsed")
	}
	if cfg.Capture.GetFlushInterval() != 60*time.Second {
		t.Errorf("Flush interval: %v", cfg.Capture.GetFlushInterval())
	}
	if cfg.Capture.GetWarmUp() != 2*time.Second {
		t.Errorf("Warm-up: %v", cfg.Capture.GetWarmUp())
	}
	if cfg.Transcription.GetCooldown() != time.Minute {
		t.Errorf("Cooldown: %v", cfg.Transcription.GetCooldown())
	}
}

func TestLoadAPIKeyFromEnvironment(t *testing.T) {
	yaml := `
capture:
  flush_interval: 60
  system_format: float32
  mic_format: int16
  system_frame_size: 1024
  mic_frame_size: 4096

session:
  base_dir: recordings

transcription:
  backend: whisper
  chunk_seconds: 600
  overlap_seconds: 10
  cooldown: 60

logging:
  level: info
  format: json
  output: stdout
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvTranscriptionAPIKey, "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Transcription.APIKey != "env-key" {
		t.Errorf("Expected API key from environment, got %q", cfg.Transcription.APIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}
