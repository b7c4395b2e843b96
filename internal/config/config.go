package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hotrod462/mikey/internal/device"
)

// Environment variables consulted when the YAML file leaves API keys empty,
// so secrets never have to live in the config file.
const (
	EnvTranscriptionAPIKey = "TRANSCRIPTION_API_KEY"
	EnvNotesAPIKey         = "NOTES_API_KEY"
)

// Config represents the complete recorder configuration
type Config struct {
	Capture       CaptureConfig       `yaml:"capture"`
	Session       SessionConfig       `yaml:"session"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Notes         NotesConfig         `yaml:"notes"`
	HTTP          HTTPConfig          `yaml:"http"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// CaptureConfig contains dual-stream capture parameters
type CaptureConfig struct {
	// SystemDevice and MicDevice are input device IDs; -1 selects the
	// loopback device and the default microphone automatically.
	SystemDevice    int     `yaml:"system_device"`
	MicDevice       int     `yaml:"mic_device"`
	FlushInterval   float64 `yaml:"flush_interval"` // seconds
	WarmUp          float64 `yaml:"warm_up"`        // seconds
	SystemFormat    string  `yaml:"system_format"`
	MicFormat       string  `yaml:"mic_format"`
	SystemFrameSize int     `yaml:"system_frame_size"` // frames per read
	MicFrameSize    int     `yaml:"mic_frame_size"`    // frames per read
}

// SessionConfig contains session directory and transcript layout parameters
type SessionConfig struct {
	BaseDir string `yaml:"base_dir"`
	// OrderByStart interleaves the merged transcript chronologically instead
	// of keeping each track contiguous.
	OrderByStart bool `yaml:"order_by_start"`
}

// TranscriptionConfig contains speech-to-text backend configuration
type TranscriptionConfig struct {
	Backend        string  `yaml:"backend"` // whisper or vosk
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	Language       string  `yaml:"language"`
	Prompt         string  `yaml:"prompt"`
	VoskURL        string  `yaml:"vosk_url"`
	ChunkSeconds   float64 `yaml:"chunk_seconds"`
	OverlapSeconds float64 `yaml:"overlap_seconds"`
	Cooldown       float64 `yaml:"cooldown"` // seconds between rate-limit retries
	MaxAttempts    int     `yaml:"max_attempts"`
}

// NotesConfig contains meeting notes generation configuration
type NotesConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// HTTPConfig contains monitoring server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file. Empty API keys fall back to
// the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if config.Transcription.APIKey == "" {
		config.Transcription.APIKey = os.Getenv(EnvTranscriptionAPIKey)
	}
	if config.Notes.APIKey == "" {
		config.Notes.APIKey = os.Getenv(EnvNotesAPIKey)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Notes.Validate(); err != nil {
		return fmt.Errorf("notes config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates capture configuration
func (c *CaptureConfig) Validate() error {
	if c.FlushInterval <= 0 {
		return fmt.Errorf("flush_interval must be positive, got %f", c.FlushInterval)
	}

	if c.WarmUp < 0 {
		return fmt.Errorf("warm_up cannot be negative, got %f", c.WarmUp)
	}

	if _, err := device.ParseFormat(c.SystemFormat); err != nil {
		return fmt.Errorf("system_format: %w", err)
	}

	if _, err := device.ParseFormat(c.MicFormat); err != nil {
		return fmt.Errorf("mic_format: %w", err)
	}

	if c.SystemFrameSize < 64 || c.SystemFrameSize > 65536 {
		return fmt.Errorf("system_frame_size must be between 64 and 65536, got %d", c.SystemFrameSize)
	}

	if c.MicFrameSize < 64 || c.MicFrameSize > 65536 {
		return fmt.Errorf("mic_frame_size must be between 64 and 65536, got %d", c.MicFrameSize)
	}

	return nil
}

// Validate validates session configuration
func (s *SessionConfig) Validate() error {
	if s.BaseDir == "" {
		return fmt.Errorf("base_dir cannot be empty")
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	switch t.Backend {
	case "whisper":
		if t.APIKey == "" {
			return fmt.Errorf("api_key cannot be empty for the whisper backend (set %s)", EnvTranscriptionAPIKey)
		}
	case "vosk":
		if t.VoskURL == "" {
			return fmt.Errorf("vosk_url cannot be empty for the vosk backend")
		}
	default:
		return fmt.Errorf("backend must be 'whisper' or 'vosk', got '%s'", t.Backend)
	}

	if t.ChunkSeconds <= 0 {
		return fmt.Errorf("chunk_seconds must be positive, got %f", t.ChunkSeconds)
	}

	if t.OverlapSeconds < 0 || t.OverlapSeconds >= t.ChunkSeconds {
		return fmt.Errorf("overlap_seconds must be between 0 and chunk_seconds (%f), got %f",
			t.ChunkSeconds, t.OverlapSeconds)
	}

	if t.Cooldown <= 0 {
		return fmt.Errorf("cooldown must be positive, got %f", t.Cooldown)
	}

	if t.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts cannot be negative, got %d", t.MaxAttempts)
	}

	return nil
}

// Validate validates notes configuration
func (n *NotesConfig) Validate() error {
	if n.Enabled {
		if n.APIKey == "" {
			return fmt.Errorf("api_key cannot be empty when notes are enabled (set %s)", EnvNotesAPIKey)
		}

		if n.Model == "" {
			return fmt.Errorf("model cannot be empty when notes are enabled")
		}
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetFlushInterval returns the segment flush interval as a time.Duration
func (c *CaptureConfig) GetFlushInterval() time.Duration {
	return time.Duration(c.FlushInterval * float64(time.Second))
}

// GetWarmUp returns the mic warm-up duration as a time.Duration
func (c *CaptureConfig) GetWarmUp() time.Duration {
	return time.Duration(c.WarmUp * float64(time.Second))
}

// GetCooldown returns the rate-limit cool-down as a time.Duration
func (t *TranscriptionConfig) GetCooldown() time.Duration {
	return time.Duration(t.Cooldown * float64(time.Second))
}
