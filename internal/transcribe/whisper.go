package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// WhisperConfig holds connection parameters for an OpenAI-compatible
// transcription API. BaseURL may point at any compatible provider.
type WhisperConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Prompt  string
}

// WhisperBackend transcribes chunks through the OpenAI audio transcription
// endpoint (or any API speaking the same protocol).
type WhisperBackend struct {
	client *openai.Client
	cfg    WhisperConfig
	logger *slog.Logger
}

// NewWhisperBackend creates a Whisper backend. The API key is required; the
// base URL and model fall back to the OpenAI defaults.
func NewWhisperBackend(cfg WhisperConfig, logger *slog.Logger) (*WhisperBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("whisper backend requires an API key")
	}
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &WhisperBackend{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Transcribe submits one WAV chunk and maps the verbose response into
// timestamped segments. HTTP 429 responses surface as ErrRateLimited so the
// engine can wait and resubmit.
func (b *WhisperBackend) Transcribe(ctx context.Context, req Request) (*Result, error) {
	resp, err := b.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    b.cfg.Model,
		FilePath: "chunk.wav",
		Reader:   bytes.NewReader(req.Audio),
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: req.Language,
		Prompt:   b.cfg.Prompt,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return nil, fmt.Errorf("transcription request failed: %w", err)
	}

	result := &Result{Text: strings.TrimSpace(resp.Text)}
	for _, s := range resp.Segments {
		result.Segments = append(result.Segments, Segment{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
	}
	return result, nil
}
