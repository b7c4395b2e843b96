// Package notes produces meeting notes from a merged conversation transcript
// using a chat completion model.
package notes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = `You are an assistant that writes concise meeting notes.
Given a timestamped conversation transcript, produce markdown notes with
these sections: Summary, Key Points, Decisions, Action Items. Keep each
bullet short and attribute action items to a speaker when the transcript
makes the owner clear.`

// Summarizer turns a transcript document into meeting notes.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// ChatConfig holds connection parameters for an OpenAI-compatible chat API.
type ChatConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// ChatSummarizer generates notes through a chat completion endpoint.
type ChatSummarizer struct {
	client *openai.Client
	cfg    ChatConfig
	logger *slog.Logger
}

// NewChatSummarizer creates a summarizer. The API key and model are required.
func NewChatSummarizer(cfg ChatConfig, logger *slog.Logger) (*ChatSummarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("summarizer requires an API key")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("summarizer requires a model name")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &ChatSummarizer{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Summarize sends the transcript to the chat model and returns the generated
// markdown notes.
func (s *ChatSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", fmt.Errorf("transcript is empty, nothing to summarize")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
	})
	if err != nil {
		return "", fmt.Errorf("meeting notes generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat model returned no choices")
	}

	notes := strings.TrimSpace(resp.Choices[0].Message.Content)
	if notes == "" {
		return "", fmt.Errorf("chat model returned empty notes")
	}

	s.logger.Info("Generated meeting notes",
		slog.String("model", s.cfg.Model),
		slog.Int("notes_bytes", len(notes)),
	)
	return notes, nil
}
