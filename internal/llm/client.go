// Copyright (c) 2025 RepoLaunch Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package llm provides the model client used by the workflow phases.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"repolaunch/internal/conversation"
)

// Client submits an ordered message list to a language model and returns
// its response. Implementations handle their own transient-failure retry;
// errors reaching the caller are terminal for the phase.
type Client interface {
	Invoke(ctx context.Context, msgs []conversation.Message) (conversation.Message, error)
}

const (
	invokeAttempts   = 3
	retryBaseDelay   = 5 * time.Second
	retryMaxDelay    = 10 * time.Second
	retryJitterDelay = 3 * time.Second
)

// OpenAIClient calls an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	transcript  *Transcript
	logger      *slog.Logger
}

// Options configures an OpenAIClient.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32

	// TranscriptDir enables per-invocation transcript files when set.
	TranscriptDir string

	Logger *slog.Logger
}

// NewOpenAIClient creates a client for the configured endpoint.
func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("model API key is not set")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("model name is required")
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var transcript *Transcript
	if opts.TranscriptDir != "" {
		transcript = NewTranscript(opts.TranscriptDir)
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		temperature: opts.Temperature,
		transcript:  transcript,
		logger:      logger,
	}, nil
}

// Invoke sends the conversation and returns the model's reply. Transient
// failures are retried with jittered backoff before the error propagates.
func (c *OpenAIClient) Invoke(ctx context.Context, msgs []conversation.Message) (conversation.Message, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    toChatMessages(msgs),
	}

	var resp openai.ChatCompletionResponse
	var err error
	for attempt := 1; attempt <= invokeAttempts; attempt++ {
		resp, err = c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}
		c.logger.Warn("model invocation failed", "attempt", attempt, "error", err)
		if attempt == invokeAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return conversation.Message{}, ctx.Err()
		case <-time.After(retryDelay(attempt)):
		}
	}
	if err != nil {
		return conversation.Message{}, fmt.Errorf("model invocation failed after %d attempts: %w", invokeAttempts, err)
	}

	if len(resp.Choices) == 0 {
		return conversation.Message{}, fmt.Errorf("model returned no choices")
	}
	reply := conversation.Assistant(resp.Choices[0].Message.Content)

	if c.transcript != nil {
		if werr := c.transcript.Record(msgs, reply); werr != nil {
			c.logger.Warn("failed to write llm transcript", "error", werr)
		}
	}
	return reply, nil
}

// retryDelay grows exponentially from the base delay, capped, plus jitter.
func retryDelay(attempt int) time.Duration {
	d := retryBaseDelay << (attempt - 1)
	if d > retryMaxDelay {
		d = retryMaxDelay
	}
	return d + time.Duration(rand.Int63n(int64(retryJitterDelay)))
}

func toChatMessages(msgs []conversation.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case conversation.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case conversation.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
