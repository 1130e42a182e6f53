// Package llm provides the multi-provider client used to ask an external
// language model for fix proposals. The provider is best-effort: a missing
// key yields a disabled client, never an error, so rule-based fixes keep
// working without it.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/mantavya0807/Github-Doctor/internal/config"
	"github.com/mantavya0807/Github-Doctor/internal/errors"
)

// Provider identifies the active language-model backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderNone   Provider = "none"
)

// Client is a multi-provider completion client.
type Client struct {
	provider     Provider
	openaiClient *openai.Client
	geminiClient *GeminiClient
	logger       *slog.Logger
	enabled      bool
	model        string
	timeout      time.Duration
}

// NewClient creates a client for the configured provider. When no usable
// key is present the client is returned disabled rather than failing, so
// the surrounding pipeline can degrade to rule-based fixes.
func NewClient(ctx context.Context, cfg config.AIConfig) (*Client, error) {
	logger := slog.Default().With("component", "llm")
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	switch Provider(cfg.Provider) {
	case ProviderOpenAI:
		return newOpenAIClient(cfg, logger, timeout), nil
	case ProviderGemini:
		return newGeminiBackedClient(ctx, cfg, logger, timeout)
	case ProviderNone, "":
		logger.Info("ai provider disabled by configuration")
		return &Client{provider: ProviderNone, logger: logger, timeout: timeout}, nil
	default:
		logger.Warn("unknown ai provider, falling back to gemini", "provider", cfg.Provider)
		return newGeminiBackedClient(ctx, cfg, logger, timeout)
	}
}

func newOpenAIClient(cfg config.AIConfig, logger *slog.Logger, timeout time.Duration) *Client {
	if cfg.OpenAIKey == "" {
		logger.Warn("openai selected but no API key configured, ai fixes disabled")
		return &Client{provider: ProviderNone, logger: logger, timeout: timeout}
	}
	model := cfg.OpenAIModel
	if model == "" {
		model = "gpt-4o-mini"
	}
	logger.Info("openai client initialized", "model", model)
	return &Client{
		provider:     ProviderOpenAI,
		openaiClient: openai.NewClient(cfg.OpenAIKey),
		logger:       logger,
		enabled:      true,
		model:        model,
		timeout:      timeout,
	}
}

func newGeminiBackedClient(ctx context.Context, cfg config.AIConfig, logger *slog.Logger, timeout time.Duration) (*Client, error) {
	if cfg.GeminiKey == "" {
		logger.Warn("gemini selected but no API key configured, ai fixes disabled")
		return &Client{provider: ProviderNone, logger: logger, timeout: timeout}, nil
	}
	model := cfg.GeminiModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	gemini, err := NewGeminiClient(ctx, cfg.GeminiKey, model)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	logger.Info("gemini client initialized", "model", model)
	return &Client{
		provider:     ProviderGemini,
		geminiClient: gemini,
		logger:       logger,
		enabled:      true,
		model:        model,
		timeout:      timeout,
	}, nil
}

// Enabled reports whether a provider is configured and ready.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Provider returns the active backend.
func (c *Client) Provider() Provider {
	return c.provider
}

// CompleteJSON sends a prompt and returns the model's JSON response text.
// Every call carries an explicit timeout so a slow provider degrades the
// batch instead of blocking the controller.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !c.enabled {
		return "", errors.New(errors.KindProviderUnavailable, "no ai provider configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	switch c.provider {
	case ProviderGemini:
		return c.geminiClient.CompleteJSON(ctx, systemPrompt, userPrompt)
	case ProviderOpenAI:
		return c.completeOpenAIJSON(ctx, systemPrompt, userPrompt)
	default:
		return "", errors.New(errors.KindProviderUnavailable, "no ai provider configured")
	}
}

func (c *Client) completeOpenAIJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.openaiClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1, // low temperature for consistent fixes
		MaxTokens:   1024,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.KindProviderUnavailable, "openai completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(errors.KindProviderUnavailable, "openai returned no choices")
	}

	response := resp.Choices[0].Message.Content
	c.logger.Debug("openai completion",
		"model", c.model,
		"prompt_length", len(userPrompt),
		"response_length", len(response),
		"tokens_used", resp.Usage.TotalTokens,
	)
	return response, nil
}
