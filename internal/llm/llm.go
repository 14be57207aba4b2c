package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Provider is the capability the conversation core needs from an AI
// text-generation backend. The channel names a routing destination within
// the provider; an empty channel uses the configured default.
type Provider interface {
	Generate(ctx context.Context, channel, prompt string) (string, error)
}

// Client wraps an OpenAI-compatible API client. One implementation is
// chosen at startup; channels map to model names.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// New creates a new LLM client. A non-positive timeout disables the
// per-call deadline.
func New(baseURL, apiKey, modelName string, timeout time.Duration) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		timeout: timeout,
	}
}

// Generate sends the composed prompt to the provider and returns the
// response content. A timeout counts as a provider failure.
func (c *Client) Generate(ctx context.Context, channel, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	model := c.model
	if channel != "" {
		model = channel
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	content := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "channel", channel, "model", model, "tokens", resp.Usage.TotalTokens)
	return content, nil
}

// Ping verifies the endpoint is reachable by listing models.
func (c *Client) Ping(ctx context.Context) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}
