// Package genai provides optional GenAI-enhanced operations using the OpenAI API.
//
// The client is a best-effort accuracy booster: every caller must carry a
// heuristic fallback and treat any failure here as "service unavailable".
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Default client configuration constants
const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = string(openai.ChatModelGPT4oMini)
	// DefaultTimeout bounds every completion call so a slow service can
	// never stall a conversation turn.
	DefaultTimeout = 20 * time.Second
)

// ClientInterface defines the GenAI operations consumed by the flow package.
// A nil ClientInterface is valid everywhere and selects the heuristic path.
type ClientInterface interface {
	// GeneratePrompt generates a completion for a system/user prompt pair.
	GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL sets a non-default API base URL (e.g. an OpenAI-compatible proxy).
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewClient initializes a new GenAI client from options. The API key is required.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key not set")
	}
	requestOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	slog.Debug("genai.NewClient: client created", "model", model, "base_url_set", cfg.BaseURL != "", "timeout", timeout)
	return &Client{
		client:  openai.NewClient(requestOpts...),
		model:   model,
		timeout: timeout,
	}, nil
}

// GeneratePrompt generates a response based on the provided system and user prompts.
func (c *Client) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.GenerateWithMessages(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(userPrompt),
	})
}

// GenerateWithMessages generates a response for a full message list.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	})
	if err != nil {
		slog.Warn("genai.GenerateWithMessages: completion failed", "error", err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
