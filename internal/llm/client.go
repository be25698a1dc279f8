package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Request is one single-turn completion request.
type Request struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
	Tier        ModelTier
	// Referer is forwarded to providers that attribute traffic (OpenRouter).
	Referer string
}

// Message is a chat message in the normalized payload.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Choice is one completion choice in the normalized payload.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage reports token counts in the normalized payload.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the chat-completion payload returned by every provider.
type Completion struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`

	// Raw is the upstream body when the provider already speaks this shape.
	Raw json.RawMessage `json:"-"`
}

// Text returns choices[0].message.content, or "" when there are no choices.
func (c *Completion) Text() string {
	if c == nil || len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Message.Content
}

// Payload returns the JSON body to hand back to callers. The raw upstream
// body is passed through untouched when available.
func (c *Completion) Payload() ([]byte, error) {
	if len(c.Raw) > 0 {
		return c.Raw, nil
	}
	return json.Marshal(c)
}

// newCompletion builds a normalized completion for providers with their own wire format.
func newCompletion(id, model, text, finishReason string, usage Usage) *Completion {
	if id == "" {
		id = "gen-" + uuid.NewString()
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return &Completion{
		ID:      id,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []Choice{{
			Index:        0,
			Message:      Message{Role: "assistant", Content: text},
			FinishReason: finishReason,
		}},
		Usage: usage,
	}
}

// Client is an abstraction over completion providers
type Client interface {
	// Complete runs a single-turn completion
	Complete(ctx context.Context, req Request) (*Completion, error)
	// GetModel returns the provider model for a tier
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// UpstreamError reports a failed call to the upstream provider.
type UpstreamError struct {
	Provider   Provider
	StatusCode int
	Message    string
	Cause      error
}

func (e *UpstreamError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s upstream error", e.Provider)
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		sb.WriteString(": " + e.Message)
	}
	if e.Cause != nil {
		fmt.Fprintf(&sb, ": %v", e.Cause)
	}
	return sb.String()
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// NewClient creates a new completion client based on configuration. The
// returned client is paced when config.RequestsPerSecond is positive.
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	var (
		client Client
		err    error
	)
	switch config.Provider {
	case ProviderGemini:
		client, err = NewGeminiClient(ctx, config, apiKey)
	case ProviderAnthropic:
		client, err = NewAnthropicClient(config, apiKey)
	default:
		client, err = NewOpenRouterClient(config, apiKey)
	}
	if err != nil {
		return nil, err
	}

	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		client = NewPacedClient(client, rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst))
	}
	return client, nil
}

// PacedClient waits on a shared limiter before every upstream call.
type PacedClient struct {
	Client
	limiter *rate.Limiter
}

// NewPacedClient wraps client so calls are paced by limiter.
func NewPacedClient(client Client, limiter *rate.Limiter) *PacedClient {
	return &PacedClient{Client: client, limiter: limiter}
}

// Complete waits for a token, then delegates.
func (p *PacedClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("upstream pacing: %w", err)
	}
	return p.Client.Complete(ctx, req)
}
