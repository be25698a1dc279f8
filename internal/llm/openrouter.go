package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenRouterClient implements Client for OpenRouter's OpenAI-compatible API
type OpenRouterClient struct {
	client openai.Client
	config *Config
}

// NewOpenRouterClient creates a new OpenRouter client
func NewOpenRouterClient(config *Config, apiKey string) (*OpenRouterClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenRouterBaseURL
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(config.MaxRetries),
	}
	if config.AppTitle != "" {
		opts = append(opts, option.WithHeader("X-Title", config.AppTitle))
	}

	return &OpenRouterClient{
		client: openai.NewClient(opts...),
		config: config,
	}, nil
}

// Complete sends a single user message and passes the upstream payload through.
func (c *OpenRouterClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	modelName := c.config.GetModel(req.Tier)
	if modelName == "" {
		return nil, fmt.Errorf("no model configured for tier %s", req.Tier)
	}

	referer := req.Referer
	if referer == "" {
		referer = c.config.Referer
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(modelName),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(req.Prompt)},
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
	}, option.WithHeader("HTTP-Referer", referer))
	if err != nil {
		upstreamErr := &UpstreamError{Provider: ProviderOpenRouter, Cause: err}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			upstreamErr.StatusCode = apiErr.StatusCode
			upstreamErr.Cause = nil
			upstreamErr.Message = apiErr.Message
		}
		return nil, upstreamErr
	}

	if len(resp.Choices) == 0 {
		return nil, &UpstreamError{Provider: ProviderOpenRouter, Message: "no choices in response"}
	}

	completion := &Completion{
		ID:      resp.ID,
		Object:  string(resp.Object),
		Created: resp.Created,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	for _, choice := range resp.Choices {
		completion.Choices = append(completion.Choices, Choice{
			Index:        int(choice.Index),
			Message:      Message{Role: string(choice.Message.Role), Content: choice.Message.Content},
			FinishReason: choice.FinishReason,
		})
	}
	if raw := resp.RawJSON(); raw != "" && json.Valid([]byte(raw)) {
		completion.Raw = json.RawMessage(raw)
	}
	return completion, nil
}

// GetModel returns the model name for a tier
func (c *OpenRouterClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op; the HTTP client needs no teardown
func (c *OpenRouterClient) Close() error {
	return nil
}
