// Package llm provides the upstream completion providers used by the proxy.
// Every provider is normalized to the chat-completion payload shape.
package llm

import (
	"fmt"
	"strings"
)

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for short completions such as a summary or a bullet list
	TierLite ModelTier = "lite"
	// TierStandard is for longer or more careful rewrites
	TierStandard ModelTier = "standard"
	// TierAdvanced is the most capable model of the provider
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an upstream completion provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderOpenRouter is the OpenAI-compatible OpenRouter gateway
	ProviderOpenRouter Provider = "openrouter"
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderAnthropic is the Anthropic/Claude provider
	ProviderAnthropic Provider = "anthropic"
)

// Defaults for the OpenRouter gateway
const (
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1/"
	DefaultAppTitle          = "Resume Builder App"
	DefaultReferer           = "https://resume-builder.vercel.app"
)

// Config holds the model configuration for the application
type Config struct {
	Provider Provider
	Models   map[ModelTier]string

	// BaseURL overrides the provider endpoint. Only OpenRouter uses it by default.
	BaseURL string
	// AppTitle and Referer identify the application to OpenRouter.
	AppTitle string
	Referer  string

	// RequestsPerSecond paces outbound calls; zero disables pacing.
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
}

// ParseProvider validates a provider name, case-insensitively.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderOpenRouter, ProviderGemini, ProviderAnthropic:
		return p, nil
	case "":
		return ProviderOpenRouter, nil
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// DefaultConfig returns the default configuration (OpenRouter)
func DefaultConfig() *Config {
	return DefaultOpenRouterConfig()
}

// ConfigFor returns the default configuration of a provider.
func ConfigFor(provider Provider) *Config {
	switch provider {
	case ProviderGemini:
		return DefaultGeminiConfig()
	case ProviderAnthropic:
		return DefaultAnthropicConfig()
	default:
		return DefaultOpenRouterConfig()
	}
}

// DefaultOpenRouterConfig returns the default OpenRouter configuration
func DefaultOpenRouterConfig() *Config {
	return &Config{
		Provider: ProviderOpenRouter,
		Models: map[ModelTier]string{
			TierLite:     "google/gemini-2.5-flash-lite",
			TierStandard: "google/gemini-2.5-flash",
			TierAdvanced: "google/gemini-2.5-pro",
		},
		BaseURL:           DefaultOpenRouterBaseURL,
		AppTitle:          DefaultAppTitle,
		Referer:           DefaultReferer,
		RequestsPerSecond: 5,
		Burst:             10,
		MaxRetries:        1,
	}
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		RequestsPerSecond: 5,
		Burst:             10,
		MaxRetries:        1,
	}
}

// DefaultAnthropicConfig returns the default Anthropic configuration
func DefaultAnthropicConfig() *Config {
	return &Config{
		Provider: ProviderAnthropic,
		Models: map[ModelTier]string{
			TierLite:     "claude-3-5-haiku-latest",
			TierStandard: "claude-sonnet-4-0",
			TierAdvanced: "claude-opus-4-0",
		},
		RequestsPerSecond: 5,
		Burst:             10,
		MaxRetries:        1,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a copy of the Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return &newConfig
}
