// Package config provides configuration loading and validation for the CLI and servers.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults, environment variables
// and CLI flags override file values.
type Config struct {
	Server ServerConfig `json:"server" yaml:"server"`
	Proxy  ProxyConfig  `json:"proxy" yaml:"proxy"`
	Assist AssistConfig `json:"assist" yaml:"assist"`
	Render RenderConfig `json:"render" yaml:"render"`
	Log    LogConfig    `json:"log" yaml:"log"`
}

// ServerConfig configures the editor service.
type ServerConfig struct {
	Port      int    `json:"port,omitempty" yaml:"port,omitempty" validate:"min=0,max=65535"`
	Token     string `json:"token,omitempty" yaml:"token,omitempty"`           // Optional static API token, clear or bcrypt
	Seed      string `json:"seed,omitempty" yaml:"seed,omitempty"`             // Path to a document to start from
	WithProxy bool   `json:"with_proxy,omitempty" yaml:"with_proxy,omitempty"` // Mount POST /generate in the editor service
}

// ProxyConfig configures the completion proxy.
type ProxyConfig struct {
	Port            int      `json:"port,omitempty" yaml:"port,omitempty" validate:"min=0,max=65535"`
	Provider        string   `json:"provider,omitempty" yaml:"provider,omitempty" validate:"omitempty,oneof=openrouter gemini anthropic"`
	Model           string   `json:"model,omitempty" yaml:"model,omitempty"`
	BaseURL         string   `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
	Token           string   `json:"token,omitempty" yaml:"token,omitempty"`
	AllowedOrigins  []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
	MaxPromptLength int      `json:"max_prompt_length,omitempty" yaml:"max_prompt_length,omitempty" validate:"min=0"`
	MaxBodyBytes    int64    `json:"max_body_bytes,omitempty" yaml:"max_body_bytes,omitempty" validate:"min=0"`
	TimeoutSeconds  int      `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"min=0"`

	// APIKey is read from the provider's environment variable only.
	APIKey string `json:"-" yaml:"-"`
}

// AssistConfig configures how the editor reaches the proxy.
type AssistConfig struct {
	ProxyURL       string  `json:"proxy_url,omitempty" yaml:"proxy_url,omitempty" validate:"omitempty,url"`
	Token          string  `json:"token,omitempty" yaml:"token,omitempty"`
	Temperature    float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" validate:"min=0,max=1.5"`
	MaxTokens      int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" validate:"min=0,max=1024"`
	TimeoutSeconds int     `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"min=0"`
}

// RenderConfig configures PDF export.
type RenderConfig struct {
	ChromePath        string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`
	PDFTimeoutSeconds int    `json:"pdf_timeout_seconds,omitempty" yaml:"pdf_timeout_seconds,omitempty" validate:"min=0"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `json:"format,omitempty" yaml:"format,omitempty" validate:"omitempty,oneof=text json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: 8080},
		Proxy: ProxyConfig{
			Port:            8081,
			Provider:        "openrouter",
			MaxPromptLength: 4000,
			MaxBodyBytes:    16 << 10,
			TimeoutSeconds:  30,
		},
		Assist: AssistConfig{
			Temperature:    0.7,
			MaxTokens:      300,
			TimeoutSeconds: 30,
		},
		Render: RenderConfig{PDFTimeoutSeconds: 60},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Load builds the effective configuration: file (when path is set), then
// environment, then defaults for whatever is still empty. The result is validated.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.ApplyEnv()
	merged := cfg.MergeWithDefaults(Default())
	merged.ApplyProviderKey()

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// Server
	if result.Server.Port == 0 {
		result.Server.Port = defaults.Server.Port
	}
	if result.Server.Token == "" {
		result.Server.Token = defaults.Server.Token
	}
	if result.Server.Seed == "" {
		result.Server.Seed = defaults.Server.Seed
	}

	// Proxy
	if result.Proxy.Port == 0 {
		result.Proxy.Port = defaults.Proxy.Port
	}
	if result.Proxy.Provider == "" {
		result.Proxy.Provider = defaults.Proxy.Provider
	}
	if result.Proxy.Model == "" {
		result.Proxy.Model = defaults.Proxy.Model
	}
	if result.Proxy.BaseURL == "" {
		result.Proxy.BaseURL = defaults.Proxy.BaseURL
	}
	if result.Proxy.Token == "" {
		result.Proxy.Token = defaults.Proxy.Token
	}
	if len(result.Proxy.AllowedOrigins) == 0 {
		result.Proxy.AllowedOrigins = defaults.Proxy.AllowedOrigins
	}
	if result.Proxy.MaxPromptLength == 0 {
		result.Proxy.MaxPromptLength = defaults.Proxy.MaxPromptLength
	}
	if result.Proxy.MaxBodyBytes == 0 {
		result.Proxy.MaxBodyBytes = defaults.Proxy.MaxBodyBytes
	}
	if result.Proxy.TimeoutSeconds == 0 {
		result.Proxy.TimeoutSeconds = defaults.Proxy.TimeoutSeconds
	}

	// Assist
	if result.Assist.ProxyURL == "" {
		result.Assist.ProxyURL = defaults.Assist.ProxyURL
	}
	if result.Assist.Token == "" {
		result.Assist.Token = defaults.Assist.Token
	}
	if result.Assist.Temperature == 0 {
		result.Assist.Temperature = defaults.Assist.Temperature
	}
	if result.Assist.MaxTokens == 0 {
		result.Assist.MaxTokens = defaults.Assist.MaxTokens
	}
	if result.Assist.TimeoutSeconds == 0 {
		result.Assist.TimeoutSeconds = defaults.Assist.TimeoutSeconds
	}

	// Render
	if result.Render.ChromePath == "" {
		result.Render.ChromePath = defaults.Render.ChromePath
	}
	if result.Render.PDFTimeoutSeconds == 0 {
		result.Render.PDFTimeoutSeconds = defaults.Render.PDFTimeoutSeconds
	}

	// Log
	if result.Log.Level == "" {
		result.Log.Level = defaults.Log.Level
	}
	if result.Log.Format == "" {
		result.Log.Format = defaults.Log.Format
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// ProxyTimeout returns the upstream timeout of the proxy.
func (c *Config) ProxyTimeout() time.Duration {
	return time.Duration(c.Proxy.TimeoutSeconds) * time.Second
}

// AssistTimeout returns the timeout of calls from the editor to the proxy.
func (c *Config) AssistTimeout() time.Duration {
	return time.Duration(c.Assist.TimeoutSeconds) * time.Second
}

// PDFTimeout returns the timeout of one PDF export.
func (c *Config) PDFTimeout() time.Duration {
	return time.Duration(c.Render.PDFTimeoutSeconds) * time.Second
}
