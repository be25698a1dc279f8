package config

import (
	"os"
	"strconv"
	"strings"
)

// APIKeyEnv returns the environment variable holding the credential of a provider.
func APIKeyEnv(provider string) string {
	switch provider {
	case "gemini":
		return "GEMINI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	default:
		return "OPENROUTER_API_KEY"
	}
}

// ApplyEnv overrides configuration values with environment variables that are set.
func (c *Config) ApplyEnv() {
	c.Server.Port = getEnvInt("RESUME_PORT", c.Server.Port)
	c.Server.Token = getEnvString("RESUME_API_TOKEN", c.Server.Token)
	c.Server.Seed = getEnvString("RESUME_SEED", c.Server.Seed)

	c.Proxy.Port = getEnvInt("PROXY_PORT", c.Proxy.Port)
	c.Proxy.Provider = getEnvString("PROXY_PROVIDER", c.Proxy.Provider)
	c.Proxy.Model = getEnvString("PROXY_MODEL", c.Proxy.Model)
	c.Proxy.BaseURL = getEnvString("PROXY_BASE_URL", c.Proxy.BaseURL)
	c.Proxy.Token = getEnvString("PROXY_TOKEN", c.Proxy.Token)
	if origins := parseList(os.Getenv("PROXY_ALLOWED_ORIGINS")); len(origins) > 0 {
		c.Proxy.AllowedOrigins = origins
	}
	c.Proxy.MaxPromptLength = getEnvInt("PROXY_MAX_PROMPT_LENGTH", c.Proxy.MaxPromptLength)

	c.Assist.ProxyURL = getEnvString("RESUME_PROXY_URL", c.Assist.ProxyURL)
	c.Assist.Token = getEnvString("RESUME_PROXY_TOKEN", c.Assist.Token)

	c.Render.ChromePath = getEnvString("RESUME_CHROME_PATH", c.Render.ChromePath)

	c.Log.Level = getEnvString("RESUME_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvString("RESUME_LOG_FORMAT", c.Log.Format)
}

// ApplyProviderKey reads the credential of the configured provider.
func (c *Config) ApplyProviderKey() {
	c.Proxy.APIKey = getEnvString(APIKeyEnv(c.Proxy.Provider), c.Proxy.APIKey)
}

// getEnvString gets an environment variable as a string with a default value.
func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// parseList splits a comma-separated list, dropping blanks.
func parseList(list string) []string {
	var result []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
