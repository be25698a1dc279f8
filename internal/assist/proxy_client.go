package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/resume-builder/internal/llm"
)

// Completer returns generated text for an instruction.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// CompleterFunc adapts a plain function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	return f(ctx, prompt, temperature, maxTokens)
}

// maxResponseBytes caps how much of a proxy response is read.
const maxResponseBytes = 1 << 20

// ProxyClient calls the completion proxy's POST /generate. The provider
// credential lives only on the proxy; Token is the optional proxy access token.
type ProxyClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewProxyClient creates a client for the proxy at baseURL.
func NewProxyClient(baseURL, token string, timeout time.Duration) *ProxyClient {
	return &ProxyClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// ProxyError reports a non-200 proxy response.
type ProxyError struct {
	StatusCode int
	Message    string
}

func (e *ProxyError) Error() string {
	return fmt.Sprintf("proxy returned %d: %s", e.StatusCode, e.Message)
}

type generateRequest struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Complete posts the prompt and returns choices[0].message.content.
func (c *ProxyClient) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	body, err := json.Marshal(generateRequest{Prompt: prompt, Temperature: temperature, MaxTokens: maxTokens})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("proxy request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read proxy response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
		}
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(data, &errBody) == nil && errBody.Error != "" {
			msg = errBody.Error
		}
		return "", &ProxyError{StatusCode: resp.StatusCode, Message: msg}
	}

	var completion llm.Completion
	if err := json.Unmarshal(data, &completion); err != nil {
		return "", fmt.Errorf("malformed proxy response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("malformed proxy response: no choices")
	}
	return completion.Text(), nil
}
