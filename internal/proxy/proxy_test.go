package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/resume-builder/internal/llm"
	"github.com/jonathan/resume-builder/internal/server/ratelimit"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient records requests and returns a canned completion or error
type fakeClient struct {
	mu       sync.Mutex
	requests []llm.Request
	text     string
	raw      string
	err      error
	block    bool
}

func (f *fakeClient) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	c := &llm.Completion{
		ID:      "gen-1",
		Object:  "chat.completion",
		Model:   "test-model",
		Choices: []llm.Choice{{Message: llm.Message{Role: "assistant", Content: f.text}, FinishReason: "stop"}},
	}
	if f.raw != "" {
		c.Raw = json.RawMessage(f.raw)
	}
	return c, nil
}

func (f *fakeClient) GetModel(llm.ModelTier) string { return "test-model" }
func (f *fakeClient) Close() error                  { return nil }

func (f *fakeClient) calls() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestHandler(client llm.Client, mutate func(*Options)) *Handler {
	opts := Options{Client: client, Logger: quietLogger()}
	if mutate != nil {
		mutate(&opts)
	}
	return New(opts)
}

func post(h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, Path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.4:40000"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg, ok := body["error"].(string)
	require.True(t, ok, "body %s has no error string", rec.Body.String())
	return msg
}

func TestGenerate_Success(t *testing.T) {
	client := &fakeClient{text: "A concise summary."}
	h := newTestHandler(client, nil)

	rec := post(h, `{"prompt":"Write a summary"}`, map[string]string{"Referer": "https://resume.example/editor"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var completion llm.Completion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &completion))
	assert.Equal(t, "A concise summary.", completion.Text())

	calls := client.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Write a summary", calls[0].Prompt)
	assert.Equal(t, DefaultTemperature, calls[0].Temperature)
	assert.Equal(t, DefaultMaxTokens, calls[0].MaxTokens)
	assert.Equal(t, llm.TierLite, calls[0].Tier)
	assert.Equal(t, "https://resume.example/editor", calls[0].Referer)
}

func TestGenerate_RawPayloadPassThrough(t *testing.T) {
	raw := `{"id":"gen-x","object":"chat.completion","model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}],"provider":"Google"}`
	h := newTestHandler(&fakeClient{raw: raw}, nil)

	rec := post(h, `{"prompt":"p"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, raw, rec.Body.String())
}

func TestGenerate_RefererFallsBackToOrigin(t *testing.T) {
	client := &fakeClient{text: "x"}
	h := newTestHandler(client, nil)

	rec := post(h, `{"prompt":"p"}`, map[string]string{"Origin": "https://resume.example"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://resume.example", client.calls()[0].Referer)
	assert.Equal(t, "https://resume.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestGenerate_Clamping(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		wantTemperature float64
		wantMaxTokens   int
	}{
		{"defaults", `{"prompt":"p"}`, 0.7, 300},
		{"in range", `{"prompt":"p","temperature":0.2,"max_tokens":50}`, 0.2, 50},
		{"too hot", `{"prompt":"p","temperature":9}`, 1.5, 300},
		{"negative temperature", `{"prompt":"p","temperature":-1}`, 0, 300},
		{"zero temperature kept", `{"prompt":"p","temperature":0}`, 0, 300},
		{"too many tokens", `{"prompt":"p","max_tokens":100000}`, 0.7, 1024},
		{"zero tokens", `{"prompt":"p","max_tokens":0}`, 0.7, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{text: "x"}
			h := newTestHandler(client, nil)

			rec := post(h, tt.body, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			calls := client.calls()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.wantTemperature, calls[0].Temperature)
			assert.Equal(t, tt.wantMaxTokens, calls[0].MaxTokens)
		})
	}
}

func TestGenerate_Validation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"missing prompt", `{}`, http.StatusBadRequest, "Prompt is required."},
		{"blank prompt", `{"prompt":"   "}`, http.StatusBadRequest, "Prompt is required."},
		{"malformed json", `{"prompt":`, http.StatusBadRequest, "Invalid JSON body."},
		{"wrong type", `{"prompt":42}`, http.StatusBadRequest, "Invalid JSON body."},
		{"prompt too long", `{"prompt":"` + strings.Repeat("é", 11) + `"}`, http.StatusRequestEntityTooLarge, "maximum length of 10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{text: "x"}
			h := newTestHandler(client, func(o *Options) { o.MaxPromptLength = 10 })

			rec := post(h, tt.body, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, errorBody(t, rec), tt.wantError)
			assert.Empty(t, client.calls(), "rejected before any outbound call")
		})
	}
}

func TestGenerate_PromptAtLimitCountsRunes(t *testing.T) {
	client := &fakeClient{text: "x"}
	h := newTestHandler(client, func(o *Options) { o.MaxPromptLength = 10 })

	rec := post(h, `{"prompt":"`+strings.Repeat("é", 10)+`"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGenerate_BodyTooLarge(t *testing.T) {
	client := &fakeClient{text: "x"}
	h := newTestHandler(client, func(o *Options) { o.MaxBodyBytes = 64 })

	rec := post(h, `{"prompt":"`+strings.Repeat("a", 200)+`"}`, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Request body too large.", errorBody(t, rec))
	assert.Empty(t, client.calls())
}

func TestGenerate_MissingCredential(t *testing.T) {
	h := newTestHandler(nil, nil)

	rec := post(h, `{"prompt":"p"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, errorBody(t, rec), "API key not configured")

	// Validation still comes first.
	rec = post(h, `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerate_UpstreamFailure(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantError string
	}{
		{"upstream message", &llm.UpstreamError{Provider: llm.ProviderOpenRouter, StatusCode: 402, Message: "Insufficient credits"}, "Insufficient credits"},
		{"transport", errors.New("dial tcp: connection refused"), "Upstream request failed."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&fakeClient{err: tt.err}, nil)

			rec := post(h, `{"prompt":"p"}`, nil)
			assert.Equal(t, http.StatusBadGateway, rec.Code)
			assert.Equal(t, tt.wantError, errorBody(t, rec))
		})
	}
}

func TestGenerate_UpstreamTimeout(t *testing.T) {
	h := newTestHandler(&fakeClient{block: true}, func(o *Options) { o.Timeout = 20 * time.Millisecond })

	rec := post(h, `{"prompt":"p"}`, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Upstream request timed out.", errorBody(t, rec))
}

func TestGenerate_Methods(t *testing.T) {
	h := newTestHandler(&fakeClient{text: "x"}, nil)

	req := httptest.NewRequest(http.MethodOptions, Path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, Path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.Equal(t, "Method not allowed", errorBody(t, rec))
	}
}

func TestGenerate_ForbiddenOrigin(t *testing.T) {
	client := &fakeClient{text: "x"}
	h := newTestHandler(client, func(o *Options) {
		o.AllowedOrigins = []string{"https://resume.example"}
		o.Token = "secret"
	})

	// Origin is checked before the token.
	rec := post(h, `{"prompt":"p"}`, map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, Path, nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	assert.Empty(t, client.calls())
}

func TestGenerate_Token(t *testing.T) {
	client := &fakeClient{text: "x"}
	h := newTestHandler(client, func(o *Options) { o.Token = "secret" })

	rec := post(h, `{"prompt":"p"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(h, `{"prompt":"p"}`, map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(h, `{"prompt":"p"}`, map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, client.calls(), 1)
}

func TestGenerate_RateLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter(&ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: Path, Method: http.MethodPost, Limit: 2, Window: time.Minute},
		},
	})
	defer limiter.Stop()

	client := &fakeClient{text: "x"}
	h := newTestHandler(client, func(o *Options) {
		o.Limiter = limiter
		o.Token = "secret"
	})
	auth := map[string]string{"Authorization": "Bearer secret"}

	// Unauthorized requests do not consume the window.
	assert.Equal(t, http.StatusUnauthorized, post(h, `{"prompt":"p"}`, nil).Code)

	assert.Equal(t, http.StatusOK, post(h, `{"prompt":"p"}`, auth).Code)
	// Rejected bodies still count against the window.
	assert.Equal(t, http.StatusBadRequest, post(h, `{}`, auth).Code)

	rec := post(h, `{"prompt":"p"}`, auth)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, errorBody(t, rec))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.NotEqual(t, "0", rec.Header().Get("Retry-After"))
	assert.Len(t, client.calls(), 1)

	// A different client has its own window.
	req := httptest.NewRequest(http.MethodPost, Path, strings.NewReader(`{"prompt":"p"}`))
	req.RemoteAddr = "203.0.113.9:1234"
	req.Header.Set("Authorization", "Bearer secret")
	other := httptest.NewRecorder()
	h.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	newTestHandler(&fakeClient{text: "routed"}, nil).Register(mux)

	rec := post(mux, `{"prompt":"p"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "routed")
}

func TestGenerateRequest_Sampling(t *testing.T) {
	hot, many := 3.0, 5000
	req := GenerateRequest{Temperature: &hot, MaxTokens: &many}

	temperature, maxTokens := req.Sampling()
	assert.Equal(t, MaxTemperature, temperature)
	assert.Equal(t, MaxMaxTokens, maxTokens)
}
