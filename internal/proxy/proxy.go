// Package proxy implements the completion proxy: a single POST /generate
// endpoint that forwards a prompt to the upstream provider so the provider
// credential never leaves the server.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/llm"
	"github.com/jonathan/resume-builder/internal/server/middleware"
	"github.com/jonathan/resume-builder/internal/server/ratelimit"
	"github.com/sirupsen/logrus"
)

// Path is the route served by the proxy.
const Path = "/generate"

// Server-side sampling bounds. Client-supplied values are never trusted.
const (
	DefaultTemperature = 0.7
	MinTemperature     = 0.0
	MaxTemperature     = 1.5

	DefaultMaxTokens = 300
	MinMaxTokens     = 1
	MaxMaxTokens     = 1024

	DefaultMaxPromptLength = 4000
	DefaultMaxBodyBytes    = 16 << 10
	DefaultTimeout         = 30 * time.Second
)

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	Prompt      string   `json:"prompt" validate:"required"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// Sampling returns the clamped temperature and token budget of the request.
func (r *GenerateRequest) Sampling() (float64, int) {
	temperature := DefaultTemperature
	if r.Temperature != nil && !math.IsNaN(*r.Temperature) {
		temperature = math.Min(math.Max(*r.Temperature, MinTemperature), MaxTemperature)
	}
	maxTokens := DefaultMaxTokens
	if r.MaxTokens != nil {
		maxTokens = min(max(*r.MaxTokens, MinMaxTokens), MaxMaxTokens)
	}
	return temperature, maxTokens
}

// Options configures a Handler.
type Options struct {
	// Client calls the upstream provider. A nil client means the credential
	// is not configured and every valid request fails with 500.
	Client  llm.Client
	Limiter *ratelimit.Limiter
	Logger  *logrus.Logger

	// Token, when set, is required as "Authorization: Bearer <token>". It may be a bcrypt hash.
	Token          string
	AllowedOrigins []string

	MaxPromptLength int
	MaxBodyBytes    int64
	Timeout         time.Duration
	Tier            llm.ModelTier
}

// Handler serves POST /generate.
type Handler struct {
	client    llm.Client
	limiter   *ratelimit.Limiter
	logger    *logrus.Logger
	origins   []string
	maxPrompt int
	maxBody   int64
	timeout   time.Duration
	tier      llm.ModelTier
	validate  *validator.Validate

	chain http.Handler
}

// New creates a proxy handler.
func New(opts Options) *Handler {
	h := &Handler{
		client:    opts.Client,
		limiter:   opts.Limiter,
		logger:    opts.Logger,
		origins:   opts.AllowedOrigins,
		maxPrompt: opts.MaxPromptLength,
		maxBody:   opts.MaxBodyBytes,
		timeout:   opts.Timeout,
		tier:      opts.Tier,
		validate:  validator.New(),
	}
	if h.logger == nil {
		h.logger = logrus.StandardLogger()
	}
	if h.maxPrompt <= 0 {
		h.maxPrompt = DefaultMaxPromptLength
	}
	if h.maxBody <= 0 {
		h.maxBody = DefaultMaxBodyBytes
	}
	if h.timeout <= 0 {
		h.timeout = DefaultTimeout
	}
	if h.tier == "" {
		h.tier = llm.TierLite
	}

	var tokens middleware.TokenValidator
	if opts.Token != "" {
		tokens = middleware.StaticToken(opts.Token)
	}

	h.chain = middleware.OriginMiddleware(h.origins)(
		middleware.AuthMiddleware(tokens)(
			h.withRateLimit(http.HandlerFunc(h.generate)),
		),
	)
	return h
}

// Register mounts the handler on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle(Path, h)
}

// ServeHTTP handles preflight and method checks, then runs the request policy:
// origin, token, rate limit, body size, decode, validation, credential, upstream.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin != "" && middleware.OriginAllowed(origin, h.origins) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)

	switch r.Method {
	case http.MethodOptions:
		if !middleware.OriginAllowed(origin, h.origins) {
			errorResponse(w, http.StatusForbidden, "origin not allowed")
			return
		}
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		w.Header().Set("Allow", "POST, OPTIONS")
		errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	h.chain.ServeHTTP(w, r)
}

// withRateLimit applies the per-client fixed window.
func (h *Handler) withRateLimit(next http.Handler) http.Handler {
	if h.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := ratelimit.ClientID(r)
		allowed, info := h.limiter.Allow(clientID, Path, http.MethodPost)
		if !allowed {
			retryAfter := max(int(math.Ceil(info.RetryAfter.Seconds())), 1)
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))

			h.logger.WithFields(logrus.Fields{
				"client":      clientID,
				"limit":       info.Limit,
				"retry_after": retryAfter,
			}).Warn("Rate limit exceeded")

			jsonResponse(w, http.StatusTooManyRequests, map[string]any{
				"error":       "Rate limit exceeded. Please try again later.",
				"retry_after": retryAfter,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// generate decodes, validates and forwards one prompt.
func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorResponse(w, http.StatusRequestEntityTooLarge, "Request body too large.")
			return
		}
		errorResponse(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	req.Prompt = strings.TrimSpace(req.Prompt)
	if err := h.validate.Struct(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Prompt is required.")
		return
	}
	if err := h.validate.Var(req.Prompt, fmt.Sprintf("max=%d", h.maxPrompt)); err != nil {
		errorResponse(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Prompt exceeds the maximum length of %d characters.", h.maxPrompt))
		return
	}

	if h.client == nil {
		h.logger.Error("Upstream API key is not configured")
		errorResponse(w, http.StatusInternalServerError, "API key not configured on the server.")
		return
	}

	temperature, maxTokens := req.Sampling()
	referer := r.Header.Get("Referer")
	if referer == "" {
		referer = r.Header.Get("Origin")
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	start := time.Now()
	completion, err := h.client.Complete(ctx, llm.Request{
		Prompt:      req.Prompt,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Tier:        h.tier,
		Referer:     referer,
	})
	fields := logrus.Fields{
		"request_id":  w.Header().Get("X-Request-ID"),
		"model":       h.client.GetModel(h.tier),
		"temperature": temperature,
		"max_tokens":  maxTokens,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		h.logger.WithFields(fields).WithError(err).Error("Upstream completion failed")
		errorResponse(w, http.StatusBadGateway, upstreamMessage(err))
		return
	}

	payload, err := completion.Payload()
	if err != nil {
		h.logger.WithFields(fields).WithError(err).Error("Failed to encode completion")
		errorResponse(w, http.StatusBadGateway, "Failed to encode upstream response.")
		return
	}

	h.logger.WithFields(fields).Info("Completion forwarded")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// upstreamMessage extracts a caller-safe message from an upstream failure.
func upstreamMessage(err error) string {
	var upstream *llm.UpstreamError
	if errors.As(err, &upstream) && upstream.Message != "" {
		return upstream.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Upstream request timed out."
	}
	return "Upstream request failed."
}

// jsonResponse writes a JSON response
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// errorResponse writes an error JSON response
func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}
