package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/resume-builder/internal/assist"
	"github.com/jonathan/resume-builder/internal/editor"
	"github.com/jonathan/resume-builder/internal/observability"
	"github.com/jonathan/resume-builder/internal/proxy"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/jonathan/resume-builder/internal/server/middleware"
	"github.com/jonathan/resume-builder/internal/server/ratelimit"
	"github.com/sirupsen/logrus"
)

// PDFFunc prints a standalone page to PDF.
type PDFFunc func(ctx context.Context, html string, opts rendering.PDFOptions) ([]byte, error)

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	session     *editor.Session
	assist      *assist.Controller
	view        *assist.ViewState
	proxy       *proxy.Handler
	rateLimiter *ratelimit.Limiter
	logger      *logrus.Logger
	pdf         PDFFunc
	pdfOptions  rendering.PDFOptions
	keepAlive   time.Duration
}

// Config holds server configuration
type Config struct {
	Port    int
	Session *editor.Session

	// Assist and View drive POST /assist. A nil Assist disables the endpoint.
	Assist *assist.Controller
	View   *assist.ViewState

	// Proxy, when set, is mounted at /generate on the same listener.
	Proxy *proxy.Handler

	// Limiter is shared with the proxy so one client has one window per endpoint.
	// Nil loads the limiter configuration from the environment.
	Limiter *ratelimit.Limiter

	// Token, when set, is required on every endpoint except /health and /generate.
	Token string

	PDF        PDFFunc
	PDFOptions rendering.PDFOptions
	Logger     *logrus.Logger
}

// keepAliveInterval is the idle time after which the preview stream sends a comment.
const keepAliveInterval = 15 * time.Second

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Session == nil {
		return nil, errors.New("server requires an editor session")
	}

	s := &Server{
		session:     cfg.Session,
		assist:      cfg.Assist,
		view:        cfg.View,
		proxy:       cfg.Proxy,
		rateLimiter: cfg.Limiter,
		logger:      cfg.Logger,
		pdf:         cfg.PDF,
		pdfOptions:  cfg.PDFOptions,
		keepAlive:   keepAliveInterval,
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	if s.rateLimiter == nil {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.LoadConfig())
	}
	if s.pdf == nil {
		s.pdf = rendering.PDF
	}
	if s.view == nil {
		s.view = assist.NewViewState()
	}

	// Setup router
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /templates", s.handleTemplates)

	// Document
	mux.HandleFunc("GET /document", s.handleGetDocument)
	mux.HandleFunc("PUT /document", s.handleImport)
	mux.HandleFunc("GET /document/export", s.handleExport)
	mux.HandleFunc("GET /document/form", s.handleForm)
	mux.HandleFunc("PATCH /document/fields", s.handleSetField)
	mux.HandleFunc("GET /document/pdf", s.handlePDF)

	// Repeated entries
	mux.HandleFunc("GET /document/{kind}", s.handleListEntries)
	mux.HandleFunc("POST /document/{kind}", s.handleAddEntry)
	mux.HandleFunc("PATCH /document/{kind}/{id}", s.handleUpdateEntry)
	mux.HandleFunc("DELETE /document/{kind}/{id}", s.handleRemoveEntry)
	mux.HandleFunc("PUT /document/{kind}/order", s.handleReorder)

	// Skills
	mux.HandleFunc("POST /document/skills", s.handleAddSkill)
	mux.HandleFunc("DELETE /document/skills/{index}", s.handleRemoveSkill)

	// Preview
	mux.HandleFunc("GET /{$}", s.handlePreview)
	mux.HandleFunc("GET /preview", s.handlePreview)
	mux.HandleFunc("GET /preview/stream", s.handlePreviewStream)

	// Assist
	mux.HandleFunc("GET /assist", s.handleAssistState)
	mux.HandleFunc("POST /assist", s.handleAssist)

	var tokens middleware.TokenValidator
	if cfg.Token != "" {
		tokens = middleware.StaticToken(cfg.Token)
	}
	var handler http.Handler = s.withAuth(tokens, s.withCORS(mux))

	if s.proxy != nil {
		// The proxy runs its own origin, token and rate limit policy.
		root := http.NewServeMux()
		s.proxy.Register(root)
		root.Handle("/", handler)
		handler = root
	}

	s.handler = s.withRateLimit(observability.RequestLogger(s.logger, handler))

	// Create HTTP server. WriteTimeout stays unset for the preview stream.
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.httpServer.Addr).Info("Server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Stop rate limiter cleanup goroutine
	s.rateLimiter.Stop()

	s.logger.Info("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withAuth requires the bearer token everywhere but the health check.
func (s *Server) withAuth(tokens middleware.TokenValidator, next http.Handler) http.Handler {
	protected := middleware.AuthMiddleware(tokens)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The mounted proxy counts its own requests against the shared limiter.
		if s.proxy != nil && r.URL.Path == proxy.Path {
			next.ServeHTTP(w, r)
			return
		}

		clientID := ratelimit.ClientID(r)
		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, clientID, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Error encoding JSON response")
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// failure maps err to its status and writes it. Server errors are logged
// and their details kept out of the response.
func (s *Server) failure(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("Request failed")
		s.errorResponse(w, status, "internal server error")
		return
	}
	s.errorResponse(w, status, err.Error())
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, clientID string, info ratelimit.Info) {
	retryAfter := max(int(info.RetryAfter.Round(time.Second).Seconds()), 1)
	response := map[string]any{
		"error":       "Rate limit exceeded. Please try again later.",
		"limit":       info.Limit,
		"remaining":   info.Remaining,
		"reset_at":    info.ResetTime.Format(time.RFC3339),
		"retry_after": retryAfter,
	}
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))

	s.logger.WithFields(logrus.Fields{
		"client":   clientID,
		"limit":    info.Limit,
		"reset_at": info.ResetTime.Format(time.RFC3339),
	}).Warn("Rate limit exceeded")

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
