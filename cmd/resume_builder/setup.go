package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/editor"
	"github.com/jonathan/resume-builder/internal/llm"
	"github.com/jonathan/resume-builder/internal/observability"
	"github.com/jonathan/resume-builder/internal/proxy"
	"github.com/jonathan/resume-builder/internal/server/ratelimit"
	"github.com/jonathan/resume-builder/internal/types"
	"github.com/sirupsen/logrus"
)

// loadSettings loads the layered configuration and builds the logger from it.
func loadSettings() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

// loadDocument reads a resume document in the import format. An empty path
// yields the seed document.
func loadDocument(path string) (*types.ResumeDocument, error) {
	if path == "" {
		return types.SeedDocument(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}

	doc, err := editor.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", path, err)
	}
	return doc, nil
}

// writeOutput writes data to path, creating or truncating it.
func writeOutput(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// newUpstreamClient builds the provider client of the proxy. Without a
// credential it returns nil and the proxy answers every valid request with 500.
func newUpstreamClient(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (llm.Client, error) {
	provider, err := llm.ParseProvider(cfg.Proxy.Provider)
	if err != nil {
		return nil, err
	}

	if cfg.Proxy.APIKey == "" {
		logger.WithField("env", config.APIKeyEnv(string(provider))).
			Warn("Upstream API key is not set, /generate will fail until it is configured")
		return nil, nil
	}

	llmConfig := llm.ConfigFor(provider)
	if cfg.Proxy.Model != "" {
		llmConfig = llmConfig.WithModel(llm.TierLite, cfg.Proxy.Model)
	}
	if cfg.Proxy.BaseURL != "" {
		llmConfig.BaseURL = cfg.Proxy.BaseURL
	}

	client, err := llm.NewClient(ctx, llmConfig, cfg.Proxy.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", provider, err)
	}

	logger.WithFields(logrus.Fields{
		"provider": provider,
		"model":    client.GetModel(llm.TierLite),
	}).Info("Upstream provider ready")
	return client, nil
}

// newProxyHandler builds the /generate handler. The returned func releases
// the upstream client.
func newProxyHandler(ctx context.Context, cfg *config.Config, limiter *ratelimit.Limiter, logger *logrus.Logger) (*proxy.Handler, func(), error) {
	client, err := newUpstreamClient(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {}
	if client != nil {
		closeFn = func() {
			if err := client.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close upstream client")
			}
		}
	}

	handler := proxy.New(proxy.Options{
		Client:          client,
		Limiter:         limiter,
		Logger:          logger,
		Token:           cfg.Proxy.Token,
		AllowedOrigins:  cfg.Proxy.AllowedOrigins,
		MaxPromptLength: cfg.Proxy.MaxPromptLength,
		MaxBodyBytes:    cfg.Proxy.MaxBodyBytes,
		Timeout:         cfg.ProxyTimeout(),
	})
	return handler, closeFn, nil
}

// mountedProxyToken returns the bearer token the editor's assist client sends
// to the proxy mounted on the same server. A hashed proxy token cannot be
// reused, so assist.token has to carry the clear value.
func mountedProxyToken(cfg *config.Config, logger *logrus.Logger) string {
	if cfg.Assist.Token != "" {
		return cfg.Assist.Token
	}
	if !config.IsHashedToken(cfg.Proxy.Token) {
		return cfg.Proxy.Token
	}
	logger.Warn("proxy.token is a bcrypt hash and assist.token is unset: the mounted proxy will reject AI Write and every request falls back to offline suggestions. Set RESUME_PROXY_TOKEN to the clear token")
	return ""
}

// serveUntilDone runs srv until ctx is cancelled, then shuts it down gracefully.
func serveUntilDone(ctx context.Context, srv *http.Server, logger *logrus.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}
