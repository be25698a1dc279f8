package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/resume-builder/internal/observability"
	"github.com/jonathan/resume-builder/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

var (
	proxyPort     int
	proxyProvider string
	proxyModel    string
	proxyToken    string
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Start the completion proxy",
	Long: `Start the completion proxy: POST /generate forwards a prompt to the upstream provider.
The provider credential is read from OPENROUTER_API_KEY, GEMINI_API_KEY or ANTHROPIC_API_KEY
and never leaves this process.`,
	RunE: runProxy,
}

func init() {
	proxyCmd.Flags().IntVar(&proxyPort, "port", 8081, "Port to listen on")
	proxyCmd.Flags().StringVar(&proxyProvider, "provider", "", "Upstream provider: openrouter, gemini or anthropic")
	proxyCmd.Flags().StringVar(&proxyModel, "model", "", "Override the upstream model")
	proxyCmd.Flags().StringVar(&proxyToken, "token", "", "Require this bearer token (clear or bcrypt hash)")
	rootCmd.AddCommand(proxyCmd)
}

func runProxy(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadSettings()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Proxy.Port = proxyPort
	}
	if flags.Changed("provider") {
		cfg.Proxy.Provider = proxyProvider
		cfg.Proxy.APIKey = ""
		cfg.ApplyProviderKey()
	}
	if flags.Changed("model") {
		cfg.Proxy.Model = proxyModel
	}
	if flags.Changed("token") {
		cfg.Proxy.Token = proxyToken
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := ratelimit.NewLimiter(ratelimit.LoadConfig())
	defer limiter.Stop()

	handler, closeUpstream, err := newProxyHandler(ctx, cfg, limiter, logger)
	if err != nil {
		return err
	}
	defer closeUpstream()

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Proxy.Port),
		Handler:           observability.RequestLogger(logger, mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.ProxyTimeout() + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return serveUntilDone(ctx, srv, logger)
}
