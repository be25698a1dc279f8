package main

import (
	"context"
	"fmt"

	"github.com/jonathan/resume-builder/internal/assist"
	"github.com/jonathan/resume-builder/internal/editor"
	"github.com/jonathan/resume-builder/internal/proxy"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/jonathan/resume-builder/internal/server"
	"github.com/jonathan/resume-builder/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

var (
	servePort      int
	serveSeed      string
	serveWithProxy bool
	serveToken     string
	serveProxyURL  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the editor service",
	Long: `Start an HTTP server that owns one resume editing session: form and list editing,
live preview, import/export, PDF export and the AI writing assistant.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveSeed, "seed", "", "Start from this document instead of the demo document")
	serveCmd.Flags().BoolVar(&serveWithProxy, "with-proxy", false, "Mount the completion proxy at /generate on the same port")
	serveCmd.Flags().StringVar(&serveToken, "token", "", "Require this bearer token on the editor API (clear or bcrypt hash)")
	serveCmd.Flags().StringVar(&serveProxyURL, "proxy-url", "", "Base URL of the completion proxy used by AI Write")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadSettings()
	if err != nil {
		return err
	}

	// Flags win over file and environment
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = servePort
	}
	if flags.Changed("seed") {
		cfg.Server.Seed = serveSeed
	}
	if flags.Changed("token") {
		cfg.Server.Token = serveToken
	}
	if flags.Changed("proxy-url") {
		cfg.Assist.ProxyURL = serveProxyURL
	}
	withProxy := cfg.Server.WithProxy || serveWithProxy

	doc, err := loadDocument(cfg.Server.Seed)
	if err != nil {
		return err
	}
	session := editor.NewSession(doc, editor.RenderFunc(rendering.Render), logger)

	limiter := ratelimit.NewLimiter(ratelimit.LoadConfig())

	var proxyHandler *proxy.Handler
	proxyURL := cfg.Assist.ProxyURL
	assistToken := cfg.Assist.Token
	if withProxy {
		assistToken = mountedProxyToken(cfg, logger)
		handler, closeUpstream, err := newProxyHandler(context.Background(), cfg, limiter, logger)
		if err != nil {
			limiter.Stop()
			return err
		}
		defer closeUpstream()
		proxyHandler = handler

		if proxyURL == "" {
			proxyURL = fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
		}
	}

	var completer assist.Completer
	if proxyURL != "" {
		completer = assist.NewProxyClient(proxyURL, assistToken, cfg.AssistTimeout())
		logger.WithField("proxy_url", proxyURL).Info("AI Write uses the completion proxy")
	} else {
		logger.Warn("No completion proxy configured, AI Write uses offline suggestions")
	}

	view := assist.NewViewState()
	controller := assist.NewController(session, completer,
		assist.WithView(view),
		assist.WithLogger(logger),
		assist.WithSampling(cfg.Assist.Temperature, cfg.Assist.MaxTokens),
	)

	srv, err := server.New(server.Config{
		Port:    cfg.Server.Port,
		Session: session,
		Assist:  controller,
		View:    view,
		Proxy:   proxyHandler,
		Limiter: limiter,
		Token:   cfg.Server.Token,
		PDFOptions: rendering.PDFOptions{
			ChromePath: cfg.Render.ChromePath,
			Timeout:    cfg.PDFTimeout(),
		},
		Logger: logger,
	})
	if err != nil {
		limiter.Stop()
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
