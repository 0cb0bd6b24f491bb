package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kanpan0/kanpan/internal/api"
	"github.com/kanpan0/kanpan/internal/config"
	"github.com/kanpan0/kanpan/internal/llm"
	"github.com/kanpan0/kanpan/internal/observability"
	"github.com/kanpan0/kanpan/internal/report"
	"github.com/kanpan0/kanpan/internal/resolver"
	"github.com/kanpan0/kanpan/internal/retrieve"
	"github.com/kanpan0/kanpan/internal/search"
	"github.com/kanpan0/kanpan/internal/tushare"
	"github.com/kanpan0/kanpan/internal/workflow"
)

// parseRateBurst reads KANPAN_RATE_BURST from the environment.
// Returns 0 (use config or default) if unset or invalid.
func parseRateBurst() int {
	v := os.Getenv("KANPAN_RATE_BURST")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 5 * time.Minute // SSE report streaming needs a long timeout
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

// runServe initializes and starts the HTTP API server.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	addr, err := parseServeAddr()
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting HTTP API server", "version", AppVersion)

	shutdownTracing, err := observability.SetupDatadog(ctx, observability.Config{
		AgentHost:   cfg.Datadog.AgentHost,
		Environment: cfg.Datadog.Environment,
		ServiceName: cfg.Datadog.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if traceErr := shutdownTracing(shutdownCtx); traceErr != nil {
			logger.Warn("tracing shutdown error", "error", traceErr)
		}
	}()

	llmClient, err := llm.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing AI backend: %w", err)
	}

	dataClient := tushare.NewClient(cfg.Tushare, logger)
	searchClient := search.NewClient(cfg.SearXNG, logger)
	retrieveClient := retrieve.NewClient(cfg.Retriever, logger)

	gen, err := report.NewGenerator(llmClient, cfg.FullReportModelName(), logger)
	if err != nil {
		return fmt.Errorf("creating report generator: %w", err)
	}

	orch, err := workflow.New(searchClient, resolver.New(searchClient, logger), dataClient, gen, logger)
	if err != nil {
		return fmt.Errorf("creating report workflow: %w", err)
	}

	burst := parseRateBurst()
	if burst == 0 {
		burst = cfg.RateBurst
	}

	apiServer, err := api.NewServer(api.ServerConfig{
		Logger:      logger,
		Runner:      orch,
		Streamer:    llmClient,
		Retriever:   retrieveClient,
		CORSOrigins: cfg.CORSOrigins,
		IsDev:       cfg.Datadog.Environment == "dev",
		TrustProxy:  cfg.TrustProxy,
		RateBurst:   burst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", addr,
		"api", "/api/v1/*",
		"health", "/health",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
