package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/foresight-go/internal/config"
	"github.com/irfndi/foresight-go/internal/logging"
	"github.com/irfndi/foresight-go/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	provider, err := telemetry.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Failed to shutdown telemetry")
		}
	}()

	otlpLogger, err := logging.NewOTLPLogger(logging.OTLPConfig{
		Enabled:        cfg.Telemetry.Enabled && cfg.Telemetry.Exporter == "otlp",
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Environment,
		LogLevel:       cfg.LogLevel,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize OTLP logger: %w", err)
	}
	defer func() {
		if err := otlpLogger.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Failed to shutdown OTLP logger")
		}
	}()
	events := logging.NewEventLogger(otlpLogger.Logger())

	app, err := newApplication(ctx, cfg, logger, events, prometheus.DefaultRegisterer, provider.TracerProvider())
	if err != nil {
		return err
	}
	defer app.Close()

	app.janitor.Start()
	defer app.janitor.Stop()

	srv := newHTTPServer(cfg, app.router)

	serverErr := make(chan error, 1)
	go func() {
		events.LogStartup(cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	reason := "signal received"
	select {
	case sig := <-quit:
		reason = "signal received: " + sig.String()
	case err := <-serverErr:
		logger.WithError(err).Error("HTTP server failed")
		reason = "server error"
	}
	events.LogShutdown(cfg.Telemetry.ServiceName, reason)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited gracefully")
	return nil
}

// newHTTPServer sets timeouts so a selection update can wait out one full
// data API request.
func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.DataAPI.GetTimeout() + 10*time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
