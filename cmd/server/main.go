package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lexiqai/echo-speech/internal/config"
	"github.com/lexiqai/echo-speech/internal/observability"
	"github.com/lexiqai/echo-speech/internal/resilience"
	"github.com/lexiqai/echo-speech/internal/server"
	"github.com/lexiqai/echo-speech/internal/stt"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("stt_provider", cfg.STTProvider).
		Str("language", cfg.TranscriptionLanguage).
		Int("max_workers", cfg.MaxWorkers).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Speech analysis service starting")

	transcriber, err := stt.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create transcription client")
	}

	// The service is not ready while the transcription circuit is open.
	transcriptionCheck := func(ctx context.Context) (bool, error) {
		if state := transcriber.State(); state == resilience.StateOpen {
			return false, fmt.Errorf("%s circuit %s", transcriber.Name(), state)
		}
		return true, nil
	}

	handler := server.New(cfg, transcriber, map[string]observability.HealthCheckFunc{
		"transcription": transcriptionCheck,
	}, logger).Handler()

	if cfg.MetricsEnabled {
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts. Writes wait for the whole analysis.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.TranscriptionTimeoutDuration()*time.Duration(cfg.RetryMaxAttempts+1) + 60*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("http://localhost:%s/analyze", cfg.Port)).
			Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
