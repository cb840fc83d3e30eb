// Package server exposes the analyses over HTTP and WebSocket.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lexiqai/echo-speech/internal/analysis"
	"github.com/lexiqai/echo-speech/internal/config"
	"github.com/lexiqai/echo-speech/internal/observability"
	"github.com/lexiqai/echo-speech/internal/prosody"
	"github.com/lexiqai/echo-speech/internal/stt"
)

// Server serves analysis requests.
type Server struct {
	cfg         *config.Config
	transcriber stt.Transcriber
	engine      *prosody.Engine
	runner      *analysis.Runner
	readiness   map[string]observability.HealthCheckFunc
	logger      zerolog.Logger
}

// New creates a server that transcribes with transcriber. readiness holds
// the dependency checks reported by /ready.
func New(cfg *config.Config, transcriber stt.Transcriber, readiness map[string]observability.HealthCheckFunc, logger zerolog.Logger) *Server {
	return &Server{
		cfg:         cfg,
		transcriber: transcriber,
		engine:      prosody.NewEngine(logger),
		runner:      analysis.NewRunner(cfg.MaxWorkers, logger),
		readiness:   readiness,
		logger:      logger,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/analyze", withMetrics("/analyze", s.handleAnalyze))
	mux.HandleFunc("/ws/analyze", withMetrics("/ws/analyze", s.handleAnalyzeWS))
	mux.HandleFunc("/schema", withMetrics("/schema", s.handleSchema))

	mux.HandleFunc("/health", withMetrics("/health", observability.HealthCheckHandler()))
	mux.HandleFunc("/ready", withMetrics("/ready", observability.ReadinessHandler(s.readiness)))

	if s.cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	return mux
}

func (s *Server) options(language, refText string) analysis.Options {
	opts := analysis.OptionsFromConfig(s.cfg)
	if language != "" {
		opts.Language = language
	}
	opts.RefText = refText
	return opts
}
