package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/echo-speech/internal/analysis"
	"github.com/lexiqai/echo-speech/internal/audio"
	"github.com/lexiqai/echo-speech/internal/observability"
)

// CorrelationHeader carries the request's correlation id in and out.
const CorrelationHeader = "X-Correlation-ID"

var errNoModule = errors.New("no analysis module selected")

// withMetrics wraps an HTTP handler with metrics collection
func withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(ww, r)

		observability.RecordHTTPRequest(r.Method, endpoint, strconv.Itoa(ww.statusCode), time.Since(startTime))
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrader take over the connection.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, errorBody{Detail: detail})
}

// handleAnalyze implements POST /analyze. The multipart form carries the
// recording in "file", one boolean field per module, and optional
// "ref_text", "language" and "max_workers".
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	correlationID := r.Header.Get(CorrelationHeader)
	if correlationID == "" {
		correlationID = observability.NewCorrelationID()
	}
	w.Header().Set(CorrelationHeader, correlationID)
	logger := s.logger.With().Str("correlation_id", correlationID).Logger()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	var kinds []analysis.Kind
	for _, kind := range analysis.AllKinds {
		if formBool(r.FormValue(kind.String())) {
			kinds = append(kinds, kind)
		}
	}
	if len(kinds) == 0 {
		writeError(w, http.StatusBadRequest, "No analysis module selected")
		return
	}

	workers := 0
	if v := r.FormValue("max_workers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "max_workers must be an integer")
			return
		}
		workers = n
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file")
		return
	}
	data, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	logger.Info().
		Int("bytes", len(data)).
		Interface("modules", kinds).
		Msg("Analysis requested")

	opts := s.options(r.FormValue("language"), r.FormValue("ref_text"))
	writeJSON(w, http.StatusOK, s.analyze(r.Context(), logger, data, kinds, workers, opts, nil))
}

// analyze decodes data and runs kinds against it. A recording that cannot be
// decoded fails every requested module.
func (s *Server) analyze(ctx context.Context, logger zerolog.Logger, data []byte, kinds []analysis.Kind, workers int, opts analysis.Options, onResult func(analysis.Result)) map[analysis.Kind]analysis.Report {
	observability.SessionStarted()
	defer observability.SessionEnded()

	sig, err := audio.DecodeBytes(data)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to decode recording")
		reports := make(map[analysis.Kind]analysis.Report, len(kinds))
		for _, kind := range kinds {
			f := analysis.NewFailure(analysis.AudioLoadFailure, err.Error())
			reports[kind] = f
			if onResult != nil {
				onResult(analysis.Result{Kind: kind, Report: f})
			}
		}
		return reports
	}

	session := analysis.NewSession(ctx, sig, s.transcriber, s.engine, opts, logger)
	return s.runner.Run(ctx, session, kinds, workers, onResult)
}

// handleSchema implements GET /schema.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, analysis.Schema())
}

func formBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
