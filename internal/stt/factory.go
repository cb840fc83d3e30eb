package stt

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/echo-speech/internal/config"
	"github.com/lexiqai/echo-speech/internal/resilience"
)

// New builds the provider selected by cfg.STTProvider wrapped in Resilient.
func New(cfg *config.Config, logger zerolog.Logger) (*Resilient, error) {
	var provider Transcriber
	switch cfg.STTProvider {
	case config.ProviderDeepgram:
		provider = NewDeepgramTranscriber(cfg.DeepgramAPIKey, cfg.DeepgramModel)
	case config.ProviderWhisper:
		provider = NewWhisperTranscriber(cfg.OpenAIAPIKey, cfg.WhisperModel)
	case config.ProviderHTTP:
		provider = NewHTTPTranscriber(cfg.STTServiceURL, cfg.TranscriptionTimeoutDuration())
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.STTProvider)
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.RetryMaxAttempts
	retry.InitialBackoff = time.Duration(cfg.RetryInitialBackoff) * time.Millisecond

	return NewResilient(provider, ResilientOptions{
		MaxFailures:  cfg.CircuitBreakerMaxFailures,
		ResetTimeout: time.Duration(cfg.CircuitBreakerResetTimeout) * time.Second,
		Retry:        retry,
		Timeout:      cfg.TranscriptionTimeoutDuration(),
		MaxInFlight:  cfg.TranscriptionMaxInFlight,
	}, logger), nil
}
