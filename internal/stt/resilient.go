package stt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/echo-speech/internal/observability"
	"github.com/lexiqai/echo-speech/internal/resilience"
)

// Resilient guards a Transcriber with a circuit breaker, retries, a
// per-call timeout and a limit on requests in flight.
type Resilient struct {
	next           Transcriber
	circuitBreaker *resilience.CircuitBreaker
	retryConfig    *resilience.RetryConfig
	timeout        time.Duration
	semaphore      chan struct{}
	logger         zerolog.Logger
}

// ResilientOptions configures NewResilient. Zero values select defaults.
type ResilientOptions struct {
	MaxFailures  int
	ResetTimeout time.Duration
	Retry        *resilience.RetryConfig
	Timeout      time.Duration
	MaxInFlight  int
}

// NewResilient wraps next.
func NewResilient(next Transcriber, opts ResilientOptions, logger zerolog.Logger) *Resilient {
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = 5
	}
	if opts.ResetTimeout <= 0 {
		opts.ResetTimeout = 30 * time.Second
	}
	if opts.Retry == nil {
		opts.Retry = resilience.DefaultRetryConfig()
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 8
	}

	name := "stt_" + next.Name()
	cb := resilience.NewCircuitBreaker(name, opts.MaxFailures, opts.ResetTimeout)
	cb.OnStateChange = func(service string, state resilience.CircuitState) {
		observability.UpdateCircuitBreakerState(service, int(state))
	}

	return &Resilient{
		next:           next,
		circuitBreaker: cb,
		retryConfig:    opts.Retry,
		timeout:        opts.Timeout,
		semaphore:      make(chan struct{}, opts.MaxInFlight),
		logger:         logger.With().Str("provider", next.Name()).Logger(),
	}
}

// Name implements Transcriber.
func (r *Resilient) Name() string { return r.next.Name() }

// State reports the circuit breaker state.
func (r *Resilient) State() resilience.CircuitState { return r.circuitBreaker.GetState() }

// Transcribe implements Transcriber. Every error it returns matches either
// ErrUnrecognizable or ErrUnavailable.
func (r *Resilient) Transcribe(ctx context.Context, wav []byte, language string) (string, error) {
	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	var (
		text         string
		unrecognized error
		attempt      int
	)

	err := r.circuitBreaker.Call(func() error {
		return resilience.Retry(ctx, func(ctx context.Context) error {
			attempt++
			out, err := r.next.Transcribe(ctx, wav, language)
			if errors.Is(err, ErrUnrecognizable) {
				// The provider answered, so the breaker sees a success.
				unrecognized = err
				return nil
			}
			if err != nil {
				r.logger.Warn().Err(err).Int("attempt", attempt).Msg("Transcription attempt failed")
				return err
			}
			text = out
			return nil
		}, r.retryConfig, shouldRetry)
	})

	elapsed := time.Since(start)
	if err != nil {
		observability.IncrementCircuitBreakerFailures(r.circuitBreaker.Name())
	}
	if err == nil {
		err = unrecognized
	}
	observability.RecordTranscription(r.next.Name(), err == nil, elapsed)

	if err != nil {
		r.logger.Error().Err(err).Dur("elapsed", elapsed).Int("attempts", attempt).Msg("Transcription failed")
		if errors.Is(err, ErrUnrecognizable) || errors.Is(err, ErrUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	r.logger.Debug().Dur("elapsed", elapsed).Int("chars", len([]rune(text))).Msg("Transcription completed")
	return text, nil
}

func shouldRetry(err error) bool {
	if errors.Is(err, ErrUnrecognizable) || errors.Is(err, resilience.ErrCircuitOpen) {
		return false
	}
	return resilience.IsRetryableNetworkError(err)
}
