package analysis

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/echo-speech/internal/observability"
)

// Result pairs a report with the module that produced it.
type Result struct {
	Kind   Kind
	Report Report
}

// Runner executes analyses on a bounded number of goroutines.
type Runner struct {
	maxWorkers int
	analyzers  map[Kind]Analyzer
	logger     zerolog.Logger
}

// NewRunner creates a runner that runs at most maxWorkers analyses at once.
func NewRunner(maxWorkers int, logger zerolog.Logger) *Runner {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Runner{
		maxWorkers: maxWorkers,
		analyzers:  Analyzers,
		logger:     logger,
	}
}

// WithAnalyzer returns a copy of r that runs fn for kind.
func (r *Runner) WithAnalyzer(kind Kind, fn Analyzer) *Runner {
	analyzers := make(map[Kind]Analyzer, len(r.analyzers)+1)
	for k, v := range r.analyzers {
		analyzers[k] = v
	}
	analyzers[kind] = fn
	return &Runner{maxWorkers: r.maxWorkers, analyzers: analyzers, logger: r.logger}
}

// Run executes every kind against s and returns one report per kind. A
// failing or panicking analysis yields a *Failure and does not stop the
// others. workers overrides the pool size when positive. onResult, if set,
// is called from the calling goroutine as each report arrives.
func (r *Runner) Run(ctx context.Context, s *Session, kinds []Kind, workers int, onResult func(Result)) map[Kind]Report {
	kinds = dedupe(kinds)
	reports := make(map[Kind]Report, len(kinds))
	if len(kinds) == 0 {
		return reports
	}

	if workers <= 0 || workers > r.maxWorkers {
		workers = r.maxWorkers
	}
	if workers > len(kinds) {
		workers = len(kinds)
	}

	sem := make(chan struct{}, workers)
	results := make(chan Result, len(kinds))

	var wg sync.WaitGroup
	for _, kind := range kinds {
		wg.Add(1)
		go func(kind Kind) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results <- Result{Kind: kind, Report: r.runOne(ctx, s, kind)}
		}(kind)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		reports[res.Kind] = res.Report
		if onResult != nil {
			onResult(res)
		}
	}
	return reports
}

func (r *Runner) runOne(ctx context.Context, s *Session, kind Kind) (report Report) {
	logger := r.logger.With().Str("kind", kind.String()).Logger()
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("Analysis panicked")
			report = NewFailure(InternalError, fmt.Sprint(rec))
		}

		elapsed := time.Since(start)
		observability.RecordAnalysis(kind.String(), report.Succeeded(), elapsed)
		logger.Info().
			Bool("success", report.Succeeded()).
			Dur("elapsed", elapsed).
			Msg("Analysis finished")
	}()

	fn, ok := r.analyzers[kind]
	if !ok {
		return NewFailure(InternalError, fmt.Sprintf("no analyzer for %q", kind))
	}
	if err := ctx.Err(); err != nil {
		return FailureFrom(err)
	}

	out, err := fn(ctx, s)
	if err != nil {
		logger.Warn().Err(err).Msg("Analysis failed")
		return FailureFrom(err)
	}
	if out == nil {
		return NewFailure(InternalError, "analysis returned no report")
	}
	return out
}

func dedupe(kinds []Kind) []Kind {
	seen := make(map[Kind]bool, len(kinds))
	out := make([]Kind, 0, len(kinds))
	for _, k := range kinds {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
