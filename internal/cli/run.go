// Package cli implements the echo-speech command line: input validation,
// running the analyses, the progress view and session persistence.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/lexiqai/echo-speech/internal/analysis"
	"github.com/lexiqai/echo-speech/internal/audio"
	"github.com/lexiqai/echo-speech/internal/prosody"
	"github.com/lexiqai/echo-speech/internal/stt"
)

// Job is one invocation of the analyzer.
type Job struct {
	Path    string
	Kinds   []analysis.Kind
	Workers int
	Options analysis.Options
}

// ValidateInput checks that path names an existing regular .wav file.
func ValidateInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return analysis.Errorf(analysis.FileNotFound, "File %q not found.", path)
		}
		return &analysis.Error{Kind: analysis.FileNotFound, Err: err}
	}
	if !info.Mode().IsRegular() {
		return analysis.Errorf(analysis.NotAFile, "%q is not a file.", path)
	}
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return analysis.Errorf(analysis.FileNotSupported, "%q is not a .wav file.", path)
	}
	return nil
}

// Analyzer runs jobs against one transcriber.
type Analyzer struct {
	transcriber stt.Transcriber
	engine      *prosody.Engine
	runner      *analysis.Runner
	logger      zerolog.Logger
}

// NewAnalyzer creates an Analyzer running at most maxWorkers analyses at once.
func NewAnalyzer(transcriber stt.Transcriber, maxWorkers int, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		transcriber: transcriber,
		engine:      prosody.NewEngine(logger),
		runner:      analysis.NewRunner(maxWorkers, logger),
		logger:      logger,
	}
}

// Run loads the recording and runs every requested analysis. onResult, when
// set, sees each report as it finishes. A recording that cannot be loaded
// fails every requested analysis.
func (a *Analyzer) Run(ctx context.Context, job Job, onResult func(analysis.Result)) map[analysis.Kind]analysis.Report {
	logger := a.logger.With().Str("file", job.Path).Logger()

	sig, err := audio.Load(job.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to load recording")
		reports := make(map[analysis.Kind]analysis.Report, len(job.Kinds))
		for _, k := range job.Kinds {
			f := analysis.NewFailure(analysis.AudioLoadFailure, err.Error())
			reports[k] = f
			if onResult != nil {
				onResult(analysis.Result{Kind: k, Report: f})
			}
		}
		return reports
	}

	logger.Info().
		Float64("duration", sig.Duration()).
		Int("sample_rate", sig.SampleRate).
		Interface("modules", job.Kinds).
		Msg("Analyzing recording")

	session := analysis.NewSession(ctx, sig, a.transcriber, a.engine, job.Options, logger)
	return a.runner.Run(ctx, session, job.Kinds, job.Workers, onResult)
}

// RunWithProgress runs job while a Bubbletea progress view renders to out.
// The view's quit key cancels the remaining analyses.
func (a *Analyzer) RunWithProgress(ctx context.Context, job Job, out io.Writer) (map[analysis.Kind]analysis.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgressModel(job.Path, job.Kinds), tea.WithOutput(out), tea.WithContext(ctx))

	reports := make(chan map[analysis.Kind]analysis.Report, 1)
	go func() {
		reports <- a.Run(ctx, job, func(res analysis.Result) {
			p.Send(ModuleDoneMsg{Kind: res.Kind, Report: res.Report})
		})
		p.Send(AllCompleteMsg{})
	}()

	final, err := p.Run()
	if m, ok := final.(ProgressModel); ok && m.Cancelled {
		cancel()
	}
	result := <-reports
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return result, fmt.Errorf("progress view: %w", err)
	}
	return result, nil
}

// WriteReport writes reports as an indented JSON object keyed by module.
func WriteReport(w io.Writer, reports map[analysis.Kind]analysis.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(reports)
}

// WriteFailure writes a single failure document, used when the input is
// rejected before any analysis starts.
func WriteFailure(w io.Writer, err error) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(analysis.FailureFrom(err))
}

// SessionBundle is the document persisted for one CLI run.
type SessionBundle struct {
	SessionID   string                            `json:"session_id"`
	AudioPath   string                            `json:"audio_path"`
	GeneratedAt time.Time                         `json:"generated_at"`
	Modules     []analysis.Kind                   `json:"modules"`
	Reports     map[analysis.Kind]analysis.Report `json:"reports"`
}

// SaveSession writes reports to <root>/session_<timestamp>/report.json and
// returns the path written.
func SaveSession(root, audioPath string, kinds []analysis.Kind, reports map[analysis.Kind]analysis.Report) (string, error) {
	now := time.Now()
	sid := "session_" + now.Format("20060102-150405")
	dir := filepath.Join(root, sid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}

	abs, err := filepath.Abs(audioPath)
	if err != nil {
		abs = audioPath
	}

	path := filepath.Join(dir, "report.json")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	bundle := SessionBundle{
		SessionID:   sid,
		AudioPath:   abs,
		GeneratedAt: now,
		Modules:     kinds,
		Reports:     reports,
	}
	if err := enc.Encode(bundle); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
