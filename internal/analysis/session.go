package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/lexiqai/echo-speech/internal/audio"
	"github.com/lexiqai/echo-speech/internal/config"
	"github.com/lexiqai/echo-speech/internal/dsp"
	"github.com/lexiqai/echo-speech/internal/prosody"
	"github.com/lexiqai/echo-speech/internal/stt"
)

// Options are the per-request analysis parameters.
type Options struct {
	Language     string
	RefText      string
	SilenceTopDB float64
	OnsetHop     int
	Pitch        dsp.PitchConfig
}

// OptionsFromConfig returns the service defaults.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Language:     cfg.TranscriptionLanguage,
		SilenceTopDB: cfg.SilenceTopDB,
		OnsetHop:     cfg.OnsetHopLength,
		Pitch: dsp.PitchConfig{
			FrameLength: cfg.PitchFrameLength,
			HopLength:   cfg.PitchHopLength,
			FMin:        cfg.PitchMinHz,
			FMax:        cfg.PitchMaxHz,
			Threshold:   dsp.DefaultPitchConfig().Threshold,
		},
	}
}

func (o Options) withDefaults() Options {
	def := dsp.DefaultPitchConfig()
	if o.SilenceTopDB <= 0 {
		o.SilenceTopDB = 40
	}
	if o.OnsetHop <= 0 {
		o.OnsetHop = 512
	}
	if o.Pitch.FrameLength <= 0 {
		o.Pitch.FrameLength = def.FrameLength
	}
	if o.Pitch.HopLength <= 0 {
		o.Pitch.HopLength = def.HopLength
	}
	if o.Pitch.FMin <= 0 || o.Pitch.FMax <= o.Pitch.FMin {
		o.Pitch.FMin, o.Pitch.FMax = def.FMin, def.FMax
	}
	if o.Pitch.Threshold <= 0 {
		o.Pitch.Threshold = def.Threshold
	}
	return o
}

// Session holds one recording and the intermediate results its analyses
// share. Each intermediate is computed at most once, whichever analysis asks
// first, so concurrent analyses see one transcript and one alignment.
type Session struct {
	ctx         context.Context
	signal      audio.Signal
	transcriber stt.Transcriber
	engine      *prosody.Engine
	opts        Options
	logger      zerolog.Logger

	transcript func() (string, error)
	spoken     func() (audio.Signal, error)
	onsets     func() (prosody.OnsetSet, error)
	alignment  func() (prosody.Alignment, error)
	loudness   func() ([]prosody.CharVolume, error)
}

// NewSession prepares a session for sig. ctx bounds the transcription call.
func NewSession(ctx context.Context, sig audio.Signal, transcriber stt.Transcriber, engine *prosody.Engine, opts Options, logger zerolog.Logger) *Session {
	s := &Session{
		ctx:         ctx,
		signal:      sig,
		transcriber: transcriber,
		engine:      engine,
		opts:        opts.withDefaults(),
		logger:      logger,
	}
	s.transcript = sync.OnceValues(s.transcribe)
	s.spoken = sync.OnceValues(s.trim)
	s.onsets = sync.OnceValues(s.detectOnsets)
	s.alignment = sync.OnceValues(s.align)
	s.loudness = sync.OnceValues(s.measureLoudness)
	return s
}

// Signal returns the full recording.
func (s *Session) Signal() audio.Signal { return s.signal }

// Options returns the effective analysis parameters.
func (s *Session) Options() Options { return s.opts }

// Transcript returns the transcript of the recording without punctuation.
func (s *Session) Transcript() (string, error) { return s.transcript() }

// Spoken returns the recording with silent intervals removed. An empty
// result is reported as SilenceRemovalFailure.
func (s *Session) Spoken() (audio.Signal, error) { return s.spoken() }

// Alignment returns the letter boundaries shared by every analysis.
func (s *Session) Alignment() (prosody.Alignment, error) { return s.alignment() }

// Loudness returns the per-character volumes.
func (s *Session) Loudness() ([]prosody.CharVolume, error) { return s.loudness() }

func (s *Session) transcribe() (string, error) {
	wav, err := audio.EncodeWAV(s.signal)
	if err != nil {
		return "", fmt.Errorf("encode audio for transcription: %w", err)
	}
	text, err := s.transcriber.Transcribe(s.ctx, wav, s.opts.Language)
	if err != nil {
		return "", err
	}
	text = normalizeTranscript(text)
	s.logger.Debug().Int("chars", prosody.CountLetters(text)).Msg("Transcript ready")
	return text, nil
}

// normalizeTranscript drops punctuation, which has no audio of its own, and
// collapses whitespace so every remaining rune is a spoken letter or a single
// word separator.
func normalizeTranscript(text string) string {
	text = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}

func (s *Session) trim() (audio.Signal, error) {
	spoken := audio.Trim(s.signal, s.opts.SilenceTopDB)
	if spoken.Len() == 0 {
		return spoken, prosody.ErrEmptySignal
	}
	return spoken, nil
}

func (s *Session) detectOnsets() (prosody.OnsetSet, error) {
	spoken, err := s.spoken()
	if err != nil {
		return prosody.OnsetSet{}, err
	}
	env := dsp.OnsetStrength(spoken.Samples, spoken.SampleRate, s.opts.OnsetHop)
	frames := dsp.DetectOnsets(env, spoken.SampleRate, s.opts.OnsetHop, true)
	return prosody.OnsetSet{Strengths: env, Frames: frames, HopLength: s.opts.OnsetHop}, nil
}

func (s *Session) align() (prosody.Alignment, error) {
	transcript, err := s.transcript()
	if err != nil {
		return prosody.Alignment{}, err
	}
	spoken, err := s.spoken()
	if err != nil {
		return prosody.Alignment{}, err
	}
	onsets, err := s.onsets()
	if err != nil {
		return prosody.Alignment{}, err
	}
	return s.engine.Align(spoken, transcript, onsets), nil
}

func (s *Session) measureLoudness() ([]prosody.CharVolume, error) {
	align, err := s.alignment()
	if err != nil {
		return nil, err
	}
	transcript, _ := s.transcript()
	spoken, _ := s.spoken()
	return s.engine.Loudness(spoken, transcript, align)
}
