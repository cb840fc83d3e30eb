package prosody

import (
	"github.com/rs/zerolog"

	"github.com/lexiqai/echo-speech/internal/audio"
	"github.com/lexiqai/echo-speech/internal/dsp"
	"github.com/lexiqai/echo-speech/internal/observability"
)

// Engine runs the loudness and prosody passes over one shared alignment.
type Engine struct {
	logger zerolog.Logger
}

// NewEngine creates an engine logging through logger.
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{logger: logger.With().Str("component", "prosody").Logger()}
}

// Align selects boundaries for every letter of transcript. It is computed
// once per recording and passed to both Loudness and Analyze.
func (e *Engine) Align(spoken audio.Signal, transcript string, onsets OnsetSet) Alignment {
	target := CountLetters(transcript)
	align := SelectBoundaries(spoken.Len(), onsets, target)
	if align.Uniform {
		observability.RecordBoundaryFallback()
		e.logger.Debug().
			Int("onsets", len(onsets.Frames)).
			Int("letters", target).
			Int("spoken_samples", spoken.Len()).
			Msg("Onset boundaries unusable, using uniform partition")
	}
	return align
}

// Loudness measures each letter's segment and returns the transcript's
// characters with their volume. Spaces carry audio.SilenceDB.
func (e *Engine) Loudness(spoken audio.Signal, transcript string, align Alignment) ([]CharVolume, error) {
	if spoken.Len() == 0 {
		return nil, ErrEmptySignal
	}

	volumes := make([]float64, align.Segments())
	for i := range volumes {
		start, end := align.Segment(i)
		volumes[i] = SegmentVolume(spoken.Slice(start, end))
	}
	return ReconstructVolumes(transcript, volumes), nil
}

// Analyze summarizes duration, pitch and loudness per character and builds
// the character-axis pitch contour.
func (e *Engine) Analyze(spoken audio.Signal, charVolumes []CharVolume, align Alignment, f0 dsp.F0Track) (*Summary, error) {
	if spoken.Len() == 0 {
		return nil, ErrEmptySignal
	}

	chars := make([]string, len(charVolumes))
	for i, cv := range charVolumes {
		chars[i] = cv.Char
	}

	summary := &Summary{
		CharSummary:  Summarize(spoken, charVolumes, align, f0),
		PitchContour: BuildContour(chars, align, f0),
	}
	e.logger.Debug().
		Int("characters", len(chars)).
		Int("segments", align.Segments()).
		Int("contour_points", len(summary.PitchContour.CharAxis)).
		Msg("Prosody summary built")
	return summary, nil
}
