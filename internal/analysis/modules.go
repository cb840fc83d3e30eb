package analysis

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/lexiqai/echo-speech/internal/audio"
	"github.com/lexiqai/echo-speech/internal/dsp"
	"github.com/lexiqai/echo-speech/internal/prosody"
)

// Analyzer computes one report from a session.
type Analyzer func(ctx context.Context, s *Session) (Report, error)

// Analyzers maps every Kind to its implementation.
var Analyzers = map[Kind]Analyzer{
	KindIntensity:    Intensity,
	KindSpeechRate:   SpeechRate,
	KindIntonation:   Intonation,
	KindArticulation: Articulation,
}

// Intensity reports the loudness of each character.
func Intensity(ctx context.Context, s *Session) (Report, error) {
	volumes, err := s.Loudness()
	if err != nil {
		return nil, err
	}
	return &IntensityReport{Status: StatusSuccess, CharVolumes: volumes}, nil
}

// SpeechRate reports words per minute and characters per second over the
// spoken-only time.
func SpeechRate(ctx context.Context, s *Session) (Report, error) {
	start := time.Now()

	transcript, err := s.Transcript()
	if err != nil {
		return nil, err
	}
	spoken, err := s.Spoken()
	if err != nil {
		return nil, err
	}

	speechTime := audio.Round(spoken.Duration(), 2)
	if speechTime <= 0 {
		return nil, Errorf(InvalidSpeechTime, "Total speech time (seconds) is not a positive number: %v", speechTime)
	}

	words := len(strings.Fields(transcript))
	chars := prosody.CountLetters(transcript)

	return &SpeechRateReport{
		Status:          StatusSuccess,
		WPM:             audio.Round(float64(words)/speechTime*60, 2),
		CPS:             audio.Round(float64(chars)/speechTime, 2),
		TotalSpeechTime: speechTime,
		TotalWords:      words,
		TotalCharacters: chars,
		AnalysisTime:    audio.Round(time.Since(start).Seconds(), 3),
		Transcript:      transcript,
	}, nil
}

// Intonation reports duration, pitch and loudness per character together
// with the character-axis pitch contour.
func Intonation(ctx context.Context, s *Session) (Report, error) {
	volumes, err := s.Loudness()
	if err != nil {
		return nil, err
	}
	spoken, err := s.Spoken()
	if err != nil {
		return nil, err
	}
	align, err := s.Alignment()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f0 := dsp.TrackF0(spoken.Samples, spoken.SampleRate, s.Options().Pitch)
	summary, err := s.engine.Analyze(spoken, volumes, align, f0)
	if err != nil {
		return nil, err
	}
	return &IntonationReport{
		Status:           StatusSuccess,
		CharSummary:      summary.CharSummary,
		PitchContourChar: summary.PitchContour,
	}, nil
}

// Articulation reports the pause ratio and articulation rate and, with a
// reference text, the character error rate of the transcript.
func Articulation(ctx context.Context, s *Session) (Report, error) {
	sig := s.Signal()
	total := sig.Duration()
	speech := audio.SpeechDuration(sig, s.Options().SilenceTopDB)

	var pauseRatio float64
	if total > 0 {
		pauseRatio = (total - speech) / total
	}

	transcript, err := s.Transcript()
	if err != nil {
		return nil, err
	}

	var rate float64
	if speech > 0 {
		rate = float64(prosody.CountLetters(transcript)) / speech
	}

	cer, accuracy := CharErrorRate(s.Options().RefText, transcript)
	return &ArticulationReport{
		Status:           StatusSuccess,
		Duration:         total,
		ArticulationRate: rate,
		PauseRatio:       pauseRatio,
		AccuracyScore:    accuracy,
		CharErrorRate:    cer,
		Transcription:    transcript,
	}, nil
}

// CharErrorRate compares hypothesis against reference by rune edit
// distance. An empty reference yields zero for both values.
func CharErrorRate(reference, hypothesis string) (cer, accuracy float64) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return 0, 0
	}
	distance := levenshtein.ComputeDistance(reference, strings.TrimSpace(hypothesis))
	cer = float64(distance) / float64(utf8.RuneCountInString(reference))
	accuracy = (1 - cer) * 100
	if accuracy < 0 {
		accuracy = 0
	}
	return cer, accuracy
}
