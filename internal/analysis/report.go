package analysis

import (
	"time"

	"github.com/lexiqai/echo-speech/internal/prosody"
)

// Report status values.
const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// failureTimeLayout renders Failure.Time as "02/01/2006, 15:04:05".
const failureTimeLayout = "02/01/2006, 15:04:05"

// Report is the outcome of one analysis: one of *IntensityReport,
// *SpeechRateReport, *IntonationReport, *ArticulationReport or *Failure.
type Report interface {
	report()
	// Succeeded reports whether the analysis produced a result.
	Succeeded() bool
}

// IntensityReport carries the loudness of every character.
type IntensityReport struct {
	Status      string               `json:"status" jsonschema:"enum=SUCCESS"`
	CharVolumes []prosody.CharVolume `json:"char_volumes"`
}

// SpeechRateReport carries words per minute and characters per second over
// the spoken-only part of the recording.
type SpeechRateReport struct {
	Status          string  `json:"status" jsonschema:"enum=SUCCESS"`
	WPM             float64 `json:"wpm"`
	CPS             float64 `json:"cps"`
	TotalSpeechTime float64 `json:"total_speech_time" jsonschema:"description=Spoken-only duration in seconds"`
	TotalWords      int     `json:"total_words"`
	TotalCharacters int     `json:"total_characters"`
	AnalysisTime    float64 `json:"analysis_time" jsonschema:"description=Wall time of the analysis in seconds"`
	Transcript      string  `json:"transcript"`
}

// IntonationReport carries the character-aligned prosody summary.
type IntonationReport struct {
	Status           string           `json:"status" jsonschema:"enum=SUCCESS"`
	CharSummary      []prosody.Record `json:"char_summary"`
	PitchContourChar prosody.Contour  `json:"pitch_contour_char"`
}

// ArticulationReport carries pause and articulation measures and, when a
// reference text was given, the character error rate against it.
type ArticulationReport struct {
	Status           string  `json:"status" jsonschema:"enum=SUCCESS"`
	Duration         float64 `json:"duration" jsonschema:"description=Total recording duration in seconds"`
	ArticulationRate float64 `json:"articulation_rate" jsonschema:"description=Characters per second of speech"`
	PauseRatio       float64 `json:"pause_ratio"`
	AccuracyScore    float64 `json:"accuracy_score"`
	CharErrorRate    float64 `json:"char_error_rate"`
	Transcription    string  `json:"transcription"`
}

// Failure is reported in place of a result when an analysis cannot finish.
type Failure struct {
	Status       string `json:"status" jsonschema:"enum=ERROR"`
	ErrorName    string `json:"error_name"`
	ErrorDetails string `json:"error_details"`
	Time         string `json:"time"`
}

// NewFailure builds a Failure stamped with the current local time.
func NewFailure(kind ErrorKind, details string) *Failure {
	return &Failure{
		Status:       StatusError,
		ErrorName:    string(kind),
		ErrorDetails: details,
		Time:         time.Now().Format(failureTimeLayout),
	}
}

// FailureFrom classifies err and builds the matching Failure.
func FailureFrom(err error) *Failure {
	e := Classify(err)
	return NewFailure(e.Kind, e.Details())
}

func (*IntensityReport) report()    {}
func (*SpeechRateReport) report()   {}
func (*IntonationReport) report()   {}
func (*ArticulationReport) report() {}
func (*Failure) report()            {}

func (*IntensityReport) Succeeded() bool    { return true }
func (*SpeechRateReport) Succeeded() bool   { return true }
func (*IntonationReport) Succeeded() bool   { return true }
func (*ArticulationReport) Succeeded() bool { return true }
func (*Failure) Succeeded() bool            { return false }
