// Package prosody aligns a transcript's characters to a spoken-only signal
// and summarizes loudness, duration and pitch per character.
//
// All functions are synchronous and allocate their outputs; inputs are never
// modified. Sample indices are relative to the spoken-only signal.
package prosody

import (
	"errors"
	"strings"
)

// ErrEmptySignal is returned when silence trimming left nothing to analyze.
var ErrEmptySignal = errors.New("spoken signal is empty")

// Space is the word separator in character sequences.
const Space = " "

// OnsetSet is an onset-strength envelope plus the detected onset frames.
type OnsetSet struct {
	// Strengths holds one value per analysis frame.
	Strengths []float64
	// Frames are onset frame indices in ascending order.
	Frames    []int
	HopLength int
}

// strength returns the envelope value at frame, or 0 outside the envelope.
func (o OnsetSet) strength(frame int) float64 {
	if frame < 0 || frame >= len(o.Strengths) {
		return 0
	}
	return o.Strengths[frame]
}

// Alignment holds N+1 sample boundaries delimiting N character segments.
type Alignment struct {
	Boundaries []int
	// Uniform is set when the boundaries are an even partition rather than
	// onset-derived.
	Uniform bool
}

// Segments returns the number of segments.
func (a Alignment) Segments() int {
	if len(a.Boundaries) == 0 {
		return 0
	}
	return len(a.Boundaries) - 1
}

// Segment returns the sample range of segment i.
func (a Alignment) Segment(i int) (start, end int) {
	return a.Boundaries[i], a.Boundaries[i+1]
}

// CharVolume is one character with its loudness in dB.
type CharVolume struct {
	Char   string  `json:"char"`
	Volume float64 `json:"volume"`
}

// Record summarizes one character. F0Hz is nil for spaces and for
// segments without voiced frames.
type Record struct {
	Char        string   `json:"char"`
	VolumeDB    float64  `json:"volume_db"`
	DurationSec float64  `json:"duration_sec"`
	F0Hz        *float64 `json:"f0_hz"`
}

// Contour is a pitch curve addressed by character position. CharAxis and
// F0Hz are parallel; Chars labels the axis.
type Contour struct {
	CharAxis []float64  `json:"char_axis"`
	F0Hz     []*float64 `json:"f0_hz"`
	Chars    []string   `json:"chars"`
}

// Summary is the result of Engine.Analyze.
type Summary struct {
	CharSummary  []Record `json:"char_summary"`
	PitchContour Contour  `json:"pitch_contour_char"`
}

// Characters splits a transcript into words and returns its characters with
// a single space between consecutive words.
func Characters(transcript string) []string {
	var chars []string
	for i, word := range strings.Fields(transcript) {
		if i > 0 {
			chars = append(chars, Space)
		}
		for _, r := range word {
			chars = append(chars, string(r))
		}
	}
	return chars
}

// CountLetters returns the number of non-space characters in transcript.
func CountLetters(transcript string) int {
	n := 0
	for _, word := range strings.Fields(transcript) {
		for range word {
			n++
		}
	}
	return n
}
