package prosody

import (
	"math"
	"sort"

	"github.com/lexiqai/echo-speech/internal/audio"
	"github.com/lexiqai/echo-speech/internal/dsp"
)

// SegmentVolume returns the loudness of a segment in dB, rounded to two
// decimals. Empty or near-silent segments report audio.SilenceDB.
func SegmentVolume(samples []float64) float64 {
	if len(samples) == 0 {
		return audio.SilenceDB
	}
	return audio.Round(audio.ToDB(audio.CalculateRMS(samples)), 2)
}

// SegmentDuration returns the segment length in seconds, never negative.
func SegmentDuration(start, end, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return math.Max(0, float64(end-start)/float64(sampleRate))
}

// SegmentPitch returns the median of the voiced F0 frames anchored in
// [start, end), or nil when there are none.
func SegmentPitch(f0 dsp.F0Track, start, end int) *float64 {
	var voiced []float64
	for i, hz := range f0.Hz {
		s := f0.FrameSample(i)
		if s < start {
			continue
		}
		if s >= end {
			break
		}
		if !math.IsNaN(hz) {
			voiced = append(voiced, hz)
		}
	}
	if len(voiced) == 0 {
		return nil
	}

	sort.Float64s(voiced)
	mid := len(voiced) / 2
	median := voiced[mid]
	if len(voiced)%2 == 0 {
		median = (voiced[mid-1] + voiced[mid]) / 2
	}
	return &median
}

// Summarize builds one record per character volume. Non-space characters
// consume segments of align in order; spaces and characters left over after
// the last segment get zero duration and no pitch.
func Summarize(spoken audio.Signal, charVolumes []CharVolume, align Alignment, f0 dsp.F0Track) []Record {
	records := make([]Record, 0, len(charVolumes))
	seg := 0
	for _, cv := range charVolumes {
		rec := Record{Char: cv.Char, VolumeDB: cv.Volume}
		if cv.Char != Space && seg < align.Segments() {
			start, end := align.Segment(seg)
			rec.DurationSec = audio.Round(SegmentDuration(start, end, spoken.SampleRate), 3)
			rec.F0Hz = SegmentPitch(f0, start, end)
			seg++
		}
		records = append(records, rec)
	}
	return records
}
