package audio

import (
	"math"
)

// Frame parameters used when locating silence.
const (
	TrimFrameLength = 2048
	TrimHopLength   = 512
)

// Interval is a half-open sample range [Start, End).
type Interval struct {
	Start int
	End   int
}

// Len returns the interval length in samples.
func (iv Interval) Len() int { return iv.End - iv.Start }

// SplitNonSilent returns the intervals whose frame energy is within topDB of
// the loudest frame. Frames are centered, so a frame at index t covers
// samples around t*hop.
func SplitNonSilent(sig Signal, topDB float64, frameLength, hop int) []Interval {
	n := len(sig.Samples)
	if n == 0 || frameLength <= 0 || hop <= 0 {
		return nil
	}

	energies := frameRMS(sig.Samples, frameLength, hop)
	var peak float64
	for _, e := range energies {
		if e > peak {
			peak = e
		}
	}
	if peak == 0 {
		return nil
	}

	threshold := -math.Abs(topDB)
	var intervals []Interval
	inSpeech := false
	start := 0
	for t, e := range energies {
		speech := e > 0 && 20*math.Log10(e/peak) > threshold
		switch {
		case speech && !inSpeech:
			start = t * hop
			inSpeech = true
		case !speech && inSpeech:
			intervals = append(intervals, clampInterval(start, t*hop, n))
			inSpeech = false
		}
	}
	if inSpeech {
		intervals = append(intervals, clampInterval(start, len(energies)*hop, n))
	}

	out := intervals[:0]
	for _, iv := range intervals {
		if iv.Len() > 0 {
			out = append(out, iv)
		}
	}
	return out
}

func clampInterval(start, end, n int) Interval {
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return Interval{Start: start, End: end}
}

// frameRMS computes the RMS of centered, zero-padded frames.
func frameRMS(samples []float64, frameLength, hop int) []float64 {
	n := len(samples)
	half := frameLength / 2
	count := 1 + n/hop
	out := make([]float64, count)
	for t := 0; t < count; t++ {
		center := t * hop
		lo, hi := center-half, center-half+frameLength
		if lo < 0 {
			lo = 0
		}
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		// Padding counts toward the frame length.
		var sum float64
		for _, s := range samples[lo:hi] {
			sum += s * s
		}
		out[t] = math.Sqrt(sum / float64(frameLength))
	}
	return out
}

// Trim concatenates the non-silent intervals of sig. The result may be empty.
func Trim(sig Signal, topDB float64) Signal {
	intervals := SplitNonSilent(sig, topDB, TrimFrameLength, TrimHopLength)
	total := 0
	for _, iv := range intervals {
		total += iv.Len()
	}

	samples := make([]float64, 0, total)
	for _, iv := range intervals {
		samples = append(samples, sig.Samples[iv.Start:iv.End]...)
	}
	return Signal{Samples: samples, SampleRate: sig.SampleRate}
}

// SpeechDuration returns the total length in seconds of the non-silent
// intervals.
func SpeechDuration(sig Signal, topDB float64) float64 {
	if sig.SampleRate <= 0 {
		return 0
	}
	total := 0
	for _, iv := range SplitNonSilent(sig, topDB, TrimFrameLength, TrimHopLength) {
		total += iv.Len()
	}
	return float64(total) / float64(sig.SampleRate)
}
