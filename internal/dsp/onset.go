// Package dsp holds the onset and pitch primitives the prosody engine
// consumes. Both operate on mono float samples and use centered frames, so
// frame t is anchored at sample t*hop.
package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// STFT parameters for the onset-strength envelope.
const (
	OnsetFFTSize = 2048
	onsetTopDB   = 80.0
	powerFloor   = 1e-10
)

// Peak-picking windows in seconds, plus the threshold on the normalized
// envelope.
const (
	peakPreMaxSec  = 0.03
	peakPreAvgSec  = 0.10
	peakPostAvgSec = 0.10
	peakWaitSec    = 0.03
	peakDelta      = 0.07
)

// OnsetStrength computes a spectral-flux onset envelope with 1+len/hop
// frames. Each frame is the mean positive change in log power against the
// previous frame; frame 0 is always 0.
func OnsetStrength(samples []float64, sampleRate, hop int) []float64 {
	if len(samples) == 0 || hop <= 0 || sampleRate <= 0 {
		return nil
	}

	spec := logPowerSpectrogram(samples, OnsetFFTSize, hop)
	env := make([]float64, len(spec))
	for t := 1; t < len(spec); t++ {
		var flux float64
		for k := range spec[t] {
			if d := spec[t][k] - spec[t-1][k]; d > 0 {
				flux += d
			}
		}
		env[t] = flux / float64(len(spec[t]))
	}
	return env
}

// logPowerSpectrogram returns per-frame power in dB, clipped to onsetTopDB
// below the global maximum.
func logPowerSpectrogram(samples []float64, nfft, hop int) [][]float64 {
	window := hann(nfft)
	fft := fourier.NewFFT(nfft)
	frames := 1 + len(samples)/hop
	half := nfft / 2

	spec := make([][]float64, frames)
	buf := make([]float64, nfft)
	coeffs := make([]complex128, nfft/2+1)
	maxDB := math.Inf(-1)
	for t := 0; t < frames; t++ {
		start := t*hop - half
		for i := range buf {
			j := start + i
			if j >= 0 && j < len(samples) {
				buf[i] = samples[j] * window[i]
			} else {
				buf[i] = 0
			}
		}
		fft.Coefficients(coeffs, buf)

		row := make([]float64, len(coeffs))
		for k, c := range coeffs {
			p := cmplx.Abs(c)
			row[k] = 10 * math.Log10(math.Max(p*p, powerFloor))
		}
		if m := floats.Max(row); m > maxDB {
			maxDB = m
		}
		spec[t] = row
	}

	floor := maxDB - onsetTopDB
	for _, row := range spec {
		for k, v := range row {
			if v < floor {
				row[k] = floor
			}
		}
	}
	return spec
}

// hann returns a periodic Hann window.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// DetectOnsets picks peaks in an onset envelope and returns their frame
// indices in ascending order. With backtrack set, each onset is moved to the
// preceding local minimum of the envelope.
func DetectOnsets(env []float64, sampleRate, hop int, backtrack bool) []int {
	if len(env) == 0 || hop <= 0 || sampleRate <= 0 {
		return nil
	}

	lo, hi := floats.Min(env), floats.Max(env)
	if hi-lo <= 0 {
		return nil
	}
	norm := make([]float64, len(env))
	for i, v := range env {
		norm[i] = (v - lo) / (hi - lo)
	}

	framesPerSec := float64(sampleRate) / float64(hop)
	peaks := PickPeaks(norm, PeakParams{
		PreMax:  int(peakPreMaxSec * framesPerSec),
		PostMax: 1,
		PreAvg:  int(peakPreAvgSec * framesPerSec),
		PostAvg: int(peakPostAvgSec*framesPerSec) + 1,
		Wait:    int(peakWaitSec * framesPerSec),
		Delta:   peakDelta,
	})
	if backtrack {
		peaks = Backtrack(peaks, env)
	}
	return peaks
}

// PeakParams are frame counts for PickPeaks. PostMax and PostAvg are
// exclusive upper offsets.
type PeakParams struct {
	PreMax  int
	PostMax int
	PreAvg  int
	PostAvg int
	Wait    int
	Delta   float64
}

// PickPeaks returns indices n where x[n] is the maximum of
// x[n-PreMax:n+PostMax], at least Delta above the mean of
// x[n-PreAvg:n+PostAvg], and more than Wait frames after the previous peak.
func PickPeaks(x []float64, p PeakParams) []int {
	var peaks []int
	last := math.MinInt / 2
	for n := range x {
		lo, hi := clampRange(n-p.PreMax, n+p.PostMax, len(x))
		if x[n] < floats.Max(x[lo:hi]) {
			continue
		}

		lo, hi = clampRange(n-p.PreAvg, n+p.PostAvg, len(x))
		avg := floats.Sum(x[lo:hi]) / float64(hi-lo)
		if x[n] < avg+p.Delta {
			continue
		}

		if n-last <= p.Wait {
			continue
		}
		peaks = append(peaks, n)
		last = n
	}
	return peaks
}

func clampRange(lo, hi, n int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

// Backtrack moves each event to the nearest local minimum of energy at or
// before it. Frame 0 always counts as a minimum. Events that collapse onto
// the same minimum are reported once.
func Backtrack(events []int, energy []float64) []int {
	minima := []int{0}
	for i := 1; i+1 < len(energy); i++ {
		if energy[i] <= energy[i-1] && energy[i] < energy[i+1] {
			minima = append(minima, i)
		}
	}

	out := make([]int, 0, len(events))
	j := 0
	for _, ev := range events {
		for j+1 < len(minima) && minima[j+1] <= ev {
			j++
		}
		m := minima[j]
		if len(out) > 0 && out[len(out)-1] >= m {
			continue
		}
		out = append(out, m)
	}
	return out
}

// FramesToSamples maps frame indices to sample offsets.
func FramesToSamples(frames []int, hop int) []int {
	out := make([]int, len(frames))
	for i, f := range frames {
		out[i] = f * hop
	}
	return out
}
