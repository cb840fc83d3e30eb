package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// Note frequencies bounding the default pitch search.
const (
	NoteC2Hz = 65.406
	NoteC7Hz = 2093.005
)

// minFrameEnergy is the mean-square level below which a frame is unvoiced.
const minFrameEnergy = 1e-8

// PitchConfig controls TrackF0.
type PitchConfig struct {
	FrameLength int
	HopLength   int
	FMin        float64
	FMax        float64
	// Threshold on the cumulative mean normalized difference below which a
	// lag is accepted as periodic.
	Threshold float64
}

// DefaultPitchConfig mirrors the analysis defaults: C2..C7, 2048-sample
// frames, 256-sample hop.
func DefaultPitchConfig() PitchConfig {
	return PitchConfig{
		FrameLength: 2048,
		HopLength:   256,
		FMin:        NoteC2Hz,
		FMax:        NoteC7Hz,
		Threshold:   0.1,
	}
}

// F0Track is a frame-wise fundamental frequency estimate. Unvoiced frames
// hold NaN.
type F0Track struct {
	Hz        []float64
	HopLength int
}

// FrameSample returns the sample index frame i is anchored at.
func (t F0Track) FrameSample(i int) int { return i * t.HopLength }

// Voiced reports how many frames carry a pitch estimate.
func (t F0Track) Voiced() int {
	n := 0
	for _, v := range t.Hz {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// TrackF0 estimates F0 with the YIN difference function over centered
// frames. The track has 1+len(samples)/hop frames.
func TrackF0(samples []float64, sampleRate int, cfg PitchConfig) F0Track {
	track := F0Track{HopLength: cfg.HopLength}
	if len(samples) == 0 || sampleRate <= 0 || cfg.HopLength <= 0 || cfg.FrameLength < 4 {
		return track
	}

	y := newYIN(sampleRate, cfg)
	frames := 1 + len(samples)/cfg.HopLength
	track.Hz = make([]float64, frames)
	frame := make([]float64, cfg.FrameLength)
	half := cfg.FrameLength / 2
	for t := 0; t < frames; t++ {
		start := t*cfg.HopLength - half
		for i := range frame {
			j := start + i
			if j >= 0 && j < len(samples) {
				frame[i] = samples[j]
			} else {
				frame[i] = 0
			}
		}
		track.Hz[t] = y.estimate(frame)
	}
	return track
}

type yin struct {
	sampleRate float64
	cfg        PitchConfig
	win        int
	minTau     int
	maxTau     int

	fft    *fourier.FFT
	padX   []float64
	padY   []float64
	cx     []complex128
	cy     []complex128
	corr   []float64
	diff   []float64
	cumsum []float64
}

func newYIN(sampleRate int, cfg PitchConfig) *yin {
	win := cfg.FrameLength / 2
	minTau := int(math.Floor(float64(sampleRate) / cfg.FMax))
	if minTau < 2 {
		minTau = 2
	}
	maxTau := int(math.Ceil(float64(sampleRate) / cfg.FMin))
	if limit := cfg.FrameLength - win - 1; maxTau > limit {
		maxTau = limit
	}

	n := 1
	for n < cfg.FrameLength+win {
		n <<= 1
	}
	return &yin{
		sampleRate: float64(sampleRate),
		cfg:        cfg,
		win:        win,
		minTau:     minTau,
		maxTau:     maxTau,
		fft:        fourier.NewFFT(n),
		padX:       make([]float64, n),
		padY:       make([]float64, n),
		cx:         make([]complex128, n/2+1),
		cy:         make([]complex128, n/2+1),
		corr:       make([]float64, n),
		diff:       make([]float64, maxTau+2),
		cumsum:     make([]float64, cfg.FrameLength+1),
	}
}

// estimate returns the F0 of one frame, or NaN when no periodicity is found.
func (y *yin) estimate(frame []float64) float64 {
	if y.minTau+1 >= y.maxTau {
		return math.NaN()
	}
	if floats.Dot(frame, frame)/float64(len(frame)) < minFrameEnergy {
		return math.NaN()
	}

	y.difference(frame)

	// Cumulative mean normalized difference, in place.
	d := y.diff[:y.maxTau+1]
	d[0] = 1
	var running float64
	for tau := 1; tau < len(d); tau++ {
		running += d[tau]
		if running == 0 {
			d[tau] = 1
			continue
		}
		d[tau] = d[tau] * float64(tau) / running
	}

	tau := -1
	for k := y.minTau; k < y.maxTau; k++ {
		if d[k] < y.cfg.Threshold {
			for k+1 < y.maxTau && d[k+1] < d[k] {
				k++
			}
			tau = k
			break
		}
	}
	if tau < 0 {
		return math.NaN()
	}

	period := float64(tau)
	a, b, c := d[tau-1], d[tau], d[tau+1]
	if den := a - 2*b + c; den != 0 {
		if shift := 0.5 * (a - c) / den; math.Abs(shift) < 1 {
			period += shift
		}
	}

	f0 := y.sampleRate / period
	if f0 < y.cfg.FMin || f0 > y.cfg.FMax {
		return math.NaN()
	}
	return f0
}

// difference fills y.diff[tau] = sum_j (x[j] - x[j+tau])^2 over the
// integration window, using an FFT cross-correlation.
func (y *yin) difference(frame []float64) {
	n := len(y.padX)
	copy(y.padX, frame)
	for i := len(frame); i < n; i++ {
		y.padX[i] = 0
	}
	copy(y.padY, frame[:y.win])
	for i := y.win; i < n; i++ {
		y.padY[i] = 0
	}

	y.fft.Coefficients(y.cx, y.padX)
	y.fft.Coefficients(y.cy, y.padY)
	for k := range y.cx {
		y.cx[k] *= complex(real(y.cy[k]), -imag(y.cy[k]))
	}
	y.fft.Sequence(y.corr, y.cx)
	scale := 1 / float64(n)

	y.cumsum[0] = 0
	for i, v := range frame {
		y.cumsum[i+1] = y.cumsum[i] + v*v
	}
	energy0 := y.cumsum[y.win]

	for tau := 0; tau <= y.maxTau+1 && tau < len(y.diff); tau++ {
		energyTau := y.cumsum[tau+y.win] - y.cumsum[tau]
		v := energy0 + energyTau - 2*y.corr[tau]*scale
		if v < 0 {
			v = 0
		}
		y.diff[tau] = v
	}
}
