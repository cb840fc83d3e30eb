package dsp

import (
	"math"
	"testing"
)

func sine(freq, amplitude float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// bursts places plucked tones (sharp attack, exponential decay) of the given
// length at each start sample.
func bursts(total, length int, starts []int, sampleRate int) []float64 {
	out := make([]float64, total)
	burst := sine(440, 0.5, sampleRate, length)
	for i := range burst {
		burst[i] *= math.Exp(-float64(i) / (0.025 * float64(sampleRate)))
	}
	for _, s := range starts {
		copy(out[s:], burst)
	}
	return out
}

func TestOnsetStrength_Shape(t *testing.T) {
	samples := sine(440, 0.3, 22050, 22050)

	env := OnsetStrength(samples, 22050, 512)
	if len(env) != 1+len(samples)/512 {
		t.Fatalf("Expected %d frames, got %d", 1+len(samples)/512, len(env))
	}
	if env[0] != 0 {
		t.Errorf("Expected first frame to be 0, got %f", env[0])
	}
	for i, v := range env {
		if v < 0 || math.IsNaN(v) {
			t.Fatalf("Frame %d: expected non-negative strength, got %f", i, v)
		}
	}
}

func TestOnsetStrength_Empty(t *testing.T) {
	if env := OnsetStrength(nil, 22050, 512); env != nil {
		t.Errorf("Expected nil envelope, got %v", env)
	}
}

func TestDetectOnsets_Bursts(t *testing.T) {
	const (
		sr  = 22050
		hop = 512
	)
	starts := []int{sr / 2, sr, 3 * sr / 2}
	samples := bursts(2*sr, sr/4, starts, sr)

	env := OnsetStrength(samples, sr, hop)
	onsets := DetectOnsets(env, sr, hop, true)
	if len(onsets) < len(starts) {
		t.Fatalf("Expected at least %d onsets, got %v", len(starts), onsets)
	}

	near := func(frame, start int) bool {
		sf := start / hop
		return frame >= sf-4 && frame <= sf+4
	}
	for _, s := range starts {
		found := false
		for _, o := range onsets {
			if near(o, s) {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected an onset near frame %d, got %v", s/hop, onsets)
		}
	}
	for _, o := range onsets {
		ok := false
		for _, s := range starts {
			ok = ok || near(o, s)
		}
		if !ok {
			t.Errorf("Onset at frame %d is not near any burst", o)
		}
	}
	for i := 1; i < len(onsets); i++ {
		if onsets[i] <= onsets[i-1] {
			t.Errorf("Expected strictly increasing onsets, got %v", onsets)
		}
	}
}

func TestDetectOnsets_Flat(t *testing.T) {
	if onsets := DetectOnsets(make([]float64, 50), 22050, 512, true); len(onsets) != 0 {
		t.Errorf("Expected no onsets on a flat envelope, got %v", onsets)
	}
}

func TestPickPeaks(t *testing.T) {
	x := []float64{0, 1, 0, 0, 0.5, 0, 0, 0.02, 0, 0}

	peaks := PickPeaks(x, PeakParams{PreMax: 1, PostMax: 2, PreAvg: 2, PostAvg: 3, Wait: 1, Delta: 0.1})
	expected := []int{1, 4}
	if len(peaks) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, peaks)
	}
	for i := range expected {
		if peaks[i] != expected[i] {
			t.Errorf("Expected %v, got %v", expected, peaks)
		}
	}
}

func TestPickPeaks_Wait(t *testing.T) {
	x := []float64{0, 1, 0, 1, 0, 0, 0, 1, 0}

	peaks := PickPeaks(x, PeakParams{PreMax: 1, PostMax: 1, PreAvg: 1, PostAvg: 1, Wait: 3, Delta: 0.1})
	expected := []int{1, 7}
	if len(peaks) != len(expected) || peaks[0] != 1 || peaks[1] != 7 {
		t.Errorf("Expected %v, got %v", expected, peaks)
	}
}

func TestBacktrack(t *testing.T) {
	energy := []float64{0.5, 0.2, 0.8, 0.9, 0.3, 0.1, 0.6, 1.0}

	tests := []struct {
		name     string
		events   []int
		expected []int
	}{
		{"to preceding minimum", []int{3, 7}, []int{1, 5}},
		{"before first minimum", []int{0}, []int{0}},
		{"collapsing events", []int{6, 7}, []int{5}},
		{"on a minimum", []int{5}, []int{5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Backtrack(tt.events, energy)
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("Expected %v, got %v", tt.expected, got)
				}
			}
		})
	}
}

func TestFramesToSamples(t *testing.T) {
	got := FramesToSamples([]int{0, 2, 5}, 512)
	expected := []int{0, 1024, 2560}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Expected %v, got %v", expected, got)
		}
	}
}
