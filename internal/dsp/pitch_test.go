package dsp

import (
	"math"
	"sort"
	"testing"
)

func medianVoiced(hz []float64) (float64, int) {
	var voiced []float64
	for _, v := range hz {
		if !math.IsNaN(v) {
			voiced = append(voiced, v)
		}
	}
	if len(voiced) == 0 {
		return math.NaN(), 0
	}
	sort.Float64s(voiced)
	return voiced[len(voiced)/2], len(voiced)
}

func TestTrackF0_Sine(t *testing.T) {
	tests := []struct {
		freq       float64
		sampleRate int
	}{
		{220, 16000},
		{440, 16000},
		{130, 22050},
	}

	for _, tt := range tests {
		samples := sine(tt.freq, 0.5, tt.sampleRate, tt.sampleRate)
		track := TrackF0(samples, tt.sampleRate, DefaultPitchConfig())

		if len(track.Hz) != 1+len(samples)/256 {
			t.Fatalf("%.0f Hz: expected %d frames, got %d", tt.freq, 1+len(samples)/256, len(track.Hz))
		}

		median, voiced := medianVoiced(track.Hz)
		if voiced < len(track.Hz)/2 {
			t.Errorf("%.0f Hz: expected most frames voiced, got %d of %d", tt.freq, voiced, len(track.Hz))
		}
		if math.Abs(median-tt.freq) > tt.freq*0.02 {
			t.Errorf("%.0f Hz: expected median near %.0f, got %f", tt.freq, tt.freq, median)
		}
	}
}

func TestTrackF0_Silence(t *testing.T) {
	track := TrackF0(make([]float64, 8000), 16000, DefaultPitchConfig())

	if track.Voiced() != 0 {
		t.Errorf("Expected no voiced frames in silence, got %d", track.Voiced())
	}
	for i, v := range track.Hz {
		if !math.IsNaN(v) {
			t.Fatalf("Frame %d: expected NaN, got %f", i, v)
		}
	}
}

func TestTrackF0_Empty(t *testing.T) {
	track := TrackF0(nil, 16000, DefaultPitchConfig())
	if len(track.Hz) != 0 {
		t.Errorf("Expected empty track, got %d frames", len(track.Hz))
	}
	if track.HopLength != 256 {
		t.Errorf("Expected hop to be carried, got %d", track.HopLength)
	}
}

func TestF0Track_FrameSample(t *testing.T) {
	track := F0Track{Hz: []float64{100, math.NaN(), 120}, HopLength: 256}

	if track.FrameSample(2) != 512 {
		t.Errorf("Expected frame 2 at sample 512, got %d", track.FrameSample(2))
	}
	if track.Voiced() != 2 {
		t.Errorf("Expected 2 voiced frames, got %d", track.Voiced())
	}
}
