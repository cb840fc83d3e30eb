package prosody

import (
	"math"
	"testing"

	"github.com/lexiqai/echo-speech/internal/audio"
	"github.com/lexiqai/echo-speech/internal/dsp"
)

func TestSegmentPitch(t *testing.T) {
	nan := math.NaN()
	track := dsp.F0Track{Hz: []float64{100, nan, 300, 200, 120, 500}, HopLength: 100}

	tests := []struct {
		name       string
		start, end int
		expected   float64
		absent     bool
	}{
		{"odd count", 0, 400, 200, false},     // 100, 300, 200
		{"even count", 0, 300, 200, false},    // 100, 300
		{"unvoiced only", 100, 200, 0, true},  // frame 1
		{"no frames", 110, 190, 0, true},      // no frame starts inside
		{"half open end", 0, 100, 100, false}, // frame 1 excluded
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SegmentPitch(track, tt.start, tt.end)
			if tt.absent {
				if got != nil {
					t.Errorf("Expected absent pitch, got %f", *got)
				}
				return
			}
			if got == nil {
				t.Fatal("Expected a pitch value")
			}
			if *got != tt.expected {
				t.Errorf("Expected %f, got %f", tt.expected, *got)
			}
		})
	}
}

func TestSegmentPitch_EvenMedian(t *testing.T) {
	track := dsp.F0Track{Hz: []float64{100, 200, 300, 400}, HopLength: 10}

	got := SegmentPitch(track, 0, 40)
	if got == nil || *got != 250 {
		t.Errorf("Expected median 250, got %v", got)
	}
}

func TestSegmentDuration(t *testing.T) {
	if got := SegmentDuration(10, 100, 16000); got != 90.0/16000 {
		t.Errorf("Expected %f, got %f", 90.0/16000, got)
	}
	if got := SegmentDuration(500, 500, 16000); got != 0 {
		t.Errorf("Expected 0 for empty segment, got %f", got)
	}
	if got := SegmentDuration(500, 400, 16000); got != 0 {
		t.Errorf("Expected duration floored at 0, got %f", got)
	}
}

func TestSegmentVolume(t *testing.T) {
	constant := make([]float64, 100)
	for i := range constant {
		constant[i] = 0.1
	}

	if got := SegmentVolume(constant); got != -20 {
		t.Errorf("Expected -20 dB, got %f", got)
	}
	if got := SegmentVolume(nil); got != audio.SilenceDB {
		t.Errorf("Expected %f for empty segment, got %f", audio.SilenceDB, got)
	}
	if got := SegmentVolume([]float64{1e-6, -1e-6}); got != audio.SilenceDB {
		t.Errorf("Expected %f for near-silence, got %f", audio.SilenceDB, got)
	}
}

func TestSummarize(t *testing.T) {
	spoken := audio.Signal{Samples: make([]float64, 1600), SampleRate: 16000}
	align := Alignment{Boundaries: []int{0, 800, 1600}}
	f0 := dsp.F0Track{Hz: []float64{110, 110, 110, 220, 220, 220, 220}, HopLength: 256}
	volumes := []CharVolume{
		{Char: "a", Volume: -20},
		{Char: Space, Volume: audio.SilenceDB},
		{Char: "b", Volume: -25},
		{Char: "c", Volume: -30},
	}

	records := Summarize(spoken, volumes, align, f0)
	if len(records) != 4 {
		t.Fatalf("Expected 4 records, got %d", len(records))
	}

	a, space, b, c := records[0], records[1], records[2], records[3]
	if a.DurationSec != 0.05 || a.F0Hz == nil || *a.F0Hz != 110 || a.VolumeDB != -20 {
		t.Errorf("Unexpected first record: %+v", a)
	}
	if space.DurationSec != 0 || space.F0Hz != nil || space.Char != Space {
		t.Errorf("Expected empty space record, got %+v", space)
	}
	if b.DurationSec != 0.05 || b.F0Hz == nil || *b.F0Hz != 220 {
		t.Errorf("Unexpected second letter record: %+v", b)
	}
	// No segment left for "c".
	if c.DurationSec != 0 || c.F0Hz != nil || c.VolumeDB != -30 {
		t.Errorf("Expected zero-duration record past the last segment, got %+v", c)
	}
}
