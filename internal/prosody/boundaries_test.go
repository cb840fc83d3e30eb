package prosody

import (
	"math/rand"
	"reflect"
	"sort"
	"testing"
)

func checkBoundaries(t *testing.T, b []int, spokenLen, target int) {
	t.Helper()
	if len(b) != target+1 {
		t.Fatalf("Expected %d boundaries, got %d: %v", target+1, len(b), b)
	}
	if b[0] != 0 || b[len(b)-1] != spokenLen {
		t.Fatalf("Expected boundaries from 0 to %d, got %v", spokenLen, b)
	}
	for i := 1; i < len(b); i++ {
		if b[i] < b[i-1] {
			t.Fatalf("Expected non-decreasing boundaries, got %v", b)
		}
	}
}

func TestSelectBoundaries_Invariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for iter := 0; iter < 500; iter++ {
		spokenLen := rng.Intn(50000)
		hop := []int{256, 512}[rng.Intn(2)]
		envLen := 1 + rng.Intn(120)
		strengths := make([]float64, envLen)
		for i := range strengths {
			strengths[i] = rng.Float64()
		}
		frames := make([]int, rng.Intn(30))
		for i := range frames {
			// Deliberately allow frames past the envelope and the signal.
			frames[i] = rng.Intn(envLen + 20)
		}
		sort.Ints(frames)
		target := 1 + rng.Intn(40)

		align := SelectBoundaries(spokenLen, OnsetSet{Strengths: strengths, Frames: frames, HopLength: hop}, target)
		checkBoundaries(t, align.Boundaries, spokenLen, target)
	}
}

func TestSelectBoundaries_NoOnsets(t *testing.T) {
	align := SelectBoundaries(10000, OnsetSet{HopLength: 512}, 4)

	if !reflect.DeepEqual(align.Boundaries, UniformPartition(10000, 4)) {
		t.Errorf("Expected uniform partition, got %v", align.Boundaries)
	}
	if !align.Uniform {
		t.Error("Expected Uniform to be set")
	}
}

func TestSelectBoundaries_ExactCount(t *testing.T) {
	// Strengths would reorder these frames if ranking were applied.
	onsets := OnsetSet{
		Strengths: []float64{0, 0, 0.1, 0, 0, 0.9, 0, 0, 0, 0.5},
		Frames:    []int{2, 5, 9},
		HopLength: 512,
	}

	align := SelectBoundaries(10000, onsets, 4)
	expected := []int{0, 1024, 2560, 4608, 10000}
	if !reflect.DeepEqual(align.Boundaries, expected) {
		t.Errorf("Expected %v, got %v", expected, align.Boundaries)
	}
	if align.Uniform {
		t.Error("Expected onset-derived boundaries")
	}
}

func TestSelectBoundaries_StrongestKept(t *testing.T) {
	strengths := make([]float64, 12)
	frames := []int{2, 4, 6, 8, 10}
	for i, s := range []float64{0.1, 0.9, 0.2, 0.8, 0.3} {
		strengths[frames[i]] = s
	}
	onsets := OnsetSet{Strengths: strengths, Frames: frames, HopLength: 512}

	align := SelectBoundaries(10000, onsets, 4)

	// Frames 4, 8 and 10 carry the three largest strengths.
	expected := []int{0, 2048, 4096, 5120, 10000}
	if !reflect.DeepEqual(align.Boundaries, expected) {
		t.Fatalf("Expected %v, got %v", expected, align.Boundaries)
	}

	allowed := map[int]bool{4 * 512: true, 8 * 512: true, 10 * 512: true}
	interior := align.Boundaries[1 : len(align.Boundaries)-1]
	if !sort.IntsAreSorted(interior) {
		t.Errorf("Expected sorted interior boundaries, got %v", interior)
	}
	for _, b := range interior {
		if !allowed[b] {
			t.Errorf("Boundary %d is not one of the strongest onsets", b)
		}
	}
}

func TestSelectBoundaries_StableTies(t *testing.T) {
	onsets := OnsetSet{
		Strengths: []float64{0, 1, 1, 1, 1},
		Frames:    []int{1, 2, 3, 4},
		HopLength: 100,
	}

	align := SelectBoundaries(1000, onsets, 3)
	expected := []int{0, 100, 200, 1000}
	if !reflect.DeepEqual(align.Boundaries, expected) {
		t.Errorf("Expected earliest of tied onsets, got %v", align.Boundaries)
	}
}

func TestSelectBoundaries_OutOfRangeFallsBack(t *testing.T) {
	onsets := OnsetSet{Strengths: make([]float64, 200), Frames: []int{100}, HopLength: 512}

	align := SelectBoundaries(1000, onsets, 2)
	if !reflect.DeepEqual(align.Boundaries, []int{0, 500, 1000}) {
		t.Errorf("Expected uniform fallback, got %v", align.Boundaries)
	}
	if !align.Uniform {
		t.Error("Expected Uniform to be set")
	}
}

func TestSelectBoundaries_NonPositiveTarget(t *testing.T) {
	for _, target := range []int{0, -3} {
		align := SelectBoundaries(777, OnsetSet{Frames: []int{1, 2}, HopLength: 10}, target)
		if !reflect.DeepEqual(align.Boundaries, []int{0, 777}) {
			t.Errorf("target %d: expected [0 777], got %v", target, align.Boundaries)
		}
	}
}

func TestUniformPartition(t *testing.T) {
	tests := []struct {
		spokenLen int
		target    int
		expected  []int
	}{
		{10, 3, []int{0, 3, 6, 10}},
		{16000, 2, []int{0, 8000, 16000}},
		{2, 4, []int{0, 0, 1, 1, 2}},
		{0, 2, []int{0, 0, 0}},
	}

	for _, tt := range tests {
		got := UniformPartition(tt.spokenLen, tt.target)
		if !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("UniformPartition(%d, %d): expected %v, got %v", tt.spokenLen, tt.target, tt.expected, got)
		}
	}
}
