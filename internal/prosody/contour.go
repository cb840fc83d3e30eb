package prosody

import (
	"math"

	"github.com/lexiqai/echo-speech/internal/dsp"
)

type charSegment struct {
	start, end int
	index      int // position in the full character sequence
}

// letterSegments pairs each non-space character with the next segment of
// align, in order, until either runs out.
func letterSegments(chars []string, align Alignment) []charSegment {
	segs := make([]charSegment, 0, align.Segments())
	next := 0
	for i, ch := range chars {
		if ch == Space {
			continue
		}
		if next >= align.Segments() {
			break
		}
		start, end := align.Segment(next)
		segs = append(segs, charSegment{start: start, end: end, index: i})
		next++
	}
	return segs
}

// BuildContour re-addresses the F0 track by character position. A frame
// inside a letter's segment lands at index+progress, where index is the
// letter's position in chars (spaces included) and progress in [0, 1) is how
// far the frame sits through the segment. Frames outside every segment are
// dropped.
func BuildContour(chars []string, align Alignment, f0 dsp.F0Track) Contour {
	contour := Contour{
		CharAxis: []float64{},
		F0Hz:     []*float64{},
		Chars:    append([]string{}, chars...),
	}

	segs := letterSegments(chars, align)
	ptr := 0
	for i, hz := range f0.Hz {
		fs := f0.FrameSample(i)
		for ptr < len(segs) && fs >= segs[ptr].end {
			ptr++
		}
		if ptr >= len(segs) {
			break
		}

		seg := segs[ptr]
		if fs < seg.start || seg.end <= seg.start {
			continue
		}
		progress := float64(fs-seg.start) / float64(seg.end-seg.start)
		contour.CharAxis = append(contour.CharAxis, float64(seg.index)+progress)

		var pitch *float64
		if !math.IsNaN(hz) {
			v := hz
			pitch = &v
		}
		contour.F0Hz = append(contour.F0Hz, pitch)
	}
	return contour
}
