package prosody

import (
	"sort"
)

// SelectBoundaries maps onset events to target+1 sample boundaries over a
// spoken signal of spokenLen samples.
//
// When there are more onsets than interior boundaries, the target-1
// strongest are kept and put back in time order. The result always has
// target+1 non-decreasing entries from 0 to spokenLen; anything else falls
// back to UniformPartition with Uniform set.
func SelectBoundaries(spokenLen int, onsets OnsetSet, target int) Alignment {
	if target <= 0 {
		return Alignment{Boundaries: []int{0, spokenLen}}
	}

	frames := append([]int(nil), onsets.Frames...)
	if len(frames) > target-1 {
		sort.SliceStable(frames, func(i, j int) bool {
			return onsets.strength(frames[i]) > onsets.strength(frames[j])
		})
		frames = frames[:target-1]
		sort.Ints(frames)
	}

	boundaries := make([]int, 0, len(frames)+2)
	boundaries = append(boundaries, 0)
	for _, f := range frames {
		boundaries = append(boundaries, f*onsets.HopLength)
	}
	boundaries = append(boundaries, spokenLen)

	if !validBoundaries(boundaries, spokenLen, target) {
		return Alignment{Boundaries: UniformPartition(spokenLen, target), Uniform: true}
	}
	return Alignment{Boundaries: boundaries}
}

func validBoundaries(b []int, spokenLen, target int) bool {
	if len(b) != target+1 {
		return false
	}
	for i, v := range b {
		if v < 0 || v > spokenLen {
			return false
		}
		if i > 0 && v < b[i-1] {
			return false
		}
	}
	return true
}

// UniformPartition returns target+1 evenly spaced sample indices spanning
// [0, spokenLen].
func UniformPartition(spokenLen, target int) []int {
	if target <= 0 {
		return []int{0, spokenLen}
	}
	b := make([]int, target+1)
	for i := range b {
		b[i] = int(int64(i) * int64(spokenLen) / int64(target))
	}
	return b
}
