package prosody

import (
	"strings"

	"github.com/lexiqai/echo-speech/internal/audio"
)

// Reconstruct lays per-letter records back onto the transcript's word
// structure. Each non-space character takes the next record, relabelled via
// label, and space() is inserted between words but not after the last one.
// Once records run out the remaining letters are dropped.
func Reconstruct[T any](transcript string, records []T, label func(T, string) T, space func() T) []T {
	words := strings.Fields(transcript)
	out := make([]T, 0, len(records)+len(words))
	next := 0
	for i, word := range words {
		for _, r := range word {
			if next >= len(records) {
				break
			}
			out = append(out, label(records[next], string(r)))
			next++
		}
		if i < len(words)-1 {
			out = append(out, space())
		}
	}
	return out
}

// ReconstructVolumes is Reconstruct for loudness values: spaces carry
// audio.SilenceDB.
func ReconstructVolumes(transcript string, volumes []float64) []CharVolume {
	records := make([]CharVolume, len(volumes))
	for i, v := range volumes {
		records[i] = CharVolume{Volume: v}
	}
	return Reconstruct(transcript, records,
		func(cv CharVolume, char string) CharVolume {
			cv.Char = char
			return cv
		},
		func() CharVolume { return CharVolume{Char: Space, Volume: audio.SilenceDB} },
	)
}
