package audio

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// SilenceDB is reported for segments whose RMS is below MinRMS.
const (
	SilenceDB = -100.0
	MinRMS    = 1e-4
)

// CalculateRMS calculates the root mean square of samples.
func CalculateRMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(samples, samples) / float64(len(samples)))
}

// ToDB converts an RMS value to decibels, flooring quiet input at SilenceDB.
func ToDB(rms float64) float64 {
	if rms < MinRMS {
		return SilenceDB
	}
	return 20 * math.Log10(rms)
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
