package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrUnsupportedFormat is returned for anything that is not a PCM WAV file.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// WAV fmt chunk encoding tags.
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// Signal is a mono recording with samples in [-1, 1].
type Signal struct {
	Samples    []float64
	SampleRate int
}

// Len returns the number of samples.
func (s Signal) Len() int { return len(s.Samples) }

// Duration returns the signal length in seconds.
func (s Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Slice returns the samples in [start, end), clamped to the signal.
func (s Signal) Slice(start, end int) []float64 {
	if start < 0 {
		start = 0
	}
	if end > len(s.Samples) {
		end = len(s.Samples)
	}
	if start >= end {
		return nil
	}
	return s.Samples[start:end]
}

// Load reads a WAV file from disk. Only the .wav extension is accepted.
func Load(path string) (Signal, error) {
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return Signal{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFormat)
	}

	f, err := os.Open(path)
	if err != nil {
		return Signal{}, fmt.Errorf("failed to open audio: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// DecodeBytes decodes an in-memory WAV file.
func DecodeBytes(data []byte) (Signal, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a PCM WAV stream at its native sample rate. Multi-channel
// audio is averaged to mono.
func Decode(r io.ReadSeeker) (Signal, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Signal{}, fmt.Errorf("invalid wav header: %w", ErrUnsupportedFormat)
	}
	// Samples are read as integers, so float and compressed encodings are out.
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return Signal{}, fmt.Errorf("wav encoding %d is not integer PCM: %w", dec.WavAudioFormat, ErrUnsupportedFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Signal{}, fmt.Errorf("failed to decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.SampleRate <= 0 {
		return Signal{}, fmt.Errorf("missing wav format: %w", ErrUnsupportedFormat)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return Signal{}, fmt.Errorf("bit depth %d: %w", bitDepth, ErrUnsupportedFormat)
	}

	return Signal{
		Samples:    toMono(buf, bitDepth),
		SampleRate: buf.Format.SampleRate,
	}, nil
}

func toMono(buf *goaudio.IntBuffer, bitDepth int) []float64 {
	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	scale := math.Pow(2, float64(bitDepth-1))
	// 8-bit WAV is unsigned
	offset := 0.0
	if bitDepth == 8 {
		offset = scale
	}

	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += (float64(buf.Data[i*channels+c]) - offset) / scale
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// Normalize scales samples so the absolute peak equals maxAmplitude.
// Silent input is returned unchanged.
func Normalize(samples []float64, maxAmplitude float64) []float64 {
	out := make([]float64, len(samples))
	var peak float64
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		copy(out, samples)
		return out
	}

	gain := maxAmplitude / peak
	for i, s := range samples {
		out[i] = s * gain
	}
	return out
}

// EncodeWAV renders the signal as a peak-normalized 16-bit mono WAV file.
func EncodeWAV(sig Signal) ([]byte, error) {
	if sig.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sig.SampleRate)
	}

	// The encoder patches the header on Close, so it needs a seekable sink.
	tmp, err := os.CreateTemp("", "echo-speech-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	normalized := Normalize(sig.Samples, 0.95)
	data := make([]int, len(normalized))
	for i, s := range normalized {
		data[i] = int(math.Round(s * math.MaxInt16))
	}

	enc := wav.NewEncoder(tmp, sig.SampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sig.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize wav: %w", err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind wav: %w", err)
	}
	return io.ReadAll(tmp)
}
