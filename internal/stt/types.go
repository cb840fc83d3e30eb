package stt

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrUnrecognizable means the provider answered but found no speech.
	ErrUnrecognizable = errors.New("speech could not be recognized")
	// ErrUnavailable means the provider could not be reached or failed.
	ErrUnavailable = errors.New("transcription provider unavailable")
)

// Transcriber turns a WAV recording into text.
type Transcriber interface {
	// Transcribe returns the transcript of wav. language is a BCP-47 tag
	// such as "ko-KR". Errors match ErrUnrecognizable or ErrUnavailable.
	Transcribe(ctx context.Context, wav []byte, language string) (string, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}

// Func adapts a function to the Transcriber interface.
type Func func(ctx context.Context, wav []byte, language string) (string, error)

func (f Func) Transcribe(ctx context.Context, wav []byte, language string) (string, error) {
	return f(ctx, wav, language)
}

func (f Func) Name() string { return "func" }

// baseLanguage returns the primary subtag of a language tag ("ko-KR" -> "ko").
func baseLanguage(tag string) string {
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

// checkTranscript trims text and reports ErrUnrecognizable when nothing is
// left.
func checkTranscript(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrUnrecognizable
	}
	return text, nil
}
