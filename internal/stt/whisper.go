package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// WhisperTranscriber uses the OpenAI audio transcription endpoint.
type WhisperTranscriber struct {
	client openai.Client
	model  string
}

// NewWhisperTranscriber creates an OpenAI transcription client. Extra
// request options (base URL, HTTP client) are applied after the API key.
func NewWhisperTranscriber(apiKey, model string, opts ...option.RequestOption) *WhisperTranscriber {
	// Retries are handled by Resilient.
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &WhisperTranscriber{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Name implements Transcriber.
func (w *WhisperTranscriber) Name() string { return "whisper" }

// Transcribe implements Transcriber.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, wav []byte, language string) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wav), "audio.wav", "audio/wav"),
		Model: openai.AudioModel(w.model),
	}
	if lang := baseLanguage(language); lang != "" {
		params.Language = openai.String(lang)
	}

	res, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && rejectedAudio(apiErr) {
			return "", fmt.Errorf("whisper: %w: %v", ErrUnrecognizable, err)
		}
		return "", fmt.Errorf("whisper: %w: %v", ErrUnavailable, err)
	}
	return checkTranscript(res.Text)
}

// rejectedAudio reports whether the API refused the recording itself. Other
// bad requests (unknown model, bad language) are configuration faults.
func rejectedAudio(apiErr *openai.Error) bool {
	if apiErr.StatusCode != http.StatusBadRequest {
		return false
	}
	switch apiErr.Code {
	case "audio_too_short", "invalid_file_format", "invalid_audio":
		return true
	}
	if apiErr.Param == "file" {
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "audio") || strings.Contains(msg, "file")
}
