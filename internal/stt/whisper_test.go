package stt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
)

func TestWhisperTranscriber_Transcribe(t *testing.T) {
	var gotModel, gotLanguage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("Expected multipart body: %v", err)
		}
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"안녕하세요"}`)
	}))
	defer srv.Close()

	tr := NewWhisperTranscriber("test-key", "whisper-1", option.WithBaseURL(srv.URL+"/v1/"))
	text, err := tr.Transcribe(context.Background(), []byte("RIFF"), "ko-KR")
	if err != nil {
		t.Fatalf("Transcribe() failed: %v", err)
	}
	if text != "안녕하세요" {
		t.Errorf("Expected transcript, got %q", text)
	}
	if gotModel != "whisper-1" {
		t.Errorf("Expected model whisper-1, got %q", gotModel)
	}
	if gotLanguage != "ko" {
		t.Errorf("Expected base language ko, got %q", gotLanguage)
	}
}

func TestWhisperTranscriber_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"empty text", http.StatusOK, `{"text":""}`, ErrUnrecognizable},
		{"rejected audio", http.StatusBadRequest, `{"error":{"message":"invalid file"}}`, ErrUnrecognizable},
		{"audio too short", http.StatusBadRequest, `{"error":{"message":"Minimum audio length is 0.1 seconds.","code":"audio_too_short","param":"file"}}`, ErrUnrecognizable},
		{"unknown model", http.StatusBadRequest, `{"error":{"message":"The model whisper-9 does not exist.","code":"model_not_found","param":"model"}}`, ErrUnavailable},
		{"bad language", http.StatusBadRequest, `{"error":{"message":"Language 'xx' is not supported.","param":"language"}}`, ErrUnavailable},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"down"}}`, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			tr := NewWhisperTranscriber("test-key", "whisper-1", option.WithBaseURL(srv.URL+"/v1/"))
			_, err := tr.Transcribe(context.Background(), []byte("RIFF"), "en")
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}
