package stt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lexiqai/echo-speech/internal/resilience"
)

func TestHTTPTranscriber_Transcribe(t *testing.T) {
	var gotLanguage, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Expected file part: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		gotFile = string(data)
		gotLanguage = r.FormValue("language")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ASRResponse{Text: "  안녕하세요 ", Language: "ko"})
	}))
	defer srv.Close()

	tr := NewHTTPTranscriber(srv.URL+"/", time.Second)
	text, err := tr.Transcribe(context.Background(), []byte("RIFF"), "ko-KR")
	if err != nil {
		t.Fatalf("Transcribe() failed: %v", err)
	}
	if text != "안녕하세요" {
		t.Errorf("Expected trimmed transcript, got %q", text)
	}
	if gotLanguage != "ko" {
		t.Errorf("Expected language ko, got %q", gotLanguage)
	}
	if gotFile != "RIFF" {
		t.Errorf("Expected uploaded bytes, got %q", gotFile)
	}
}

func TestHTTPTranscriber_SegmentsFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ASRResponse{Segments: []Segment{
			{Start: 0, End: 1, Text: " hello"},
			{Start: 1, End: 2, Text: ""},
			{Start: 2, End: 3, Text: "world "},
		}})
	}))
	defer srv.Close()

	text, err := NewHTTPTranscriber(srv.URL, time.Second).Transcribe(context.Background(), nil, "en")
	if err != nil {
		t.Fatalf("Transcribe() failed: %v", err)
	}
	if text != "hello world" {
		t.Errorf("Expected joined segments, got %q", text)
	}
}

func TestHTTPTranscriber_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		want      error
		retryable bool
	}{
		{"empty transcript", http.StatusOK, `{"text":"   "}`, ErrUnrecognizable, false},
		{"unprocessable", http.StatusUnprocessableEntity, `{}`, ErrUnrecognizable, false},
		{"server error", http.StatusInternalServerError, "boom", ErrUnavailable, true},
		{"rate limited", http.StatusTooManyRequests, "slow down", ErrUnavailable, true},
		{"bad request", http.StatusBadRequest, "bad", ErrUnavailable, false},
		{"invalid json", http.StatusOK, "{", ErrUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewHTTPTranscriber(srv.URL, time.Second).Transcribe(context.Background(), nil, "")
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			if resilience.IsRetryable(err) != tt.retryable {
				t.Errorf("Expected retryable=%v for %v", tt.retryable, err)
			}
		})
	}
}

func TestHTTPTranscriber_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPTranscriber(url, time.Second).Transcribe(context.Background(), nil, "")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestBaseLanguage(t *testing.T) {
	tests := map[string]string{
		"ko-KR": "ko",
		"en_US": "en",
		"JA":    "ja",
		"":      "",
	}
	for in, expected := range tests {
		if got := baseLanguage(in); got != expected {
			t.Errorf("baseLanguage(%q) = %q, expected %q", in, got, expected)
		}
	}
}
