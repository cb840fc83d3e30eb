package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/lexiqai/echo-speech/internal/resilience"
)

// Segment is one timed span of a self-hosted ASR response.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// ASRResponse is the JSON body returned by POST /transcribe.
type ASRResponse struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// transcript prefers the full text and falls back to joined segments.
func (r *ASRResponse) transcript() string {
	if strings.TrimSpace(r.Text) != "" {
		return r.Text
	}
	parts := make([]string, 0, len(r.Segments))
	for _, seg := range r.Segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// HTTPTranscriber posts audio to a self-hosted ASR service.
type HTTPTranscriber struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTranscriber creates a client for the service at baseURL.
func NewHTTPTranscriber(baseURL string, timeout time.Duration) *HTTPTranscriber {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPTranscriber{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Name implements Transcriber.
func (h *HTTPTranscriber) Name() string { return "http" }

// Transcribe implements Transcriber.
func (h *HTTPTranscriber) Transcribe(ctx context.Context, wav []byte, language string) (string, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err = fw.Write(wav); err != nil {
		return "", err
	}
	if lang := baseLanguage(language); lang != "" {
		if err = w.WriteField("language", lang); err != nil {
			return "", err
		}
	}
	if err = w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/transcribe", &b)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("asr: %w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return "", ErrUnrecognizable
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", resilience.NewRetryableError(fmt.Errorf("asr %s: %w: %s", resp.Status, ErrUnavailable, body))
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("asr %s: %w: %s", resp.Status, ErrUnavailable, body)
	}

	var out ASRResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("asr decode: %w: %v", ErrUnavailable, err)
	}
	return checkTranscript(out.transcript())
}
