package server

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http")+"/ws/analyze", nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	return conn
}

func TestAnalyzeWS(t *testing.T) {
	tr := &recordingTranscriber{text: "안녕 하세요"}
	srv := newTestServer(tr, nil)
	defer srv.Close()

	conn := dialWS(t, srv.URL)
	defer conn.Close()

	if err := conn.WriteJSON(ClientMessage{Event: EventStart, Modules: []string{"intensity", "speechrate"}, Language: "ko-KR"}); err != nil {
		t.Fatalf("Failed to send start: %v", err)
	}

	var started ServerMessage
	if err := conn.ReadJSON(&started); err != nil || started.Event != EventStarted || started.SessionID == "" {
		t.Fatalf("Expected started event, got %+v (%v)", started, err)
	}

	wav := toneWAV(t)
	for chunk := 0; chunk < len(wav); chunk += 4096 {
		end := chunk + 4096
		if end > len(wav) {
			end = len(wav)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, wav[chunk:end]); err != nil {
			t.Fatalf("Failed to send audio: %v", err)
		}
	}
	if err := conn.WriteJSON(ClientMessage{Event: EventStop}); err != nil {
		t.Fatalf("Failed to send stop: %v", err)
	}

	results := map[string]map[string]any{}
	for {
		var msg struct {
			Event  string         `json:"event"`
			Module string         `json:"module"`
			Report map[string]any `json:"report"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("Read failed before done: %v", err)
		}
		if msg.Event == EventDone {
			break
		}
		if msg.Event != EventResult {
			t.Fatalf("Unexpected event %q", msg.Event)
		}
		results[msg.Module] = msg.Report
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %v", results)
	}
	for module, report := range results {
		if report["status"] != "SUCCESS" {
			t.Errorf("Expected %s to succeed, got %v", module, report)
		}
	}
}

func TestAnalyzeWS_ProtocolErrors(t *testing.T) {
	srv := newTestServer(&recordingTranscriber{text: "a"}, nil)
	defer srv.Close()

	tests := []struct {
		name string
		send func(conn *websocket.Conn) error
	}{
		{"audio before start", func(conn *websocket.Conn) error {
			return conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3})
		}},
		{"unknown module", func(conn *websocket.Conn) error {
			return conn.WriteJSON(ClientMessage{Event: EventStart, Modules: []string{"loudness"}})
		}},
		{"no module", func(conn *websocket.Conn) error {
			return conn.WriteJSON(ClientMessage{Event: EventStart})
		}},
		{"stop before start", func(conn *websocket.Conn) error {
			return conn.WriteJSON(ClientMessage{Event: EventStop})
		}},
		{"invalid json", func(conn *websocket.Conn) error {
			return conn.WriteMessage(websocket.TextMessage, []byte("{"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dialWS(t, srv.URL)
			defer conn.Close()

			if err := tt.send(conn); err != nil {
				t.Fatalf("Send failed: %v", err)
			}
			var msg ServerMessage
			if err := conn.ReadJSON(&msg); err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if msg.Event != EventError || msg.Message == "" {
				t.Errorf("Expected error event, got %+v", msg)
			}
		})
	}
}

// stallingTranscriber blocks until its context ends.
type stallingTranscriber struct {
	once      sync.Once
	entered   chan struct{}
	cancelled chan struct{}
}

func (t *stallingTranscriber) Transcribe(ctx context.Context, wav []byte, language string) (string, error) {
	t.once.Do(func() { close(t.entered) })
	<-ctx.Done()
	close(t.cancelled)
	return "", ctx.Err()
}

func (t *stallingTranscriber) Name() string { return "stalling" }

func TestAnalyzeWS_DisconnectCancelsAnalysis(t *testing.T) {
	tr := &stallingTranscriber{entered: make(chan struct{}), cancelled: make(chan struct{})}
	srv := newTestServer(tr, nil)
	defer srv.Close()

	conn := dialWS(t, srv.URL)
	defer conn.Close()

	if err := conn.WriteJSON(ClientMessage{Event: EventStart, Modules: []string{"speechrate"}}); err != nil {
		t.Fatalf("Failed to send start: %v", err)
	}
	var started ServerMessage
	if err := conn.ReadJSON(&started); err != nil || started.Event != EventStarted {
		t.Fatalf("Expected started event, got %+v (%v)", started, err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, toneWAV(t)); err != nil {
		t.Fatalf("Failed to send audio: %v", err)
	}
	if err := conn.WriteJSON(ClientMessage{Event: EventStop}); err != nil {
		t.Fatalf("Failed to send stop: %v", err)
	}

	select {
	case <-tr.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("Transcription never started")
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
	conn.Close()

	select {
	case <-tr.cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected analysis to be cancelled after the client left")
	}
}
