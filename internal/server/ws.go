package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lexiqai/echo-speech/internal/analysis"
	"github.com/lexiqai/echo-speech/internal/observability"
)

const (
	wsWriteWait = 10 * time.Second
	wsIdleWait  = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// ClientMessage is a text frame sent by the client. Audio arrives in binary
// frames between "start" and "stop".
type ClientMessage struct {
	Event      string   `json:"event"`
	Modules    []string `json:"modules,omitempty"`
	RefText    string   `json:"ref_text,omitempty"`
	Language   string   `json:"language,omitempty"`
	MaxWorkers int      `json:"max_workers,omitempty"`
}

// ServerMessage is a text frame sent to the client.
type ServerMessage struct {
	Event     string          `json:"event"`
	SessionID string          `json:"session_id,omitempty"`
	Module    analysis.Kind   `json:"module,omitempty"`
	Report    analysis.Report `json:"report,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// Client and server event names.
const (
	EventStart   = "start"
	EventStop    = "stop"
	EventStarted = "started"
	EventResult  = "result"
	EventDone    = "done"
	EventError   = "error"
)

// uploadSession collects one recording over a WebSocket connection.
type uploadSession struct {
	conn      *websocket.Conn
	server    *Server
	sessionID string

	started bool
	kinds   []analysis.Kind
	start   ClientMessage
	audio   bytes.Buffer
}

// handleAnalyzeWS implements GET /ws/analyze. The client sends a start event
// naming the modules, the WAV file as binary frames and a stop event; the
// server answers with one result event per module as it finishes and a final
// done event.
func (s *Server) handleAnalyzeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
		return
	}
	defer conn.Close()

	sessionID := r.Header.Get(CorrelationHeader)
	if sessionID == "" {
		sessionID = observability.NewCorrelationID()
	}
	conn.SetReadLimit(s.cfg.MaxUploadBytes() + 64<<10)

	u := &uploadSession{conn: conn, server: s, sessionID: sessionID}
	u.run(r)
}

func (u *uploadSession) run(r *http.Request) {
	logger := u.server.logger.With().Str("correlation_id", u.sessionID).Logger()
	maxBytes := int(u.server.cfg.MaxUploadBytes())

	for {
		_ = u.conn.SetReadDeadline(time.Now().Add(wsIdleWait))
		msgType, message, err := u.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		if msgType == websocket.BinaryMessage {
			if !u.started {
				u.fail("audio received before start")
				return
			}
			if u.audio.Len()+len(message) > maxBytes {
				u.fail("upload too large")
				return
			}
			u.audio.Write(message)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Warn().Err(err).Msg("Failed to parse client message")
			u.fail("invalid message")
			return
		}

		switch msg.Event {
		case EventStart:
			if u.started {
				u.fail("session already started")
				return
			}
			kinds, err := parseModules(msg.Modules)
			if err != nil {
				u.fail(err.Error())
				return
			}
			u.started, u.kinds, u.start = true, kinds, msg
			logger.Info().Interface("modules", kinds).Msg("WebSocket analysis started")
			if err := u.send(ServerMessage{Event: EventStarted, SessionID: u.sessionID}); err != nil {
				return
			}

		case EventStop:
			if !u.started {
				u.fail("stop received before start")
				return
			}
			logger.Info().Int("bytes", u.audio.Len()).Msg("Upload complete, analyzing")

			ctx, cancel := u.watchDisconnect(r.Context())
			defer cancel()

			opts := u.server.options(u.start.Language, u.start.RefText)
			u.server.analyze(ctx, logger, u.audio.Bytes(), u.kinds, u.start.MaxWorkers, opts, func(res analysis.Result) {
				if ctx.Err() != nil {
					return
				}
				if err := u.send(ServerMessage{Event: EventResult, Module: res.Kind, Report: res.Report}); err != nil {
					logger.Warn().Err(err).Str("kind", res.Kind.String()).Msg("Failed to send result")
				}
			})
			if ctx.Err() != nil {
				logger.Info().Msg("Client disconnected during analysis")
				return
			}
			_ = u.send(ServerMessage{Event: EventDone, SessionID: u.sessionID})
			_ = u.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
			return

		default:
			logger.Debug().Str("event", msg.Event).Msg("Unknown client event")
		}
	}
}

// watchDisconnect keeps reading after stop so a close frame or a dropped
// connection cancels the returned context. The client sends nothing further,
// so any frame it does send is discarded.
func (u *uploadSession) watchDisconnect(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	_ = u.conn.SetReadDeadline(time.Time{})
	go func() {
		defer cancel()
		for {
			if _, _, err := u.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return ctx, cancel
}

func (u *uploadSession) send(msg ServerMessage) error {
	_ = u.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return u.conn.WriteJSON(msg)
}

func (u *uploadSession) fail(message string) {
	_ = u.send(ServerMessage{Event: EventError, SessionID: u.sessionID, Message: message})
}

// parseModules validates module names. At least one is required.
func parseModules(names []string) ([]analysis.Kind, error) {
	var kinds []analysis.Kind
	for _, name := range names {
		kind, err := analysis.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	if len(kinds) == 0 {
		return nil, errNoModule
	}
	return kinds, nil
}
