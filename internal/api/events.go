package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/diploy/competency-gateway/internal/statestore"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const eventWriteTimeout = 10 * time.Second

// EventMessage is one state-change notification pushed to a connected
// view. The session ID is implied by the connection and never sent.
type EventMessage struct {
	Type    string `json:"type"`
	Key     string `json:"key,omitempty"`
	Value   string `json:"value,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

// handleEventsWS streams the session's state-store change events over a
// websocket so concurrently open views converge on the same flow state.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("events websocket connected", "session_id", maskID(sessionID))

	events, cancel := s.store.Watch()
	defer cancel()

	if err := s.sendEvent(conn, EventMessage{Type: "connected"}); err != nil {
		return
	}

	// Drain the client side so pings and close frames are processed. The
	// stream is one-way; anything the client sends is discarded.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			slog.Info("events websocket disconnected", "session_id", maskID(sessionID))
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.SessionID != sessionID {
				continue
			}
			if err := s.sendEvent(conn, eventMessage(ev)); err != nil {
				return
			}
		}
	}
}

func eventMessage(ev statestore.Event) EventMessage {
	msg := EventMessage{
		Type:    "state",
		Key:     ev.Key,
		Value:   ev.Value,
		Deleted: ev.Deleted,
	}
	if ev.Key == "" {
		msg.Type = "cleared"
	}
	return msg
}

func (s *Server) sendEvent(conn *websocket.Conn, msg EventMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal event message", "error", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send event message", "error", err)
		return err
	}
	return nil
}
