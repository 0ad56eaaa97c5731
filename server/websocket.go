package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/meysamhadeli/codai-scope/session"
)

const writeWait = 10 * time.Second

// stateMessage is pushed to websocket clients: the first one on connect, then one per event.
type stateMessage struct {
	Event session.EventKind `json:"event"`
	State session.State     `json:"state"`
}

// handleWebsocket pushes a fresh state snapshot on every session event until the client goes away.
func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := s.session.Subscribe()
	defer unsubscribe()

	// Clients only listen; reading detects when they disconnect.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.push(conn, ""); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := s.push(conn, event.Kind); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

func (s *Server) push(conn *websocket.Conn, kind session.EventKind) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(stateMessage{Event: kind, State: s.session.State()})
}
