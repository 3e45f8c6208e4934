package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sedna-dashboard/internal/logging"
	"github.com/sedna-dashboard/internal/types"
)

const (
	streamBuffer = 16
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// FeedMessage is one frame of the whale stream. The first frame is a
// "snapshot" of the current history, every later one a single "whale" entry.
type FeedMessage struct {
	Type    string                   `json:"type"`
	Entries []types.WhaleTransaction `json:"entries,omitempty"`
	Entry   *types.WhaleTransaction  `json:"entry,omitempty"`
}

// handleGetWhales handles GET /api/whales
func (s *Server) handleGetWhales(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": s.deps.Whales.Recent(),
	})
}

// handleWhaleStream handles GET /api/whales/stream as a websocket that pushes
// each new feed entry as it is generated
func (s *Server) handleWhaleStream(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Subscribe before reading the history so no entry falls between the two.
	entries, cancel := s.deps.Whales.Subscribe(streamBuffer)
	defer cancel()

	if err := writeFrame(conn, FeedMessage{Type: "snapshot", Entries: s.deps.Whales.Recent()}); err != nil {
		return
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	logger.Debug("Whale stream opened")
	defer logger.Debug("Whale stream closed")

	for {
		select {
		case tx, ok := <-entries:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed stopped"),
					time.Now().Add(writeWait))
				return
			}
			if err := writeFrame(conn, FeedMessage{Type: "whale", Entry: &tx}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, msg FeedMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
