// Package websocket streams pipeline events to operational subscribers.
package websocket

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/fortuna/statcard/internal/events"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Event stream is operational, not user-facing.
	},
}

// Server pushes hub events to connected websocket clients.
type Server struct {
	server *http.Server
	hub    *events.Hub
	logger zerolog.Logger
}

// NewServer creates a websocket server over the given hub.
func NewServer(hub *events.Hub, logger zerolog.Logger) *Server {
	return &Server{hub: hub, logger: logger}
}

// Start listens on the given port.
func (s *Server) Start(port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/events", s.handleEvents)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: mux,
	}

	s.logger.Info().Str("port", port).Msg("websocket server listening")
	return s.server.ListenAndServe()
}

// handleEvents upgrades the connection and relays hub events until the
// client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	sub := s.hub.Subscribe()
	go s.writePump(conn, sub)
	go s.readPump(conn, sub)
}

func (s *Server) writePump(conn *websocket.Conn, sub chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-sub:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection so control frames are processed and
// unsubscribes when the client disconnects.
func (s *Server) readPump(conn *websocket.Conn, sub chan []byte) {
	defer func() {
		s.hub.Unsubscribe(sub)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
