// Package ws provides the WebSocket streaming channel for chat turns.
package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Myykall/techhelper-ai/internal/chat"
	"github.com/Myykall/techhelper-ai/internal/store"
	"github.com/Myykall/techhelper-ai/internal/usage"
)

const writeTimeout = 10 * time.Second

// Server handles WebSocket connections. Each connection is bound to one
// session and processes its messages sequentially, so a connection never has
// two turns in flight.
type Server struct {
	orchestrator *chat.Orchestrator
	store        store.Store
	upgrader     websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(orch *chat.Orchestrator, st store.Store) *Server {
	return &Server{
		orchestrator: orch,
		store:        st,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// CORS policy is the proxy's concern
				return true
			},
		},
	}
}

// RegisterRoutes registers the WebSocket route with the echo server.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/:session_id", s.HandleWebSocket)
}

// clientFrame is what the client sends: one message per turn.
type clientFrame struct {
	Message string `json:"message"`
}

// chunkFrame carries one streamed fragment, the terminal done marker, or an
// error.
type chunkFrame struct {
	Chunk string `json:"chunk,omitempty"`
	Error string `json:"error,omitempty"`
	Done  bool   `json:"done"`
}

// statsFrame is the usage summary emitted after each completed turn.
type statsFrame struct {
	Type            string  `json:"type"`
	SessionCost     float64 `json:"session_cost"`
	ThisMessageCost float64 `json:"this_message_cost"`
	TotalMessages   int     `json:"total_messages"`
}

// HandleWebSocket upgrades the connection and runs the per-session chat loop.
func (s *Server) HandleWebSocket(c echo.Context) error {
	sessionID := c.Param("session_id")

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return err
	}
	defer conn.Close()

	if _, ok := s.store.Get(sessionID); !ok {
		writeJSON(conn, chunkFrame{Error: "Session not found", Done: true})
		return nil
	}

	ctx := c.Request().Context()

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error on session %s: %v", sessionID, err)
			}
			return nil
		}
		if frame.Message == "" {
			continue
		}

		result, err := s.orchestrator.ProcessTurnStream(ctx, sessionID, frame.Message, func(chunk string) error {
			return writeJSON(conn, chunkFrame{Chunk: chunk})
		})
		if err != nil {
			// Adapter failure or client disconnect: the turn was
			// abandoned with nothing accounted. Report and keep the
			// connection; a dead peer fails the next read.
			writeJSON(conn, chunkFrame{Error: err.Error(), Done: true})
			continue
		}

		if err := writeJSON(conn, chunkFrame{Done: true}); err != nil {
			return nil
		}
		if err := writeJSON(conn, statsFrame{
			Type:            "stats",
			SessionCost:     usage.Round(result.SessionCost, 6),
			ThisMessageCost: usage.Round(result.Cost, 6),
			TotalMessages:   result.TotalMessages,
		}); err != nil {
			return nil
		}
	}
}

func writeJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}
