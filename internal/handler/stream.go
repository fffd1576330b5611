package handler

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ridetrack/internal/logging"
	"ridetrack/internal/session"
)

const (
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamHandler streams session events over a WebSocket.
type StreamHandler struct {
	registry *session.Registry
	logger   *slog.Logger
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(registry *session.Registry, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{registry: registry, logger: logging.OrDefault(logger)}
}

// conn serializes writes; gorilla allows one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Stream handles GET /v1/tracking/stream
func (h *StreamHandler) Stream(c *gin.Context) {
	userID, role, err := identity(c)
	if err != nil {
		respondError(c, err)
		return
	}
	s, ok := h.registry.Get(userID, role)
	if !ok {
		respondError(c, errNoSession)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}
	defer ws.Close()

	logger := h.logger.With("user_id", userID, "role", string(role))
	out := &conn{ws: ws}

	events, cancel := s.Subscribe()
	defer cancel()

	snap := s.Snapshot()
	if err := out.writeJSON(session.Event{Type: session.EventSnapshot, At: snap.At, Snapshot: &snap}); err != nil {
		logger.Warn("stream write failed", "error", err)
		return
	}

	closed := make(chan struct{})
	go readPump(ws, closed)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	logger.Info("tracking stream opened")
	for {
		select {
		case <-closed:
			logger.Info("tracking stream closed by client")
			return

		case ev, ok := <-events:
			if !ok {
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
					time.Now().Add(writeWait))
				return
			}
			if err := out.writeJSON(ev); err != nil {
				logger.Warn("stream write failed", "error", err)
				return
			}

		case <-ticker.C:
			if err := out.ping(); err != nil {
				logger.Warn("stream ping failed", "error", err)
				return
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed.
// Clients send no commands on the stream.
func readPump(ws *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
