package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chatsphere/internal/auth"
	"chatsphere/internal/controller"
	"chatsphere/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Local daemon, loopback only.
		return true
	},
}

// UpdateStreamHandler upgrades /api/events to a websocket and forwards every
// controller update to the connected presentation layer. Each connection gets
// its own subscription; a slow consumer loses updates rather than stalling
// the core.
type UpdateStreamHandler struct {
	ctrl     *controller.Controller
	verifier *auth.Verifier
	selfID   string
	log      *logger.Logger
}

func NewUpdateStreamHandler(ctrl *controller.Controller, verifier *auth.Verifier, selfID string, log *logger.Logger) *UpdateStreamHandler {
	return &UpdateStreamHandler{ctrl: ctrl, verifier: verifier, selfID: selfID, log: log}
}

func (h *UpdateStreamHandler) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = auth.ExtractBearer(c.GetHeader("Authorization"))
	}
	claims, err := h.verifier.Verify(token)
	if err != nil || claims.Subject != h.selfID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorf("update stream upgrade failed: %v", err)
		return
	}

	updates, cancel := h.ctrl.Subscribe()
	go h.writeLoop(conn, updates, cancel)
	go h.readLoop(conn)
}

func (h *UpdateStreamHandler) writeLoop(conn *websocket.Conn, updates <-chan controller.Update, cancel func()) {
	defer cancel()
	defer conn.Close()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(update)
			if err != nil {
				h.log.Errorf("update marshal failed: %v", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop only services control frames; the stream is one-way.
func (h *UpdateStreamHandler) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
