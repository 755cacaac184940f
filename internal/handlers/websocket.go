package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/thereayou/cipherchat/internal/middleware"
	ws "github.com/thereayou/cipherchat/internal/websocket"
)

// WebSocketHandler upgrades push path connections.
type WebSocketHandler struct {
	hub            *ws.Hub
	messageHandler *MessageHandler
	upgrader       websocket.Upgrader
	log            *zap.Logger
}

func NewWebSocketHandler(hub *ws.Hub, messageHandler *MessageHandler, log *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		messageHandler: messageHandler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log.Named("ws"),
	}
}

// HandleWebSocket upgrades the request. Room access is checked per join, so
// the upgrade itself needs no credential.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, c.ClientIP(), middleware.CredentialFrom(c))
	if err := h.hub.Register(client); err != nil {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(h.messageHandler)
}
