package handlers

import (
	"net/http"

	"livechat/internal/config"
	ws "livechat/internal/websocket"
	"livechat/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	hub      *ws.Hub
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
}

func NewWebSocketHandlers(hub *ws.Hub, cfg config.WebSocketConfig) *WebSocketHandlers {
	return &WebSocketHandlers{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return cfg.AllowsOrigin(r.Header.Get("Origin"))
			},
		},
	}
}

func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Upgrade connection to WebSocket
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, uuid.NewString(), h.cfg)

	// Registering first queues init_messages ahead of anything else
	if !h.hub.Connect(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
