package handlers

import (
	"net/http"

	"livechat/internal/config"
	ws "livechat/internal/websocket"

	"github.com/gorilla/mux"
)

// NewRouter mounts the websocket endpoint and the operational endpoints.
// metrics may be nil to leave /metrics unmounted.
func NewRouter(hub *ws.Hub, cfg config.WebSocketConfig, metrics http.Handler) *mux.Router {
	wsHandlers := NewWebSocketHandlers(hub, cfg)
	healthHandlers := NewHealthHandlers(hub)

	r := mux.NewRouter()
	r.HandleFunc("/ws", wsHandlers.HandleWebSocket).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthHandlers.Healthz).Methods(http.MethodGet)
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	return r
}
