package handlers

import (
	"encoding/json"
	"net/http"

	ws "livechat/internal/websocket"
)

type HealthHandlers struct {
	hub *ws.Hub
}

func NewHealthHandlers(hub *ws.Hub) *HealthHandlers {
	return &HealthHandlers{hub: hub}
}

func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	stats := h.hub.Stats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Status string `json:"status"`
		ws.Stats
	}{"ok", stats})
}
