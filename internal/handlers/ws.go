package handlers

import (
	"net/http"

	"github.com/google/uuid"
)

// WebsocketServer upgrades a request into a realtime connection for a user.
type WebsocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID)
}

type RealtimeHandler struct {
	hub WebsocketServer
}

func NewRealtimeHandler(hub WebsocketServer) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

func (h *RealtimeHandler) Connect(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	h.hub.ServeWS(w, r, user.ID)
}
