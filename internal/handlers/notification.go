package handlers

import (
	"net/http"

	"github.com/HammerMeetNail/rideparty/internal/models"
	"github.com/HammerMeetNail/rideparty/internal/notify"
)

// NotificationHandler exposes a user's in-memory notification store.
type NotificationHandler struct {
	registry *notify.Registry
}

func NewNotificationHandler(registry *notify.Registry) *NotificationHandler {
	return &NotificationHandler{registry: registry}
}

type NotificationListResponse struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type NotificationUpdateResponse struct {
	Success     bool `json:"success"`
	Updated     int  `json:"updated,omitempty"`
	UnreadCount int  `json:"unread_count"`
}

func (h *NotificationHandler) store(r *http.Request) *notify.Store {
	user := GetUserFromContext(r.Context())
	if user == nil {
		return nil
	}
	return h.registry.For(user.ID)
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	if store == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	writeJSON(w, http.StatusOK, NotificationListResponse{
		Notifications: store.List(),
		UnreadCount:   store.UnreadCount(),
	})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	if store == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	writeJSON(w, http.StatusOK, UnreadCountResponse{Count: store.UnreadCount()})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	if store == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if !store.MarkRead(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "Notification not found")
		return
	}

	writeJSON(w, http.StatusOK, NotificationUpdateResponse{Success: true, Updated: 1, UnreadCount: store.UnreadCount()})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	if store == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	updated := store.MarkAllRead()
	writeJSON(w, http.StatusOK, NotificationUpdateResponse{Success: true, Updated: updated, UnreadCount: store.UnreadCount()})
}

func (h *NotificationHandler) Remove(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	if store == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if !store.Remove(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "Notification not found")
		return
	}

	writeJSON(w, http.StatusOK, NotificationUpdateResponse{Success: true, UnreadCount: store.UnreadCount()})
}
