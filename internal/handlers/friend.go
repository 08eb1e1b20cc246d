package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/rideparty/internal/models"
	"github.com/HammerMeetNail/rideparty/internal/services"
)

// FriendHandler exposes the friend graph used by friends-only parties.
type FriendHandler struct {
	friendService services.FriendServiceInterface
}

func NewFriendHandler(friendService services.FriendServiceInterface) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

type SendRequestRequest struct {
	FriendID string `json:"friend_id"`
}

type FriendListResponse struct {
	Friends    []models.FriendWithProfile `json:"friends,omitempty"`
	Friendship *models.Friendship         `json:"friendship,omitempty"`
	Message    string                     `json:"message,omitempty"`
}

func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	friends, err := h.friendService.ListFriends(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, "list friends", err)
		return
	}
	if friends == nil {
		friends = []models.FriendWithProfile{}
	}
	writeJSON(w, http.StatusOK, FriendListResponse{Friends: friends})
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req SendRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	friendID, err := uuid.Parse(req.FriendID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid friend ID")
		return
	}

	friendship, err := h.friendService.SendRequest(r.Context(), user.ID, friendID)
	if err != nil {
		writeServiceError(w, "send friend request", err)
		return
	}
	writeJSON(w, http.StatusCreated, FriendListResponse{Friendship: friendship, Message: "Friend request sent"})
}

func (h *FriendHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	friendshipID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid friendship ID")
		return
	}

	friendship, err := h.friendService.AcceptRequest(r.Context(), user.ID, friendshipID)
	if err != nil {
		writeServiceError(w, "accept friend request", err)
		return
	}
	writeJSON(w, http.StatusOK, FriendListResponse{Friendship: friendship, Message: "Friend request accepted"})
}
