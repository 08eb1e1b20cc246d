package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/rideparty/internal/logging"
	"github.com/HammerMeetNail/rideparty/internal/models"
	"github.com/HammerMeetNail/rideparty/internal/services"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// ActionResponse is the result shape of membership actions.
type ActionResponse struct {
	Success bool                 `json:"success"`
	Error   string               `json:"error,omitempty"`
	Member  *models.PartyMember  `json:"member,omitempty"`
	Request *models.PartyRequest `json:"request,omitempty"`
}

type serviceError struct {
	err     error
	status  int
	message string
}

// serviceErrors maps service sentinels to client responses. Order matters
// only where one error wraps another.
var serviceErrors = []serviceError{
	{services.ErrNotAuthenticated, http.StatusUnauthorized, "Not authenticated"},
	{services.ErrCannotJoin, http.StatusConflict, "Cannot join this party (full, expired, or already a member)"},
	{services.ErrEligibilityCheck, http.StatusInternalServerError, "Eligibility check failed"},
	{services.ErrApprovalRequired, http.StatusForbidden, "This party is friends only, send a join request instead"},
	{services.ErrAlreadyMember, http.StatusConflict, "Already a member of this party"},
	{services.ErrJoinFailed, http.StatusInternalServerError, "Failed to join party"},
	{services.ErrMemberNotFound, http.StatusNotFound, "Member not found"},
	{services.ErrRequestExists, http.StatusConflict, "Join request already pending"},
	{services.ErrRequestNotFound, http.StatusNotFound, "Join request not found"},
	{services.ErrRequestMismatch, http.StatusBadRequest, "Join request does not belong to that user"},
	{services.ErrRequestNotPending, http.StatusConflict, "Join request is no longer pending"},
	{services.ErrPartyNotFound, http.StatusNotFound, "Party not found"},
	{services.ErrPartyInactive, http.StatusConflict, "Party is no longer active"},
	{services.ErrNotPartyHost, http.StatusForbidden, "Only the party host can do that"},
	{services.ErrActivePartyExists, http.StatusConflict, "You already host an active party"},
	{services.ErrCannotFriendSelf, http.StatusBadRequest, "Cannot send friend request to yourself"},
	{services.ErrFriendshipExists, http.StatusConflict, "Friend request already exists"},
	{services.ErrFriendshipNotFound, http.StatusNotFound, "Friend request not found"},
	{services.ErrNotFriendshipRecipient, http.StatusForbidden, "Only the recipient can accept this request"},
	{services.ErrFriendshipNotPending, http.StatusBadRequest, "Request is not pending"},
}

// writeServiceError answers with the mapped status for known service errors
// and a logged 500 for everything else.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	for _, se := range serviceErrors {
		if errors.Is(err, se.err) {
			writeError(w, se.status, se.message)
			return
		}
	}
	logging.Error("Request failed", logging.Fields{"op": op, "error": err})
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// writeActionError is writeServiceError with the ActionResponse body.
func writeActionError(w http.ResponseWriter, op string, err error) {
	for _, se := range serviceErrors {
		if errors.Is(err, se.err) {
			writeJSON(w, se.status, ActionResponse{Error: se.message})
			return
		}
	}
	logging.Error("Request failed", logging.Fields{"op": op, "error": err})
	writeJSON(w, http.StatusInternalServerError, ActionResponse{Error: "Internal server error"})
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue(name))
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
