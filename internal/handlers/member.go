package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/rideparty/internal/models"
	"github.com/HammerMeetNail/rideparty/internal/services"
)

type MemberHandler struct {
	memberService services.PartyMemberServiceInterface
}

func NewMemberHandler(memberService services.PartyMemberServiceInterface) *MemberHandler {
	return &MemberHandler{memberService: memberService}
}

type JoinRequest struct {
	PickupNotes *string `json:"pickup_notes"`
}

type RequestToJoinRequest struct {
	Message *string `json:"message"`
}

type ApproveRequest struct {
	PartyID string `json:"party_id"`
	UserID  string `json:"user_id"`
}

type MembersResponse struct {
	Members []models.PartyMember `json:"members"`
}

type MemberCountResponse struct {
	Count int `json:"count"`
}

type MembershipResponse struct {
	IsMember bool `json:"is_member"`
}

type PendingRequestsResponse struct {
	Requests []models.PendingRequest `json:"requests"`
}

// currentUserID is uuid.Nil for anonymous requests; the membership service
// turns that into ErrNotAuthenticated.
func currentUserID(r *http.Request) uuid.UUID {
	if user := GetUserFromContext(r.Context()); user != nil {
		return user.ID
	}
	return uuid.Nil
}

// decodeOptional accepts an empty body as the zero value.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := decodeJSON(r, v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (h *MemberHandler) Join(w http.ResponseWriter, r *http.Request) {
	partyID, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "Invalid party ID"})
		return
	}

	var req JoinRequest
	if err := decodeOptional(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "Invalid request body"})
		return
	}

	member, err := h.memberService.JoinParty(r.Context(), currentUserID(r), partyID, req.PickupNotes)
	if err != nil {
		writeActionError(w, "join party", err)
		return
	}

	writeJSON(w, http.StatusCreated, ActionResponse{Success: true, Member: member})
}

func (h *MemberHandler) Leave(w http.ResponseWriter, r *http.Request) {
	partyID, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "Invalid party ID"})
		return
	}

	if err := h.memberService.LeaveParty(r.Context(), currentUserID(r), partyID); err != nil {
		writeActionError(w, "leave party", err)
		return
	}

	writeJSON(w, http.StatusOK, ActionResponse{Success: true})
}

func (h *MemberHandler) Members(w http.ResponseWriter, r *http.Request) {
	if GetUserFromContext(r.Context()) == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	partyID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid party ID")
		return
	}

	members, err := h.memberService.GetPartyMembers(r.Context(), partyID)
	if err != nil {
		writeServiceError(w, "list members", err)
		return
	}
	if members == nil {
		members = []models.PartyMember{}
	}

	writeJSON(w, http.StatusOK, MembersResponse{Members: members})
}

func (h *MemberHandler) Count(w http.ResponseWriter, r *http.Request) {
	if GetUserFromContext(r.Context()) == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	partyID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid party ID")
		return
	}

	count, err := h.memberService.GetPartyMemberCount(r.Context(), partyID)
	if err != nil {
		writeServiceError(w, "count members", err)
		return
	}

	writeJSON(w, http.StatusOK, MemberCountResponse{Count: count})
}

func (h *MemberHandler) Membership(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	partyID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid party ID")
		return
	}

	isMember, err := h.memberService.IsUserMember(r.Context(), user.ID, partyID)
	if err != nil {
		writeServiceError(w, "check membership", err)
		return
	}

	writeJSON(w, http.StatusOK, MembershipResponse{IsMember: isMember})
}

func (h *MemberHandler) Kick(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, ActionResponse{Error: "Not authenticated"})
		return
	}

	partyID, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "Invalid party ID"})
		return
	}
	memberID, err := pathUUID(r, "userId")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "Invalid user ID"})
		return
	}

	if err := h.memberService.KickMember(r.Context(), user.ID, partyID, memberID); err != nil {
		writeActionError(w, "kick member", err)
		return
	}

	writeJSON(w, http.StatusOK, ActionResponse{Success: true})
}

func (h *MemberHandler) RequestToJoin(w http.ResponseWriter, r *http.Request) {
	partyID, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "Invalid party ID"})
		return
	}

	var req RequestToJoinRequest
	if err := decodeOptional(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "Invalid request body"})
		return
	}

	request, err := h.memberService.RequestToJoin(r.Context(), currentUserID(r), partyID, req.Message)
	if err != nil {
		writeActionError(w, "request to join", err)
		return
	}

	writeJSON(w, http.StatusCreated, ActionResponse{Success: true, Request: request})
}

func (h *MemberHandler) Pending(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requests, err := h.memberService.GetPendingRequestsForHost(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, "pending requests", err)
		return
	}
	if requests == nil {
		requests = []models.PendingRequest{}
	}

	writeJSON(w, http.StatusOK, PendingRequestsResponse{Requests: requests})
}

func (h *MemberHandler) Approve(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, ActionResponse{Error: "Not authenticated"})
		return
	}

	requestID, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "Invalid request ID"})
		return
	}

	var req ApproveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "Invalid request body"})
		return
	}
	partyID, err := uuid.Parse(req.PartyID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "Invalid party ID"})
		return
	}
	requesterID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "Invalid user ID"})
		return
	}

	member, err := h.memberService.ApproveRequest(r.Context(), user.ID, requestID, partyID, requesterID)
	if err != nil {
		writeActionError(w, "approve request", err)
		return
	}

	writeJSON(w, http.StatusOK, ActionResponse{Success: true, Member: member})
}

func (h *MemberHandler) Decline(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, ActionResponse{Error: "Not authenticated"})
		return
	}

	requestID, err := pathUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ActionResponse{Error: "Invalid request ID"})
		return
	}

	if err := h.memberService.DeclineRequest(r.Context(), user.ID, requestID); err != nil {
		writeActionError(w, "decline request", err)
		return
	}

	writeJSON(w, http.StatusOK, ActionResponse{Success: true})
}
