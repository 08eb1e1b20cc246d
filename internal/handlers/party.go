package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/HammerMeetNail/rideparty/internal/dashboard"
	"github.com/HammerMeetNail/rideparty/internal/models"
	"github.com/HammerMeetNail/rideparty/internal/services"
)

type PartyHandler struct {
	partyService services.PartyServiceInterface
	now          func() time.Time
}

func NewPartyHandler(partyService services.PartyServiceInterface) *PartyHandler {
	return &PartyHandler{
		partyService: partyService,
		now:          time.Now,
	}
}

// PartyView is a party as the dashboard shows it.
type PartyView struct {
	models.Party
	RemainingSeconds int64 `json:"remaining_seconds"`
	Ended            bool  `json:"ended"`
}

type PartyListResponse struct {
	Parties []PartyView       `json:"parties"`
	Filters dashboard.Filters `json:"filters"`
}

type PartyResponse struct {
	Party   *PartyView `json:"party,omitempty"`
	Message string     `json:"message,omitempty"`
}

type ExtendRequest struct {
	Minutes int `json:"minutes"`
}

func (h *PartyHandler) view(p models.Party, now time.Time) PartyView {
	return PartyView{
		Party:            p,
		RemainingSeconds: int64(p.Remaining(now) / time.Second),
		Ended:            p.Ended(now),
	}
}

// List serves the dashboard: active parties filtered by the query string
// and ordered for the viewer.
func (h *PartyHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	parties, err := h.partyService.ListActive(r.Context())
	if err != nil {
		writeServiceError(w, "list parties", err)
		return
	}

	var university string
	if user.University != nil {
		university = *user.University
	}

	now := h.now()
	filters := dashboard.ParseFilters(r.URL.Query())
	ordered := dashboard.OrderParties(dashboard.FilterParties(parties, filters, university, now), university)

	views := make([]PartyView, 0, len(ordered))
	for _, p := range ordered {
		views = append(views, h.view(p, now))
	}
	writeJSON(w, http.StatusOK, PartyListResponse{Parties: views, Filters: filters})
}

func (h *PartyHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var params models.CreatePartyParams
	if err := decodeJSON(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	party, err := h.partyService.Create(r.Context(), user.ID, params)
	if errors.Is(err, services.ErrInvalidParty) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeServiceError(w, "create party", err)
		return
	}

	v := h.view(*party, h.now())
	writeJSON(w, http.StatusCreated, PartyResponse{Party: &v})
}

func (h *PartyHandler) Get(w http.ResponseWriter, r *http.Request) {
	if GetUserFromContext(r.Context()) == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	partyID, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid party ID")
		return
	}

	party, err := h.partyService.Get(r.Context(), partyID)
	if err != nil {
		writeServiceError(w, "get party", err)
		return
	}

	v := h.view(*party, h.now())
	writeJSON(w, http.StatusOK, PartyResponse{Party: &v})
}

func (h *PartyHandler) Extend(w http.ResponseWriter, r *http.Request) {
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

	var req ExtendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	party, err := h.partyService.ExtendExpiry(r.Context(), user.ID, partyID, req.Minutes)
	if errors.Is(err, services.ErrInvalidExtension) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeServiceError(w, "extend party", err)
		return
	}

	v := h.view(*party, h.now())
	writeJSON(w, http.StatusOK, PartyResponse{Party: &v, Message: "Party extended"})
}

func (h *PartyHandler) Cancel(w http.ResponseWriter, r *http.Request) {
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

	if err := h.partyService.Cancel(r.Context(), user.ID, partyID); err != nil {
		writeServiceError(w, "cancel party", err)
		return
	}

	writeJSON(w, http.StatusOK, PartyResponse{Message: "Party cancelled"})
}
