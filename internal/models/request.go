package models

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusDeclined RequestStatus = "declined"
)

type PartyRequest struct {
	ID          uuid.UUID     `json:"id"`
	PartyID     uuid.UUID     `json:"party_id"`
	UserID      uuid.UUID     `json:"user_id"`
	Status      RequestStatus `json:"status"`
	Message     *string       `json:"message,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	RespondedAt *time.Time    `json:"responded_at,omitempty"`
}

// PendingRequest is a request enriched for the host's review list.
type PendingRequest struct {
	PartyRequest
	Requester *ProfileSummary `json:"requester,omitempty"`
	Party     *PartySummary   `json:"party,omitempty"`
}
