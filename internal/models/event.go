package models

import (
	"time"

	"github.com/google/uuid"
)

type ChangeEventType string

const (
	ChangeRequestInsert  ChangeEventType = "request_insert"
	ChangeRequestUpdate  ChangeEventType = "request_update"
	ChangePartyCancelled ChangeEventType = "party_cancelled"
	ChangePartyEnded     ChangeEventType = "party_ended"
	ChangeMemberKicked   ChangeEventType = "member_kicked"
)

const (
	TableRequests = "party_requests"
	TableParties  = "parties"
	TableMembers  = "party_members"
)

// ChangeEvent is the payload carried on the change feed.
type ChangeEvent struct {
	Type       ChangeEventType `json:"type"`
	Table      string          `json:"table"`
	PartyID    uuid.UUID       `json:"party_id"`
	Record     *PartyRequest   `json:"record,omitempty"`
	OldStatus  RequestStatus   `json:"old_status,omitempty"`
	UserIDs    []uuid.UUID     `json:"user_ids,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}
