package models

import (
	"time"

	"github.com/google/uuid"
)

type MemberStatus string

const (
	MemberStatusJoined MemberStatus = "joined"
	MemberStatusLeft   MemberStatus = "left"
	MemberStatusKicked MemberStatus = "kicked"
)

type PartyMember struct {
	// ID is a string so the synthesized host entry ("host-<partyId>") fits.
	ID            string          `json:"id"`
	PartyID       uuid.UUID       `json:"party_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Status        MemberStatus    `json:"status"`
	JoinedAt      time.Time       `json:"joined_at"`
	LeftAt        *time.Time      `json:"left_at,omitempty"`
	PickupNotes   *string         `json:"pickup_notes,omitempty"`
	ContactShared bool            `json:"contact_shared"`
	IsHost        bool            `json:"is_host"`
	Profile       *ProfileSummary `json:"profile,omitempty"`
}

func HostMemberID(partyID uuid.UUID) string {
	return "host-" + partyID.String()
}
