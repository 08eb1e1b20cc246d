package models

import (
	"time"

	"github.com/google/uuid"
)

type Party struct {
	ID                uuid.UUID `json:"id"`
	HostID            uuid.UUID `json:"host_id"`
	PartySize         int       `json:"party_size"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	MeetupPoint       string    `json:"meetup_point"`
	Destination       string    `json:"destination"`
	IsFriendsOnly     bool      `json:"is_friends_only"`
	IsGenderOnly      bool      `json:"is_gender_only"`
	DisplayUniversity bool      `json:"display_university"`
	HostComments      *string   `json:"host_comments,omitempty"`
	RideOptions       []string  `json:"ride_options"`
	IsActive          bool      `json:"is_active"`

	// Attached at query time for listings.
	HostName       string  `json:"host_name,omitempty"`
	HostUniversity *string `json:"host_university,omitempty"`
	MemberCount    int     `json:"member_count"`
}

// Remaining is the time left before the party ends, never negative.
func (p *Party) Remaining(now time.Time) time.Duration {
	d := p.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func (p *Party) Ended(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}

func (p *Party) Summary() PartySummary {
	return PartySummary{
		ID:          p.ID,
		HostID:      p.HostID,
		Destination: p.Destination,
		MeetupPoint: p.MeetupPoint,
		ExpiresAt:   p.ExpiresAt,
	}
}

// PartySummary is the slice of a party shown next to join requests.
type PartySummary struct {
	ID          uuid.UUID `json:"id"`
	HostID      uuid.UUID `json:"host_id"`
	Destination string    `json:"destination"`
	MeetupPoint string    `json:"meetup_point"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type CreatePartyParams struct {
	PartySize         int      `json:"party_size" validate:"min=2,max=8"`
	DurationMinutes   int      `json:"duration_minutes" validate:"min=5,max=180"`
	MeetupPoint       string   `json:"meetup_point" validate:"required,max=200"`
	Destination       string   `json:"destination" validate:"required,max=200"`
	IsFriendsOnly     bool     `json:"is_friends_only"`
	IsGenderOnly      bool     `json:"is_gender_only"`
	DisplayUniversity bool     `json:"display_university"`
	HostComments      *string  `json:"host_comments" validate:"omitempty,max=500"`
	RideOptions       []string `json:"ride_options" validate:"max=5,dive,oneof=uber lyft taxi carpool transit"`
}
