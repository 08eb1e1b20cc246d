package models

import (
	"time"

	"github.com/google/uuid"
)

type Profile struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Name           string    `json:"name"`
	Nickname       *string   `json:"nickname,omitempty"`
	AvatarURL      *string   `json:"avatar_url,omitempty"`
	Gender         *string   `json:"gender,omitempty"`
	University     *string   `json:"university,omitempty"`
	ShowUniversity bool      `json:"show_university"`
	ShowGender     bool      `json:"show_gender"`
	Points         int       `json:"points"`
	Phone          *string   `json:"phone,omitempty"`
	ShowPhone      bool      `json:"show_phone"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProfileSummary is the public slice of a profile attached to members,
// requests and dashboard rows. Hidden fields are cleared by Summary.
type ProfileSummary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Nickname   *string   `json:"nickname,omitempty"`
	AvatarURL  *string   `json:"avatar_url,omitempty"`
	Gender     *string   `json:"gender,omitempty"`
	University *string   `json:"university,omitempty"`
	Points     int       `json:"points"`
	Phone      *string   `json:"phone,omitempty"`
}

func (p *Profile) Summary() ProfileSummary {
	s := ProfileSummary{
		ID:        p.ID,
		Name:      p.Name,
		Nickname:  p.Nickname,
		AvatarURL: p.AvatarURL,
		Points:    p.Points,
	}
	if p.ShowGender {
		s.Gender = p.Gender
	}
	if p.ShowUniversity {
		s.University = p.University
	}
	if p.ShowPhone {
		s.Phone = p.Phone
	}
	return s
}

// DisplayName prefers the nickname when one is set.
func (s ProfileSummary) DisplayName() string {
	if s.Nickname != nil && *s.Nickname != "" {
		return *s.Nickname
	}
	if s.Name != "" {
		return s.Name
	}
	return "Someone"
}

type CreateProfileParams struct {
	Email        string
	PasswordHash string
	Name         string
	Gender       *string
	University   *string
}
