package models

import "time"

type NotificationType string

const (
	NotificationJoinRequest NotificationType = "join_request"
	NotificationSuccess     NotificationType = "success"
	NotificationError       NotificationType = "error"
	NotificationInfo        NotificationType = "info"
)

// Notification lives only in memory; ids are usually derived from the
// event that produced them so repeated events collapse into one entry.
type Notification struct {
	ID        string            `json:"id"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Read      bool              `json:"read"`
	Type      NotificationType  `json:"type,omitempty"`
	Href      string            `json:"href,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
