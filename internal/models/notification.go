package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationApplicationReceived = "application.received"
	NotificationStatusChanged       = "application.status_changed"
	NotificationGuestConverted      = "guest.converted"
)

// Notification is a best-effort message to an applicant.
type Notification struct {
	ID        uuid.UUID         `json:"id"`
	Recipient string            `json:"recipient"`
	Kind      string            `json:"kind"`
	Context   map[string]string `json:"context"`
	Attempts  int               `json:"attempts"`
	LastError string            `json:"last_error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
