package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification is the UI shape of a received domain event.
// Only the Read flag is mutated after creation.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}
