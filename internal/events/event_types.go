package events

import (
	"time"

	"github.com/spec-kit/adoption-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAdoptionRequested EventType = "adoption_requested"
	EventAdoptionResolved  EventType = "adoption_resolved"
	EventAdoptionWithdrawn EventType = "adoption_withdrawn"
	EventPetDeleted        EventType = "pet_deleted"
)

// Actor identifies who triggered an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	AdoptionID string    `json:"adoption_id,omitempty"`
	PetID      string    `json:"pet_id"`
	Actor      Actor     `json:"actor"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    any       `json:"payload"`
}

// AdoptionRequestedPayload payload.
type AdoptionRequestedPayload struct {
	UserID string `json:"user_id"`
}

// AdoptionResolvedPayload carries what a decision email needs.
type AdoptionResolvedPayload struct {
	Status         domain.AdoptionStatus `json:"status"`
	RecipientID    string                `json:"recipient_id"`
	RecipientEmail string                `json:"recipient_email"`
	RecipientName  string                `json:"recipient_name"`
	PetName        string                `json:"pet_name"`
}

// AdoptionWithdrawnPayload payload.
type AdoptionWithdrawnPayload struct {
	PreviousStatus domain.AdoptionStatus `json:"previous_status"`
	PetReleased    bool                  `json:"pet_released"`
}

// PetDeletedPayload payload.
type PetDeletedPayload struct {
	AdoptionsRemoved int64  `json:"adoptions_removed"`
	ImageKey         string `json:"image_key,omitempty"`
}
