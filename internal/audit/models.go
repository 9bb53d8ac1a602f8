package audit

import "time"

// Event is an immutable, append-only record of a call lifecycle transition.
//
// Invariants:
// - Events are never updated or deleted.
// - call_id is required; every event belongs to exactly one call session.
// - Actor capture is best-effort; never block a call transition on audit failure.

type Event struct {
	ID     string `json:"id" db:"id"`
	CallID string `json:"call_id" db:"call_id"`

	// Type indicates which lifecycle transition this records.
	Type EventType `json:"type" db:"type"`

	// ActorEmail is the endpoint that caused the transition, when known.
	ActorEmail string `json:"actor_email,omitempty" db:"actor_email"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCallCreated  EventType = "call_created"
	EventTypeCallAnswered EventType = "call_answered"
	EventTypeCallDeclined EventType = "call_declined"
	EventTypeCallEnded    EventType = "call_ended"
)
