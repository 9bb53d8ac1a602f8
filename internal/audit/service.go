package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
// Append-only: there are no update or delete operations.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records call lifecycle transitions.
//
// Callers should treat audit logging as best-effort: a failed append is
// logged at the call site and never aborts the transition itself.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.CallID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogTransition records one call state transition.
func (s *Service) LogTransition(ctx context.Context, callID string, t EventType, actorEmail, message string) error {
	return s.Append(ctx, Event{
		CallID:     callID,
		Type:       t,
		ActorEmail: actorEmail,
		Message:    message,
	})
}
