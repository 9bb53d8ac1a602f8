package signaling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"helpdesk-live/internal/audit"

	"github.com/google/uuid"
)

var (
	ErrInvalidRequest = errors.New("signaling: invalid request")
	ErrNotFound       = errors.New("signaling: call not found")
)

// Repository is the coordination store behind the signaling surface.
//
// Transition must be atomic with respect to concurrent transition requests
// for the same call: exactly one writer observes changed=true per legal step,
// and requests against a terminal session are no-ops (changed=false, nil err).
type Repository interface {
	Create(ctx context.Context, s CallSession) error
	Get(ctx context.Context, callID string) (CallSession, error)
	Transition(ctx context.Context, callID string, to CallStatus, at time.Time) (CallSession, bool, error)
	ListForUser(ctx context.Context, email string) ([]CallSession, error)
}

// Archiver receives sessions that reached a terminal state. Implemented by
// the call-history module; archiving is best-effort and never blocks the
// transition itself.
type Archiver interface {
	ArchiveCall(ctx context.Context, s CallSession) error
}

// Service owns call-session lifecycle on the coordination side.
// All state changes flow through here so that auditing and validation
// cannot be bypassed by individual HTTP handlers.
type Service struct {
	repo     Repository
	audit    *audit.Service
	archiver Archiver
	log      *slog.Logger
	clock    func() time.Time
}

func NewService(repo Repository, auditSvc *audit.Service, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, audit: auditSvc, log: log, clock: time.Now}
}

// WithArchiver wires terminal-session archiving. Optional.
func (s *Service) WithArchiver(a Archiver) *Service {
	s.archiver = a
	return s
}

func (s *Service) CreateCall(ctx context.Context, req CreateCallRequest) (CallSession, error) {
	if s.repo == nil {
		return CallSession{}, errors.New("signaling: repository not configured")
	}
	caller := strings.TrimSpace(req.CallerEmail)
	receiver := strings.TrimSpace(req.ReceiverEmail)
	if caller == "" || receiver == "" {
		return CallSession{}, ErrInvalidRequest
	}
	if strings.EqualFold(caller, receiver) {
		return CallSession{}, fmt.Errorf("%w: caller and receiver must differ", ErrInvalidRequest)
	}

	now := s.clock().UTC()
	session := CallSession{
		CallID:        uuid.NewString(),
		CallerEmail:   caller,
		CallerName:    strings.TrimSpace(req.CallerName),
		ReceiverEmail: receiver,
		ReceiverName:  strings.TrimSpace(req.ReceiverName),
		Status:        CallStatusRinging,
		StartedAt:     now,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return CallSession{}, err
	}

	s.recordAudit(ctx, session.CallID, audit.EventTypeCallCreated, caller, "call created")
	s.log.Info("call created",
		"call_id", session.CallID,
		"caller", session.CallerEmail,
		"receiver", session.ReceiverEmail,
	)
	return session, nil
}

// Answer moves the session to answered. No-op if already terminal or answered.
func (s *Service) Answer(ctx context.Context, callID string) (CallSession, error) {
	return s.transition(ctx, callID, CallStatusAnswered, audit.EventTypeCallAnswered)
}

// Decline moves the session to declined; only reachable from ringing.
func (s *Service) Decline(ctx context.Context, callID string) (CallSession, error) {
	return s.transition(ctx, callID, CallStatusDeclined, audit.EventTypeCallDeclined)
}

// End moves the session to ended from any non-terminal state.
func (s *Service) End(ctx context.Context, callID string) (CallSession, error) {
	return s.transition(ctx, callID, CallStatusEnded, audit.EventTypeCallEnded)
}

func (s *Service) Get(ctx context.Context, callID string) (CallSession, error) {
	if s.repo == nil {
		return CallSession{}, errors.New("signaling: repository not configured")
	}
	if callID == "" {
		return CallSession{}, ErrInvalidRequest
	}
	return s.repo.Get(ctx, callID)
}

// ListForUser returns every live session where the user is caller or receiver.
func (s *Service) ListForUser(ctx context.Context, email string) ([]CallSession, error) {
	if s.repo == nil {
		return nil, errors.New("signaling: repository not configured")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrInvalidRequest
	}
	return s.repo.ListForUser(ctx, email)
}

func (s *Service) transition(ctx context.Context, callID string, to CallStatus, eventType audit.EventType) (CallSession, error) {
	if s.repo == nil {
		return CallSession{}, errors.New("signaling: repository not configured")
	}
	if callID == "" {
		return CallSession{}, ErrInvalidRequest
	}

	session, changed, err := s.repo.Transition(ctx, callID, to, s.clock().UTC())
	if err != nil {
		return CallSession{}, err
	}
	if !changed {
		// Terminal or repeated request; success semantics, nothing to audit.
		s.log.Debug("call transition no-op", "call_id", callID, "target", string(to), "status", string(session.Status))
		return session, nil
	}

	s.recordAudit(ctx, callID, eventType, "", "status "+string(to))
	s.log.Info("call transitioned", "call_id", callID, "status", string(session.Status))

	if session.Status.IsTerminal() && s.archiver != nil {
		if err := s.archiver.ArchiveCall(ctx, session); err != nil {
			s.log.Warn("call archive failed", "call_id", callID, "err", err)
		}
	}
	return session, nil
}

// recordAudit is best-effort: audit failures are logged, never propagated.
func (s *Service) recordAudit(ctx context.Context, callID string, t audit.EventType, actor, msg string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogTransition(ctx, callID, t, actor, msg); err != nil {
		s.log.Warn("audit append failed", "call_id", callID, "type", string(t), "err", err)
	}
}
