// Package history archives terminal call sessions and serves per-agent call
// statistics. The live signaling store only keeps sessions until their TTL;
// this is the durable record.
package history

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"helpdesk-live/internal/signaling"
)

var (
	ErrInvalidRecord = errors.New("history: invalid record")
	ErrNotFound      = errors.New("history: record not found")
)

// Repository persists archived calls.
type Repository interface {
	Insert(ctx context.Context, rec CallRecord) error
	ListForUser(ctx context.Context, email string, limit int) ([]CallRecord, error)
}

type Service struct {
	repo  Repository
	log   *slog.Logger
	clock func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, log: log, clock: time.Now}
}

// ArchiveCall stores a terminal session. It satisfies the signaling
// service's archiver hook. Non-terminal sessions are rejected so a stray
// call cannot archive a live session.
func (s *Service) ArchiveCall(ctx context.Context, sess signaling.CallSession) error {
	if sess.CallID == "" {
		return ErrInvalidRecord
	}
	if !sess.Status.IsTerminal() {
		return ErrInvalidRecord
	}

	rec := CallRecord{
		ID:              uuid.NewString(),
		CallID:          sess.CallID,
		CallerEmail:     sess.CallerEmail,
		CallerName:      sess.CallerName,
		ReceiverEmail:   sess.ReceiverEmail,
		ReceiverName:    sess.ReceiverName,
		Status:          string(sess.Status),
		StartedAt:       sess.StartedAt,
		DurationSeconds: int64(sess.DurationSeconds),
		ArchivedAt:      s.clock().UTC(),
	}
	if sess.EndedAt != nil {
		rec.EndedAt = *sess.EndedAt
	}

	if err := s.repo.Insert(ctx, rec); err != nil {
		return err
	}
	s.log.Info("call archived", "call_id", rec.CallID, "status", rec.Status, "duration_s", rec.DurationSeconds)
	return nil
}

// ListForUser returns the newest records involving the user.
func (s *Service) ListForUser(ctx context.Context, email string, limit int) ([]CallRecord, error) {
	if email == "" {
		return nil, ErrInvalidRecord
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListForUser(ctx, email, limit)
}

// SummaryForUser aggregates up to the 500 newest records for the user.
func (s *Service) SummaryForUser(ctx context.Context, email string) (Summary, error) {
	if email == "" {
		return Summary{}, ErrInvalidRecord
	}
	recs, err := s.repo.ListForUser(ctx, email, 500)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{UserEmail: email, TotalCalls: len(recs)}
	for _, r := range recs {
		switch r.Status {
		case string(signaling.CallStatusEnded):
			sum.CompletedCalls++
		case string(signaling.CallStatusDeclined):
			sum.DeclinedCalls++
		}
		sum.TotalTalkSeconds += r.DurationSeconds
		if r.DurationSeconds > sum.LongestCallSecond {
			sum.LongestCallSecond = r.DurationSeconds
		}
	}
	return sum, nil
}
