// Package voicenotes turns finished recordings into shareable clips on a
// ticket. Audio is pushed to the blob endpoint; when that endpoint is down
// the bytes are retained on local disk and the note is marked local-only so
// the agent's work is never lost.
package voicenotes

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"helpdesk-live/internal/recorder"
)

var (
	ErrInvalidNote = errors.New("voicenotes: invalid note")
	ErrNotFound    = errors.New("voicenotes: note not found")
)

// Uploader pushes clip audio to the remote blob store and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, noteID string, wav []byte) (url string, err error)
}

// Repository persists note metadata.
type Repository interface {
	Insert(ctx context.Context, note VoiceNote) error
	ListForTicket(ctx context.Context, ticketID string) ([]VoiceNote, error)
	Get(ctx context.Context, id string) (VoiceNote, error)
}

type Service struct {
	uploader Uploader
	disk     *DiskStore
	repo     Repository
	log      *slog.Logger
	clock    func() time.Time
}

func NewService(uploader Uploader, disk *DiskStore, repo Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{uploader: uploader, disk: disk, repo: repo, log: log, clock: time.Now}
}

// Send attaches a finished recording to a ticket. An upload failure does not
// fail the send: the audio is kept on disk and the note is flagged
// local-only.
func (s *Service) Send(ctx context.Context, ticketID, authorEmail string, art *recorder.Artifact) (VoiceNote, error) {
	if ticketID == "" || authorEmail == "" || art == nil {
		return VoiceNote{}, ErrInvalidNote
	}

	note := VoiceNote{
		ID:              art.ID,
		TicketID:        ticketID,
		AuthorEmail:     authorEmail,
		DurationSeconds: art.DurationSeconds,
		SizeBytes:       len(art.WAV),
		CreatedAt:       s.clock().UTC(),
	}

	url, err := s.upload(ctx, note.ID, art.WAV)
	if err != nil {
		s.log.Warn("voice note upload failed, retaining locally", "note_id", note.ID, "err", err)
		path, diskErr := s.disk.Put(note.ID, art.WAV)
		if diskErr != nil {
			return VoiceNote{}, diskErr
		}
		note.URL = path
		note.LocalOnly = true
	} else {
		note.URL = url
	}

	if err := s.repo.Insert(ctx, note); err != nil {
		return VoiceNote{}, err
	}
	s.log.Info("voice note sent", "note_id", note.ID, "ticket_id", ticketID, "local_only", note.LocalOnly)
	return note, nil
}

func (s *Service) upload(ctx context.Context, id string, wav []byte) (string, error) {
	if s.uploader == nil {
		return "", errors.New("voicenotes: no uploader configured")
	}
	return s.uploader.Upload(ctx, id, wav)
}

// ListForTicket returns the ticket's notes, oldest first.
func (s *Service) ListForTicket(ctx context.Context, ticketID string) ([]VoiceNote, error) {
	if ticketID == "" {
		return nil, ErrInvalidNote
	}
	return s.repo.ListForTicket(ctx, ticketID)
}

// Get returns one note's metadata.
func (s *Service) Get(ctx context.Context, id string) (VoiceNote, error) {
	if id == "" {
		return VoiceNote{}, ErrInvalidNote
	}
	return s.repo.Get(ctx, id)
}
