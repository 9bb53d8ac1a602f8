package voicenotes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrBadNoteID rejects note ids that are not a bare file name.
var ErrBadNoteID = errors.New("voicenotes: invalid note id")

// DiskStore keeps clip audio under one directory, one WAV per note id.
// Note ids are restricted to a single clean path element so a caller
// supplied id can never name a file outside Dir.
type DiskStore struct {
	Dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("voicenotes: create storage dir: %w", err)
	}
	return &DiskStore{Dir: dir}, nil
}

// Put writes the clip and returns its path.
func (d *DiskStore) Put(noteID string, wav []byte) (string, error) {
	if !validNoteID(noteID) {
		return "", ErrBadNoteID
	}
	path := filepath.Join(d.Dir, noteID+".wav")
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return "", fmt.Errorf("voicenotes: write clip: %w", err)
	}
	return path, nil
}

// Open returns the clip bytes.
func (d *DiskStore) Open(noteID string) ([]byte, error) {
	if !validNoteID(noteID) {
		return nil, ErrBadNoteID
	}
	return os.ReadFile(filepath.Join(d.Dir, noteID+".wav"))
}

// validNoteID accepts exactly one clean path element.
func validNoteID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	if strings.ContainsAny(id, `/\`) {
		return false
	}
	return id == filepath.Base(id)
}

// HTTPUploader posts clips to the dashboard API's voice-note endpoint as
// multipart form data.
type HTTPUploader struct {
	BaseURL     string
	Client      *http.Client
	BearerToken func() string
}

func (u *HTTPUploader) Upload(ctx context.Context, noteID string, wav []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio", noteID+".wav")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(wav); err != nil {
		return "", err
	}
	if err := mw.WriteField("noteId", noteID); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.BaseURL+"/voice-notes/blobs", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if u.BearerToken != nil {
		if tok := u.BearerToken(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("voicenotes: upload failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
		return "", fmt.Errorf("voicenotes: upload returned status %d", resp.StatusCode)
	}
	return u.BaseURL + "/voice-notes/" + noteID + "/audio", nil
}

// MemoryRepo is the in-process metadata store.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]VoiceNote
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]VoiceNote)}
}

func (r *MemoryRepo) Insert(_ context.Context, note VoiceNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[note.ID] = note
	return nil
}

func (r *MemoryRepo) ListForTicket(_ context.Context, ticketID string) ([]VoiceNote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]VoiceNote, 0)
	for _, n := range r.byID {
		if n.TicketID == ticketID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Get(_ context.Context, id string) (VoiceNote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.byID[id]
	if !ok {
		return VoiceNote{}, ErrNotFound
	}
	return n, nil
}
