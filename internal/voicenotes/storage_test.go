package voicenotes

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestDiskStoreRejectsEscapingNoteIDs(t *testing.T) {
	root := t.TempDir()
	store, err := NewDiskStore(filepath.Join(root, "notes"))
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	for _, id := range []string{"../escaped", "..", ".", "", "a/b", `a\b`, "/escaped"} {
		if _, err := store.Put(id, []byte("pcm")); !errors.Is(err, ErrBadNoteID) {
			t.Fatalf("Put(%q) err = %v, want ErrBadNoteID", id, err)
		}
		if _, err := store.Open(id); !errors.Is(err, ErrBadNoteID) {
			t.Fatalf("Open(%q) err = %v, want ErrBadNoteID", id, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "escaped.wav")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("clip written outside the storage dir")
	}
}

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	if _, err := store.Put("note-7", []byte("pcm")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := store.Open("note-7")
	if err != nil || string(data) != "pcm" {
		t.Fatalf("Open = %q, %v", data, err)
	}
}

func TestUploadBlobRejectsPathNoteID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	h := &Handlers{Disk: store}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio", "clip.wav")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write([]byte("pcm"))
	mw.WriteField("noteId", "../escaped")
	mw.Close()

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/voice-notes/blobs", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	ctx.Request = req

	h.UploadBlob(ctx)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
