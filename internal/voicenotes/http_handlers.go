package voicenotes

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxClipBytes = 32 << 20

// Handlers exposes the server side of the voice-note flow: blob intake,
// audio serving, and per-ticket listing.
type Handlers struct {
	Service *Service
	Disk    *DiskStore
}

// UploadBlob handles POST /voice-notes/blobs (multipart: audio, noteId).
func (h *Handlers) UploadBlob(c *gin.Context) {
	file, _, err := c.Request.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "audio file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxClipBytes+1))
	if err != nil || len(data) == 0 || len(data) > maxClipBytes {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "audio payload invalid or too large"})
		return
	}

	noteID := c.PostForm("noteId")
	if noteID == "" {
		noteID = uuid.NewString()
	} else if !validNoteID(noteID) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid note id"})
		return
	}
	if _, err := h.Disk.Put(noteID, data); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not store audio"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "noteId": noteID, "url": "/voice-notes/" + noteID + "/audio"})
}

// ServeAudio handles GET /voice-notes/:id/audio.
func (h *Handlers) ServeAudio(c *gin.Context) {
	data, err := h.Disk.Open(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "clip not found"})
		return
	}
	c.Data(http.StatusOK, "audio/wav", data)
}

// ListForTicket handles GET /voice-notes/ticket/:ticket_id.
func (h *Handlers) ListForTicket(c *gin.Context) {
	notes, err := h.Service.ListForTicket(c.Request.Context(), c.Param("ticket_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not list voice notes"})
		return
	}
	if notes == nil {
		notes = []VoiceNote{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notes": notes})
}
