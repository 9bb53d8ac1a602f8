package voicenotes

import "time"

// VoiceNote is the metadata for one recorded clip attached to a ticket
// conversation. The audio itself lives behind URL.
type VoiceNote struct {
	ID              string    `json:"id"`
	TicketID        string    `json:"ticketId"`
	AuthorEmail     string    `json:"authorEmail"`
	DurationSeconds int       `json:"durationSeconds"`
	SizeBytes       int       `json:"sizeBytes"`
	URL             string    `json:"url"`

	// LocalOnly marks a note whose audio never reached the remote store:
	// the upload failed and the bytes were retained on local disk instead.
	// The note still plays locally; sync can be retried later.
	LocalOnly bool `json:"localOnly"`

	CreatedAt time.Time `json:"createdAt"`
}
