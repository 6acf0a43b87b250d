package domain

import (
	"time"

	"github.com/google/uuid"
)

// Attachment represents binary payload metadata owned by exactly one message.
// Rows are created atomically with their message; a message is never visible
// without its attachments already persisted.
type Attachment struct {
	AttachmentID uuid.UUID `json:"attachment_id" db:"attachment_id"`
	MessageID    uuid.UUID `json:"message_id" db:"message_id"`
	FileURL      string    `json:"file_url" db:"file_url"`
	FileName     string    `json:"file_name" db:"file_name"`
	FileType     string    `json:"file_type" db:"file_type"`
	FileSize     int64     `json:"file_size" db:"file_size"`
	ThumbnailURL *string   `json:"thumbnail_url,omitempty" db:"thumbnail_url"`
	Duration     *int      `json:"duration,omitempty" db:"duration"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// AttachmentInput is the caller-supplied attachment metadata on append.
// The file bytes themselves were already uploaded through the attachment
// endpoint; the input references the resulting URL.
type AttachmentInput struct {
	FileURL      string  `json:"file_url"`
	FileName     string  `json:"file_name"`
	FileType     string  `json:"file_type"`
	FileSize     int64   `json:"file_size"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`
	Duration     *int    `json:"duration,omitempty"`
}

// StoredObject is the result of persisting bytes in the object store
type StoredObject struct {
	ObjectID uuid.UUID `json:"object_id"`
	URL      string    `json:"url"`
	FileName string    `json:"file_name"`
	FileType string    `json:"file_type"`
	FileSize int64     `json:"file_size"`
}
