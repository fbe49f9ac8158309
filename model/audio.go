package model

import (
	"path/filepath"
	"time"
)

// Title and description bounds enforced at upload time. Edits to an existing
// description are capped at MaxEditDescriptionLen, which is deliberately
// tighter than the upload cap.
const (
	MinTitleLen           = 3
	MaxTitleLen           = 120
	MaxDescriptionLen     = 5000
	MaxEditDescriptionLen = 4000
)

// Audio represents a published recording.
type Audio struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Extension   string    `json:"-"` // File extension of the original upload, including the dot
	Language    string    `json:"language"`
	HasFile     bool      `json:"hasFile"`
	MimeType    string    `json:"mimeType"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Uploader, populated on read paths that join the owner.
	User *User `json:"user,omitempty"`
}

// Path returns the backing file location under baseDir. The path is derived
// from the record identity so it stays stable across metadata edits.
func (a *Audio) Path(baseDir string) string {
	return filepath.Join(baseDir, a.ID+a.Extension)
}

// ObjectName returns the object key used when the audio is mirrored to
// object storage.
func (a *Audio) ObjectName() string {
	return "audio/" + a.ID + a.Extension
}
