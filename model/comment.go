package model

import "time"

// Comment length bounds, shared by create and edit.
const (
	MinCommentLen = 3
	MaxCommentLen = 4000
)

// Comment is attached to exactly one audio.
type Comment struct {
	ID        string    `json:"id"`
	AudioID   string    `json:"audioId"`
	UserID    int64     `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Author, populated on read paths that join the user.
	User *User `json:"user,omitempty"`
}
