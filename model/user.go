package model

import "time"

// User represents a user in the system.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Not exposed in API responses
	IsAdmin      bool      `json:"isAdmin"`
	IsVerified   bool      `json:"isVerified"`
	IsTrusted    bool      `json:"isTrusted"`
	IsBanned     bool      `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
