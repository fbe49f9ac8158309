package model

import "time"

// AudioFollow expresses "notify me on new comments for this audio".
// The (user, audio) pair is unique; create and remove are idempotent.
type AudioFollow struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:uq_follow_user_audio" json:"userId"`
	AudioID   string    `gorm:"type:char(36);not null;uniqueIndex:uq_follow_user_audio" json:"audioId"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName overrides the GORM default.
func (AudioFollow) TableName() string {
	return "audio_follows"
}
