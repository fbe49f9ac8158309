package model

import "time"

// AudioFavorite marks an audio as favorited by a user.
// The (user, audio) pair is unique.
type AudioFavorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:uq_favorite_user_audio" json:"userId"`
	AudioID   string    `gorm:"type:char(36);not null;uniqueIndex:uq_favorite_user_audio" json:"audioId"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName overrides the GORM default.
func (AudioFavorite) TableName() string {
	return "audio_favorites"
}
