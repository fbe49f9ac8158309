package repository

import (
	"context"
	"errors"
	"fmt"

	"audiopub/model"

	"gorm.io/gorm"
)

// FollowRepository defines the interface for audio-follow operations.
// Creates and removes are idempotent.
type FollowRepository interface {
	Follow(ctx context.Context, userID int64, audioID string) error
	Unfollow(ctx context.Context, userID int64, audioID string) error
	ListByAudio(ctx context.Context, audioID string) ([]*model.AudioFollow, error)
	IsFollowing(ctx context.Context, userID int64, audioID string) (bool, error)
}

// gormFollowRepository implements FollowRepository on the GORM handle.
type gormFollowRepository struct {
	db *gorm.DB
}

// NewGormFollowRepository creates a new gormFollowRepository.
func NewGormFollowRepository(db *gorm.DB) FollowRepository {
	return &gormFollowRepository{db: db}
}

// Follow records that a user follows an audio. Following an audio that is
// already followed is a no-op.
func (r *gormFollowRepository) Follow(ctx context.Context, userID int64, audioID string) error {
	var existing model.AudioFollow
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND audio_id = ?", userID, audioID).
		First(&existing).Error
	if err == nil {
		return nil // already following
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up follow for user %d audio %s: %w", userID, audioID, err)
	}

	follow := &model.AudioFollow{UserID: userID, AudioID: audioID}
	if err := r.db.WithContext(ctx).Create(follow).Error; err != nil {
		return fmt.Errorf("failed to create follow for user %d audio %s: %w", userID, audioID, err)
	}
	return nil
}

// Unfollow removes a follow. Removing an absent follow is a no-op.
func (r *gormFollowRepository) Unfollow(ctx context.Context, userID int64, audioID string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND audio_id = ?", userID, audioID).
		Delete(&model.AudioFollow{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete follow for user %d audio %s: %w", userID, audioID, err)
	}
	return nil
}

// ListByAudio returns all follows of an audio.
func (r *gormFollowRepository) ListByAudio(ctx context.Context, audioID string) ([]*model.AudioFollow, error) {
	var follows []*model.AudioFollow
	err := r.db.WithContext(ctx).
		Where("audio_id = ?", audioID).
		Find(&follows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list follows for audio %s: %w", audioID, err)
	}
	return follows, nil
}

// IsFollowing reports whether the user follows the audio.
func (r *gormFollowRepository) IsFollowing(ctx context.Context, userID int64, audioID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AudioFollow{}).
		Where("user_id = ? AND audio_id = ?", userID, audioID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check follow for user %d audio %s: %w", userID, audioID, err)
	}
	return count > 0, nil
}
