package repository

import (
	"context"
	"errors"
	"fmt"

	"audiopub/model"

	"gorm.io/gorm"
)

// FavoriteRepository defines the interface for audio-favorite operations.
type FavoriteRepository interface {
	// CreateFavorite favorites an audio for a user. Returns nil, nil when
	// the favorite already exists.
	CreateFavorite(ctx context.Context, userID int64, audioID string) (*model.AudioFavorite, error)
	RemoveFavorite(ctx context.Context, userID int64, audioID string) error
	CountByAudio(ctx context.Context, audioID string) (int64, error)
	IsFavorited(ctx context.Context, userID int64, audioID string) (bool, error)
}

// gormFavoriteRepository implements FavoriteRepository on the GORM handle.
type gormFavoriteRepository struct {
	db *gorm.DB
}

// NewGormFavoriteRepository creates a new gormFavoriteRepository.
func NewGormFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &gormFavoriteRepository{db: db}
}

// CreateFavorite records a favorite, or returns nil, nil if already present.
func (r *gormFavoriteRepository) CreateFavorite(ctx context.Context, userID int64, audioID string) (*model.AudioFavorite, error) {
	var existing model.AudioFavorite
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND audio_id = ?", userID, audioID).
		First(&existing).Error
	if err == nil {
		return nil, nil // already favorited
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up favorite for user %d audio %s: %w", userID, audioID, err)
	}

	favorite := &model.AudioFavorite{UserID: userID, AudioID: audioID}
	if err := r.db.WithContext(ctx).Create(favorite).Error; err != nil {
		return nil, fmt.Errorf("failed to create favorite for user %d audio %s: %w", userID, audioID, err)
	}
	return favorite, nil
}

// RemoveFavorite deletes a favorite. Removing an absent favorite is a no-op.
func (r *gormFavoriteRepository) RemoveFavorite(ctx context.Context, userID int64, audioID string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND audio_id = ?", userID, audioID).
		Delete(&model.AudioFavorite{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete favorite for user %d audio %s: %w", userID, audioID, err)
	}
	return nil
}

// CountByAudio returns the favorite count of an audio.
func (r *gormFavoriteRepository) CountByAudio(ctx context.Context, audioID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AudioFavorite{}).
		Where("audio_id = ?", audioID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count favorites for audio %s: %w", audioID, err)
	}
	return count, nil
}

// IsFavorited reports whether the user has favorited the audio.
func (r *gormFavoriteRepository) IsFavorited(ctx context.Context, userID int64, audioID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AudioFavorite{}).
		Where("user_id = ? AND audio_id = ?", userID, audioID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check favorite for user %d audio %s: %w", userID, audioID, err)
	}
	return count > 0, nil
}
