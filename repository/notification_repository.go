package repository

import (
	"context"
	"fmt"
	"time"

	"audiopub/model"

	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification operations.
type NotificationRepository interface {
	// BulkCreate inserts a batch of notifications as one logical operation.
	BulkCreate(ctx context.Context, notifications []*model.Notification) error
	// MarkReadForAudio stamps read_at on every unread notification of the
	// user whose target is the audio itself or one of its comments.
	MarkReadForAudio(ctx context.Context, userID int64, audioID string, commentIDs []string) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*model.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
}

// gormNotificationRepository implements NotificationRepository on the GORM handle.
type gormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new gormNotificationRepository.
func NewGormNotificationRepository(db *gorm.DB) NotificationRepository {
	return &gormNotificationRepository{db: db}
}

// BulkCreate inserts all notifications in one statement. An empty batch is
// a no-op.
func (r *gormNotificationRepository) BulkCreate(ctx context.Context, notifications []*model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(notifications).Error; err != nil {
		return fmt.Errorf("failed to bulk create %d notifications: %w", len(notifications), err)
	}
	return nil
}

// MarkReadForAudio marks the viewer's unread notifications targeting the
// audio, or any of the listed comments, as read.
func (r *gormNotificationRepository) MarkReadForAudio(ctx context.Context, userID int64, audioID string, commentIDs []string) error {
	tx := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID)

	if len(commentIDs) > 0 {
		tx = tx.Where(
			r.db.Where("target_type = ? AND target_id = ?", model.TargetAudio, audioID).
				Or("target_type = ? AND target_id IN ?", model.TargetComment, commentIDs),
		)
	} else {
		tx = tx.Where("target_type = ? AND target_id = ?", model.TargetAudio, audioID)
	}

	if err := tx.Update("read_at", time.Now()).Error; err != nil {
		return fmt.Errorf("failed to mark notifications read for user %d audio %s: %w", userID, audioID, err)
	}
	return nil
}

// ListByUser returns the most recent notifications for a user.
func (r *gormNotificationRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.Notification, error) {
	var notifications []*model.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for user %d: %w", userID, err)
	}
	return notifications, nil
}

// CountUnread returns how many unread notifications a user has.
func (r *gormNotificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications for user %d: %w", userID, err)
	}
	return count, nil
}
