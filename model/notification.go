package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationType tags what caused a notification.
type NotificationType string

const (
	NotificationComment NotificationType = "comment"
	NotificationMention NotificationType = "mention"
)

// TargetType discriminates what a notification points at.
type TargetType string

const (
	TargetAudio   TargetType = "audio"
	TargetComment TargetType = "comment"
)

// NotificationMeta is the per-type payload. Fields are statically known per
// notification type: comment notifications carry the audio id, mention
// notifications carry the audio id and a content excerpt.
type NotificationMeta struct {
	AudioID string `json:"audioId,omitempty"`
	Content string `json:"content,omitempty"`
}

// Value implements driver.Valuer so GORM stores the metadata as JSON.
func (m NotificationMeta) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *NotificationMeta) Scan(value interface{}) error {
	if value == nil {
		*m = NotificationMeta{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported type %T for NotificationMeta", value)
	}
}

// Notification is a single alert to one recipient. The recipient is never
// the actor that caused it.
type Notification struct {
	ID         string           `gorm:"type:char(36);primaryKey" json:"id"`
	UserID     int64            `gorm:"not null;index" json:"userId"` // recipient
	ActorID    int64            `gorm:"not null" json:"actorId"`
	Type       NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	TargetType TargetType       `gorm:"type:varchar(32);not null;index:idx_notification_target" json:"targetType"`
	TargetID   string           `gorm:"type:char(36);not null;index:idx_notification_target" json:"targetId"`
	Metadata   NotificationMeta `gorm:"type:json" json:"metadata"`
	ReadAt     *time.Time       `json:"readAt"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// TableName overrides the GORM default.
func (Notification) TableName() string {
	return "notifications"
}

// NewNotification builds an unread notification with a fresh identity.
func NewNotification(recipientID, actorID int64, typ NotificationType, targetType TargetType, targetID string, meta NotificationMeta) *Notification {
	return &Notification{
		ID:         uuid.New().String(),
		UserID:     recipientID,
		ActorID:    actorID,
		Type:       typ,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   meta,
		CreatedAt:  time.Now(),
	}
}
