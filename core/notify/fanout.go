// Package notify fans a single triggering event out into one notification
// per recipient.
package notify

import (
	"context"
	"fmt"

	"audiopub/core/mention"
	"audiopub/model"
	"audiopub/repository"
)

// excerptLen caps the content excerpt stored in mention metadata.
const excerptLen = 400

// Engine creates notification records for the recipients of an event.
type Engine struct {
	notifications repository.NotificationRepository
	follows       repository.FollowRepository
	mentions      *mention.Extractor
}

// NewEngine creates a fan-out engine.
func NewEngine(
	notifications repository.NotificationRepository,
	follows repository.FollowRepository,
	mentions *mention.Extractor,
) *Engine {
	return &Engine{
		notifications: notifications,
		follows:       follows,
		mentions:      mentions,
	}
}

// Notify creates one notification per recipient. The actor is excluded, the
// recipient set is deduplicated, and an empty set is a no-op. The bulk
// insert is a single logical operation; its failure is returned to the
// caller rather than dropped.
func (e *Engine) Notify(
	ctx context.Context,
	actorID int64,
	typ model.NotificationType,
	targetType model.TargetType,
	targetID string,
	recipients []int64,
	meta model.NotificationMeta,
) error {
	seen := make(map[int64]struct{}, len(recipients))
	batch := make([]*model.Notification, 0, len(recipients))
	for _, recipientID := range recipients {
		if recipientID == actorID {
			continue
		}
		if _, dup := seen[recipientID]; dup {
			continue
		}
		seen[recipientID] = struct{}{}
		batch = append(batch, model.NewNotification(recipientID, actorID, typ, targetType, targetID, meta))
	}

	if len(batch) == 0 {
		return nil
	}
	return e.notifications.BulkCreate(ctx, batch)
}

// NotifyCommentCreated notifies the audio's followers and its owner about a
// new comment, excluding the commenter. Type "comment", target the comment.
func (e *Engine) NotifyCommentCreated(ctx context.Context, actorID int64, audio *model.Audio, commentID string) error {
	follows, err := e.follows.ListByAudio(ctx, audio.ID)
	if err != nil {
		return fmt.Errorf("failed to gather followers for audio %s: %w", audio.ID, err)
	}

	recipients := make([]int64, 0, len(follows)+1)
	for _, f := range follows {
		recipients = append(recipients, f.UserID)
	}
	recipients = append(recipients, audio.UserID)

	meta := model.NotificationMeta{AudioID: audio.ID}
	return e.Notify(ctx, actorID, model.NotificationComment, model.TargetComment, commentID, recipients, meta)
}

// MentionOpts tunes DispatchMentions.
type MentionOpts struct {
	// PrevText, when non-nil, switches to diff mode: only users mentioned
	// in the new text but not in PrevText are notified.
	PrevText *string
	// AudioID relates the target back to its audio in the metadata.
	AudioID string
}

// DispatchMentions extracts mentions from text and notifies the mentioned
// users. Type "mention", target the entity the text belongs to.
func (e *Engine) DispatchMentions(
	ctx context.Context,
	actorID int64,
	targetType model.TargetType,
	targetID string,
	text string,
	opts MentionOpts,
) error {
	var recipients []int64
	if opts.PrevText != nil {
		recipients = e.mentions.ExtractNewly(*opts.PrevText, text)
	} else {
		recipients = e.mentions.Extract(text)
	}
	if len(recipients) == 0 {
		return nil
	}

	meta := model.NotificationMeta{
		AudioID: opts.AudioID,
		Content: excerpt(text, excerptLen),
	}
	return e.Notify(ctx, actorID, model.NotificationMention, targetType, targetID, recipients, meta)
}

func excerpt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
