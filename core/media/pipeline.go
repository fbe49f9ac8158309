// Package media owns the lifecycle of an uploaded recording: validation,
// persistence, transcoding, and full rollback when transcoding fails.
package media

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"audiopub/core/notify"
	"audiopub/locale"
	"audiopub/logger"
	"audiopub/model"

	"github.com/google/uuid"
)

// AudioStore is the subset of the audio repository the pipeline mutates.
type AudioStore interface {
	CreateAudio(audio *model.Audio) error
	DeleteAudio(id string) error
	UpdateMimeType(id string, mimeType string) error
}

// MentionNotifier dispatches mention notifications once content is durable.
type MentionNotifier interface {
	DispatchMentions(ctx context.Context, actorID int64, targetType model.TargetType, targetID, text string, opts notify.MentionOpts) error
}

// Mailer sends out-of-band operator alerts. Failures are logged, never
// propagated.
type Mailer interface {
	SendEmail(to, subject, htmlBody string) error
}

// Mirror copies the canonical file to object storage after a successful
// transcode. Optional; failures are logged, never propagated.
type Mirror interface {
	Upload(ctx context.Context, objectName, filePath, contentType string) error
	Remove(ctx context.Context, objectName string) error
}

// UploadRequest carries a submitted upload into the pipeline.
type UploadRequest struct {
	UserID      int64
	Title       string
	Description string
	Language    string
	FileName    string
	FileSize    int64
	File        io.Reader
}

// Pipeline ingests uploads: validate, persist record and file, transcode,
// then notify mentioned users. Either it returns a usable transcoded audio,
// or it returns an error having left no trace in the store or filesystem.
type Pipeline struct {
	audios     AudioStore
	files      FileStore
	transcoder Transcoder
	notifier   MentionNotifier
	mailer     Mailer
	mirror     Mirror

	audioDir      string
	maxUploadSize int64
	timeout       time.Duration
	adminEmail    string
}

// PipelineConfig bundles the pipeline's collaborators and limits.
type PipelineConfig struct {
	Audios     AudioStore
	Files      FileStore
	Transcoder Transcoder
	Notifier   MentionNotifier
	Mailer     Mailer // optional
	Mirror     Mirror // optional

	AudioDir      string
	MaxUploadSize int64
	Timeout       time.Duration // bound on the transcoder invocation; 0 means no bound
	AdminEmail    string
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		audios:        cfg.Audios,
		files:         cfg.Files,
		transcoder:    cfg.Transcoder,
		notifier:      cfg.Notifier,
		mailer:        cfg.Mailer,
		mirror:        cfg.Mirror,
		audioDir:      cfg.AudioDir,
		maxUploadSize: cfg.MaxUploadSize,
		timeout:       cfg.Timeout,
		adminEmail:    cfg.AdminEmail,
	}
}

// Ingest runs an upload through the full lifecycle. It returns the created
// audio on success, a *ValidationError for malformed input (no store or
// filesystem mutation has happened), or a *TranscodeError after a complete
// rollback.
func (p *Pipeline) Ingest(ctx context.Context, req *UploadRequest) (*model.Audio, error) {
	if verr := p.validate(req); verr != nil {
		return nil, verr
	}

	audio := &model.Audio{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Extension:   strings.ToLower(filepath.Ext(req.FileName)),
		Language:    locale.Normalize(req.Language),
		HasFile:     true,
	}

	if err := p.audios.CreateAudio(audio); err != nil {
		return nil, fmt.Errorf("failed to create audio record: %w", err)
	}

	path := audio.Path(p.audioDir)
	if err := p.files.Save(path, req.File); err != nil {
		// The record must not outlive a failed byte write.
		if derr := p.audios.DeleteAudio(audio.ID); derr != nil {
			logger.Error("failed to delete audio record after write failure",
				logger.String("audioId", audio.ID),
				logger.ErrorField(derr))
		}
		if rerr := p.files.Remove(path); rerr != nil {
			logger.Warn("failed to remove partial upload",
				logger.String("path", path),
				logger.ErrorField(rerr))
		}
		return nil, fmt.Errorf("failed to persist uploaded file: %w", err)
	}

	if err := p.transcode(ctx, path); err != nil {
		terr := classifyTranscode(err)
		p.rollback(audio, path, terr)
		return nil, terr
	}

	if mime, err := p.files.DetectMime(path); err != nil {
		logger.Warn("failed to detect mime type of transcoded audio",
			logger.String("audioId", audio.ID),
			logger.ErrorField(err))
	} else {
		audio.MimeType = mime
		if err := p.audios.UpdateMimeType(audio.ID, mime); err != nil {
			logger.Warn("failed to store mime type",
				logger.String("audioId", audio.ID),
				logger.ErrorField(err))
		}
	}

	if p.mirror != nil {
		if err := p.mirror.Upload(ctx, audio.ObjectName(), path, audio.MimeType); err != nil {
			logger.Warn("failed to mirror audio to object storage",
				logger.String("audioId", audio.ID),
				logger.ErrorField(err))
		}
	}

	if req.Description != "" {
		err := p.notifier.DispatchMentions(ctx, req.UserID, model.TargetAudio, audio.ID, req.Description,
			notify.MentionOpts{AudioID: audio.ID})
		if err != nil {
			logger.Error("failed to dispatch mention notifications for upload",
				logger.String("audioId", audio.ID),
				logger.ErrorField(err))
		}
	}

	logger.Info("audio ingested",
		logger.String("audioId", audio.ID),
		logger.Int64("userId", audio.UserID),
		logger.String("language", audio.Language))
	return audio, nil
}

// validate enforces the upload checks in order; the first failure
// short-circuits before any store or filesystem mutation.
func (p *Pipeline) validate(req *UploadRequest) *ValidationError {
	if req.File == nil {
		return &ValidationError{Field: "file", Message: "a file is required"}
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return &ValidationError{Field: "title", Message: "a title is required"}
	}
	if n := utf8.RuneCountInString(title); n < model.MinTitleLen || n > model.MaxTitleLen {
		return &ValidationError{
			Field:   "title",
			Message: fmt.Sprintf("title must be between %d and %d characters", model.MinTitleLen, model.MaxTitleLen),
		}
	}
	if utf8.RuneCountInString(req.Description) > model.MaxDescriptionLen {
		return &ValidationError{
			Field:   "description",
			Message: fmt.Sprintf("description must be at most %d characters", model.MaxDescriptionLen),
		}
	}
	if p.maxUploadSize > 0 && req.FileSize > p.maxUploadSize {
		return &ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("file exceeds the maximum size of %d MB", p.maxUploadSize>>20),
		}
	}
	if !locale.IsValid(locale.Normalize(req.Language)) {
		return &ValidationError{Field: "language", Message: "unknown language code"}
	}
	return nil
}

// transcode invokes the transcoder synchronously, bounded by the configured
// timeout. An external process may hang; expiry cancels it and takes the
// rollback path.
func (p *Pipeline) transcode(ctx context.Context, path string) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.transcoder.Transcode(ctx, path)
}

// rollback compensates for a transcode failure: backing file, record, and an
// operator alert. Each step is best-effort and logged; none may mask the
// original error.
func (p *Pipeline) rollback(audio *model.Audio, path string, terr *TranscodeError) {
	if err := p.files.Remove(path); err != nil {
		logger.Error("rollback: failed to remove backing file",
			logger.String("audioId", audio.ID),
			logger.String("path", path),
			logger.ErrorField(err))
	}

	if err := p.audios.DeleteAudio(audio.ID); err != nil {
		logger.Error("rollback: failed to delete audio record",
			logger.String("audioId", audio.ID),
			logger.ErrorField(err))
	}

	if p.mailer != nil && p.adminEmail != "" {
		subject := "audiopub: transcode failure"
		body := fmt.Sprintf(
			"<p>Transcoding failed for audio <b>%s</b> (user %d).</p><pre>%s</pre>",
			audio.ID, audio.UserID, terr.Output)
		if err := p.mailer.SendEmail(p.adminEmail, subject, body); err != nil {
			logger.Error("rollback: failed to alert operator",
				logger.String("audioId", audio.ID),
				logger.ErrorField(err))
		}
	}

	logger.Warn("upload rolled back after transcode failure",
		logger.String("audioId", audio.ID),
		logger.Int64("userId", audio.UserID),
		logger.String("kind", string(terr.Kind)),
		logger.String("output", terr.Output))
}
