package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"unicode/utf8"

	"audiopub/core/media"
	"audiopub/core/notify"
	"audiopub/logger"
	"audiopub/model"

	"github.com/gorilla/mux"
)

// uploadFormEcho preserves the submitted form values so the client can
// re-render the form after a rejection.
type uploadFormEcho struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

type uploadErrorResponse struct {
	ErrorKey string         `json:"errorKey"`
	Message  string         `json:"message"`
	Form     uploadFormEcho `json:"form"`
}

// UploadAudioHandler accepts a multipart upload and runs it through the
// ingestion pipeline, waiting for the transcode before responding.
func (h *APIHandler) UploadAudioHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil || user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if user.IsBanned {
		writeError(w, http.StatusForbidden, "you are banned")
		return
	}
	if !user.IsVerified {
		writeError(w, http.StatusForbidden, "please verify your email first")
		return
	}
	if !user.IsTrusted {
		count, err := h.audios.CountByUserID(user.ID)
		if err != nil {
			logger.Error("failed to count user audios", logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "upload failed")
			return
		}
		if count >= 1 {
			writeError(w, http.StatusForbidden, "please wait for your account to be reviewed")
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse upload form")
		return
	}

	form := uploadFormEcho{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Language:    r.FormValue("language"),
	}

	req := &media.UploadRequest{
		UserID:      user.ID,
		Title:       form.Title,
		Description: form.Description,
		Language:    form.Language,
	}
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		req.File = file
		req.FileName = header.Filename
		req.FileSize = header.Size
	}

	audio, err := h.pipeline.Ingest(r.Context(), req)
	if err != nil {
		var verr *media.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, uploadErrorResponse{
				ErrorKey: "upload.error.invalid_" + verr.Field,
				Message:  verr.Message,
				Form:     form,
			})
			return
		}
		var terr *media.TranscodeError
		if errors.As(err, &terr) {
			if terr.Kind == media.TranscodeUnavailable {
				writeJSON(w, http.StatusServiceUnavailable, uploadErrorResponse{
					ErrorKey: "upload.error.transcoder_unavailable",
					Message:  "audio processing is temporarily unavailable, please try again later",
					Form:     form,
				})
				return
			}
			writeJSON(w, http.StatusUnprocessableEntity, uploadErrorResponse{
				ErrorKey: "upload.error.transcode_failed",
				Message:  "the uploaded file could not be processed as audio",
				Form:     form,
			})
			return
		}
		logger.Error("upload failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	writeJSON(w, http.StatusCreated, audio)
}

// listenResponse is the payload of the listen page.
type listenResponse struct {
	Audio         *model.Audio     `json:"audio"`
	Comments      []*model.Comment `json:"comments"`
	MimeType      string           `json:"mimeType"`
	IsFollowing   bool             `json:"isFollowing"`
	FavoriteCount int64            `json:"favoriteCount"`
	IsFavorited   bool             `json:"isFavorited"`
}

// GetAudioHandler returns the listen payload for an audio: the record, its
// comments, and the viewer's interaction state. Viewing marks the viewer's
// unread notifications about this audio (or its comments) as read.
func (h *APIHandler) GetAudioHandler(w http.ResponseWriter, r *http.Request) {
	audioID := mux.Vars(r)["id"]
	audio, err := h.audios.GetAudioByID(audioID)
	if err != nil {
		logger.Error("failed to load audio", logger.String("audioId", audioID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to load audio")
		return
	}
	if audio == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	viewer, err := h.currentUser(r)
	if err != nil {
		logger.Warn("failed to load viewer", logger.ErrorField(err))
	}

	comments, err := h.comments.ListByAudio(audioID)
	if err != nil {
		logger.Error("failed to load comments", logger.String("audioId", audioID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to load comments")
		return
	}
	// Comments from untrusted authors are hidden from everyone but admins.
	if viewer == nil || !viewer.IsAdmin {
		visible := comments[:0]
		for _, c := range comments {
			if c.User != nil && c.User.IsTrusted {
				visible = append(visible, c)
			}
		}
		comments = visible
	}

	var viewerID *int64
	if viewer != nil {
		viewerID = &viewer.ID

		commentIDs := make([]string, 0, len(comments))
		for _, c := range comments {
			commentIDs = append(commentIDs, c.ID)
		}
		if err := h.notifications.MarkReadForAudio(r.Context(), viewer.ID, audioID, commentIDs); err != nil {
			logger.Warn("failed to mark notifications read",
				logger.String("audioId", audioID),
				logger.ErrorField(err))
		}
	}

	state := h.aggregator.Aggregate(r.Context(), audioID, viewerID)

	writeJSON(w, http.StatusOK, listenResponse{
		Audio:         audio,
		Comments:      comments,
		MimeType:      audio.MimeType,
		IsFollowing:   state.IsFollowing,
		FavoriteCount: state.FavoriteCount,
		IsFavorited:   state.IsFavorited,
	})
}

// ListAudiosHandler returns the most recently published audios.
func (h *APIHandler) ListAudiosHandler(w http.ResponseWriter, r *http.Request) {
	audios, err := h.audios.ListRecent(50)
	if err != nil {
		logger.Error("failed to list audios", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to list audios")
		return
	}
	writeJSON(w, http.StatusOK, audios)
}

type editAudioRequest struct {
	Description string `json:"description"`
}

// UpdateAudioHandler edits the description of an audio. Only newly added
// mentions are notified.
func (h *APIHandler) UpdateAudioHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil || user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if user.IsBanned {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	audioID := mux.Vars(r)["id"]
	audio, err := h.audios.GetAudioByID(audioID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load audio")
		return
	}
	if audio == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if !user.IsAdmin && user.ID != audio.UserID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req editAudioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// Edits are capped tighter than the upload-time description limit.
	if utf8.RuneCountInString(req.Description) > model.MaxEditDescriptionLen {
		writeError(w, http.StatusBadRequest, "description too long (max 4000)")
		return
	}

	prev := audio.Description
	if err := h.audios.UpdateDescription(audioID, req.Description); err != nil {
		logger.Error("failed to update description", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to update audio")
		return
	}

	err = h.notifier.DispatchMentions(r.Context(), user.ID, model.TargetAudio, audioID, req.Description,
		notify.MentionOpts{PrevText: &prev, AudioID: audioID})
	if err != nil {
		logger.Error("failed to dispatch mention notifications for edit",
			logger.String("audioId", audioID),
			logger.ErrorField(err))
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DeleteAudioHandler removes an audio, its backing file, and its mirrored
// object.
func (h *APIHandler) DeleteAudioHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil || user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	audioID := mux.Vars(r)["id"]
	audio, err := h.audios.GetAudioByID(audioID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load audio")
		return
	}
	if audio == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if !user.IsAdmin && user.ID != audio.UserID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if err := h.files.Remove(audio.Path(h.cfg.AudioUploadDir)); err != nil {
		logger.Warn("failed to remove backing file",
			logger.String("audioId", audioID),
			logger.ErrorField(err))
	}
	if h.mirror != nil {
		if err := h.mirror.Remove(r.Context(), audio.ObjectName()); err != nil {
			logger.Warn("failed to remove mirrored object",
				logger.String("audioId", audioID),
				logger.ErrorField(err))
		}
	}
	if err := h.audios.DeleteAudio(audioID); err != nil {
		logger.Error("failed to delete audio record", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to delete audio")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
