package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"audiopub/core/notify"
	"audiopub/logger"
	"audiopub/model"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type commentRequest struct {
	Content string `json:"content"`
}

// CreateCommentHandler posts a comment on an audio and fans notifications
// out to the audio's followers, its owner, and any mentioned users.
func (h *APIHandler) CreateCommentHandler(w http.ResponseWriter, r *http.Request) {
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

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if n := utf8.RuneCountInString(content); n < model.MinCommentLen || n > model.MaxCommentLen {
		writeError(w, http.StatusBadRequest, "comment must be between 3 and 4000 characters")
		return
	}

	comment := &model.Comment{
		ID:      uuid.New().String(),
		AudioID: audioID,
		UserID:  user.ID,
		Content: content,
		User:    user,
	}
	if err := h.comments.CreateComment(comment); err != nil {
		logger.Error("failed to create comment", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to create comment")
		return
	}

	// The comment is durable at this point; notification failures are logged
	// and the comment is returned regardless.
	if err := h.notifier.NotifyCommentCreated(r.Context(), user.ID, audio, comment.ID); err != nil {
		logger.Error("failed to notify about new comment",
			logger.String("commentId", comment.ID),
			logger.ErrorField(err))
	}
	err = h.notifier.DispatchMentions(r.Context(), user.ID, model.TargetComment, comment.ID, content,
		notify.MentionOpts{AudioID: audioID})
	if err != nil {
		logger.Error("failed to dispatch mention notifications for comment",
			logger.String("commentId", comment.ID),
			logger.ErrorField(err))
	}

	writeJSON(w, http.StatusCreated, comment)
}

// UpdateCommentHandler edits a comment. Only newly added mentions are
// notified.
func (h *APIHandler) UpdateCommentHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil || user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if user.IsBanned {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	commentID := mux.Vars(r)["commentId"]
	comment, err := h.comments.GetCommentByID(commentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load comment")
		return
	}
	if comment == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if !user.IsAdmin && user.ID != comment.UserID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if n := utf8.RuneCountInString(content); n < model.MinCommentLen || n > model.MaxCommentLen {
		writeError(w, http.StatusBadRequest, "comment must be between 3 and 4000 characters")
		return
	}

	prev := comment.Content
	if err := h.comments.UpdateContent(commentID, content); err != nil {
		logger.Error("failed to update comment", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to update comment")
		return
	}

	err = h.notifier.DispatchMentions(r.Context(), user.ID, model.TargetComment, commentID, content,
		notify.MentionOpts{PrevText: &prev, AudioID: comment.AudioID})
	if err != nil {
		logger.Error("failed to dispatch mention notifications for comment edit",
			logger.String("commentId", commentID),
			logger.ErrorField(err))
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DeleteCommentHandler removes a comment. Author or admin only.
func (h *APIHandler) DeleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil || user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	commentID := mux.Vars(r)["commentId"]
	comment, err := h.comments.GetCommentByID(commentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load comment")
		return
	}
	if comment == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if !user.IsAdmin && user.ID != comment.UserID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	if err := h.comments.DeleteComment(commentID); err != nil {
		logger.Error("failed to delete comment", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to delete comment")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
