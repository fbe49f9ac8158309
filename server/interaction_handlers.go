package server

import (
	"net/http"

	"audiopub/cache"
	"audiopub/logger"

	"github.com/gorilla/mux"
)

// FollowAudioHandler subscribes the user to comment notifications on an
// audio. Following twice, or following your own audio, is a no-op.
func (h *APIHandler) FollowAudioHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil || user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if user.IsBanned {
		writeError(w, http.StatusForbidden, "forbidden")
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
	// Owners are always notified about comments; a follow row would only
	// duplicate that.
	if audio.UserID == user.ID {
		writeJSON(w, http.StatusOK, map[string]bool{"following": true})
		return
	}

	if err := h.follows.Follow(r.Context(), user.ID, audioID); err != nil {
		logger.Error("failed to follow audio", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to follow audio")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"following": true})
}

// UnfollowAudioHandler removes the user's follow on an audio.
func (h *APIHandler) UnfollowAudioHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil || user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	audioID := mux.Vars(r)["id"]
	if err := h.follows.Unfollow(r.Context(), user.ID, audioID); err != nil {
		logger.Error("failed to unfollow audio", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to unfollow audio")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"following": false})
}

// FavoriteAudioHandler favorites an audio for the user. Trusted accounts
// only; favoriting twice is a no-op.
func (h *APIHandler) FavoriteAudioHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil || user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if user.IsBanned || !user.IsTrusted {
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

	if _, err := h.favorites.CreateFavorite(r.Context(), user.ID, audioID); err != nil {
		logger.Error("failed to favorite audio", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to favorite audio")
		return
	}
	if err := cache.InvalidateFavoriteCount(r.Context(), audioID); err != nil {
		logger.Debug("failed to invalidate favorite count", logger.ErrorField(err))
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorited": true})
}

// UnfavoriteAudioHandler removes the user's favorite on an audio.
func (h *APIHandler) UnfavoriteAudioHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil || user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	audioID := mux.Vars(r)["id"]
	if err := h.favorites.RemoveFavorite(r.Context(), user.ID, audioID); err != nil {
		logger.Error("failed to unfavorite audio", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to unfavorite audio")
		return
	}
	if err := cache.InvalidateFavoriteCount(r.Context(), audioID); err != nil {
		logger.Debug("failed to invalidate favorite count", logger.ErrorField(err))
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorited": false})
}
