package server

import (
	"net/http"

	"audiopub/logger"
)

const notificationPageSize = 50

// ListNotificationsHandler returns the user's most recent notifications.
func (h *APIHandler) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	notifications, err := h.notifications.ListByUser(r.Context(), userID, notificationPageSize)
	if err != nil {
		logger.Error("failed to list notifications", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

// UnreadCountHandler returns how many unread notifications the user has.
func (h *APIHandler) UnreadCountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	count, err := h.notifications.CountUnread(r.Context(), userID)
	if err != nil {
		logger.Error("failed to count unread notifications", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to count notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread": count})
}
