package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"audiopub/core/auth"
	"audiopub/model"
)

type contextKey string

const userIDKey contextKey = "userID"

// AuthMiddleware requires a valid bearer token and stores the user ID in
// the request context.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := h.userIDFromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	}
}

// OptionalAuthMiddleware stores the user ID when a valid token is present
// and passes the request through either way.
func (h *APIHandler) OptionalAuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if userID, err := h.userIDFromRequest(r); err == nil {
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			r = r.WithContext(ctx)
		}
		next(w, r)
	}
}

func (h *APIHandler) userIDFromRequest(r *http.Request) (int64, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return 0, fmt.Errorf("missing bearer token")
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// GetUserIDFromContext returns the authenticated user ID, if any.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}

// currentUser loads the authenticated user record, or nil when the request
// carries no identity.
func (h *APIHandler) currentUser(r *http.Request) (*model.User, error) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		return nil, nil
	}
	user, err := h.users.GetUserByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return user, nil
}
