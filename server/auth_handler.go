package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"audiopub/core/auth"
	"audiopub/logger"
	"audiopub/model"
)

const tokenTTL = 24 * time.Hour

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// RegisterHandler creates a new account. Email verification is handled
// out-of-band; accounts start verified but untrusted.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if n := utf8.RuneCountInString(req.Username); n < 2 || n > 32 {
		writeError(w, http.StatusBadRequest, "username must be between 2 and 32 characters")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	if existing, err := h.users.GetUserByUsername(req.Username); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check username")
		return
	} else if existing != nil {
		writeError(w, http.StatusConflict, "username already taken")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("failed to hash password", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		IsVerified:   true,
	}
	id, err := h.users.CreateUser(user)
	if err != nil {
		logger.Error("failed to create user", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	user.ID = id

	token, err := auth.GenerateToken(h.cfg.JWTSecret, id, tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

// LoginHandler authenticates by username (or email) and password.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.GetUserByUsername(req.Username)
	if err == nil && user == nil && strings.Contains(req.Username, "@") {
		user, err = h.users.GetUserByEmail(req.Username)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if user.IsBanned {
		writeError(w, http.StatusForbidden, "account is banned")
		return
	}

	token, err := auth.GenerateToken(h.cfg.JWTSecret, user.ID, tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}
