package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"primeflip/internal/auth"
	"primeflip/internal/domain"
)

// AuthHandler serves account registration and login.
type AuthHandler struct {
	users  domain.UserStore
	tokens *auth.TokenIssuer
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(users domain.UserStore, tokens *auth.TokenIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Register creates a new account.
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "auth.register")

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	if len(req.Password) < auth.MinPasswordLength {
		writeError(w, http.StatusBadRequest, "password too short")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Error("hash password failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	user, err := h.users.Create(r.Context(), req.Username, hash)
	if errors.Is(err, domain.ErrAlreadyExists) {
		writeError(w, http.StatusConflict, "username already taken")
		return
	}
	if err != nil {
		log.Error("create user failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	log.Info("user registered", slog.String("username", user.Username))
	writeJSON(w, http.StatusCreated, userResponse{ID: user.ID, Username: user.Username})
}

// Login verifies credentials and returns a signed token.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "auth.login")

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.GetByUsername(r.Context(), strings.TrimSpace(req.Username))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		log.Error("lookup user failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	if user.Disabled || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		log.Error("issue token failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	log.Info("user logged in", slog.String("username", user.Username))
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  userResponse{ID: user.ID, Username: user.Username},
	})
}
