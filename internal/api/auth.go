package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB        *sql.DB
	JWTSecret string
	Sessions  *auth.Broker
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string       `json:"token"`
	Session auth.Session `json:"session"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := store.GetUserByUsername(r.Context(), h.DB, req.Username)
	if err != nil {
		internalError(w, r, "internal error", err)
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		slog.Warn("login failed", "username", req.Username, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, session, err := auth.Issue(h.JWTSecret, user.ID, user.Username, user.Role)
	if err != nil {
		internalError(w, r, "failed to generate token", err)
		return
	}
	h.publish(auth.SessionStarted, session)

	slog.Info("user logged in", "user", user.Username, "role", user.Role)
	jsonResponse(w, http.StatusOK, loginResponse{Token: token, Session: session})
}

// Logout handles POST /api/auth/logout. The token is unusable afterwards.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := currentSession(r)
	if err := store.RevokeToken(r.Context(), h.DB, session.TokenID, session.ExpiresAt); err != nil {
		internalError(w, r, "failed to end session", err)
		return
	}
	h.publish(auth.SessionEnded, session)

	slog.Info("user logged out", "user", session.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Session handles GET /api/auth/session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, currentSession(r))
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session := currentSession(r)

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "current and new password required")
		return
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		fieldError(w, "new_password", err.Error())
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, session.UserID)
	if err != nil {
		internalError(w, r, "internal error", err)
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		jsonError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		internalError(w, r, "failed to hash password", err)
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, session.UserID, string(hash)); err != nil {
		internalError(w, r, "failed to update password", err)
		return
	}
	h.publish(auth.PasswordChanged, session)

	slog.Info("user changed own password", "user", session.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *AuthHandler) publish(kind string, s auth.Session) {
	if h.Sessions == nil {
		return
	}
	if dropped := h.Sessions.Publish(auth.Event{Kind: kind, Session: s}); dropped > 0 {
		slog.Warn("session event dropped", "kind", kind, "subscribers", dropped)
	}
}
