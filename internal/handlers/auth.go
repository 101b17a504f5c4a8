// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"handbook/internal/middleware"
	"handbook/internal/models"
	"handbook/internal/session"
	"handbook/internal/store"
)

// UserStore is the user persistence used by authentication.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, email, password, displayName string, role models.Role) (*models.User, error)
}

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	sessions *session.Store
	users    UserStore
}

// NewAuth creates a new Auth handler group.
func NewAuth(sessions *session.Store, users UserStore) *Auth {
	return &Auth{sessions: sessions, users: users}
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type userResponse struct {
	ID          uuid.UUID   `json:"id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"displayName"`
	Role        models.Role `json:"role"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Role: u.Role}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Signup registers a new editor and logs them in.
func (a *Auth) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = normalizeEmail(req.Email)
	if msg := validateCredentials(req.Email, req.Password); msg != "" {
		badRequest(w, msg)
		return
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName, _, _ = strings.Cut(req.Email, "@")
	}

	user, err := a.users.CreateUser(r.Context(), req.Email, req.Password, displayName, models.RoleEditor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !a.startSession(w, r, user) {
		return
	}

	slog.Info("user signed up", "user_id", user.ID, "email", user.Email)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "user": newUserResponse(user)})
}

// Login verifies credentials and starts a session.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		badRequest(w, "Email and password are required")
		return
	}

	user, err := a.users.FindUserByEmail(r.Context(), email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil || !store.CheckPassword(user, req.Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
		return
	}
	if !a.startSession(w, r, user) {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": newUserResponse(user)})
}

// Logout destroys the current session.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type sessionUser struct {
	UserID       uuid.UUID   `json:"userId"`
	Email        string      `json:"email"`
	Role         models.Role `json:"role"`
	LastActivity time.Time   `json:"lastActivity"`
}

// Session reports whether the request carries a valid session.
func (a *Auth) Session(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": false,
			"message":       "No valid session",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": sessionUser{
			UserID:       sess.UserID,
			Email:        sess.Email,
			Role:         sess.Role,
			LastActivity: sess.LastActivity,
		},
	})
}

func (a *Auth) startSession(w http.ResponseWriter, r *http.Request, user *models.User) bool {
	_, err := a.sessions.Create(r.Context(), w, &session.Data{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		writeError(w, r, err)
		return false
	}
	return true
}
