// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package session provides cookie-based HTTP session management.
// Sessions are identified by a random cookie value and stored as JSON in a
// Backend: Valkey with native key expiry, or the PostgreSQL sessions table
// swept periodically.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"handbook/internal/models"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "sid"

	// DefaultTTL is how long a session lives without activity.
	DefaultTTL = 90 * 24 * time.Hour

	// touchInterval limits how often activity re-saves the session.
	touchInterval = 5 * time.Minute

	// idLength is the byte length of the random session ID (32 bytes = 64 hex chars).
	idLength = 32
)

// Data holds the session payload: the authenticated user's identity.
type Data struct {
	UserID       uuid.UUID   `json:"userId"`
	Email        string      `json:"email"`
	Role         models.Role `json:"role"`
	CreatedAt    time.Time   `json:"createdAt"`
	LastActivity time.Time   `json:"lastActivity"`
}

// IsAdmin reports whether the session belongs to an admin.
func (d *Data) IsAdmin() bool {
	return d.Role == models.RoleAdmin
}

// Backend persists session payloads by ID. Load returns nil, nil for a
// missing or expired session.
type Backend interface {
	Save(ctx context.Context, id string, data *Data, ttl time.Duration) error
	Load(ctx context.Context, id string) (*Data, error)
	Delete(ctx context.Context, id string) error
}

// Store manages the session lifecycle on top of a Backend.
type Store struct {
	backend Backend
	ttl     time.Duration
	secure  bool
	now     func() time.Time
}

// NewStore creates a session store. A zero ttl selects DefaultTTL. When
// secure is set, cookies are only sent over TLS.
func NewStore(backend Backend, ttl time.Duration, secure bool) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{backend: backend, ttl: ttl, secure: secure, now: time.Now}
}

// TTL returns the session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create generates a new session, persists it, and sets the session cookie
// on the response. Returns the session ID.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	now := s.now().UTC()
	data.CreatedAt = now
	data.LastActivity = now

	if err := s.backend.Save(ctx, id, data, s.ttl); err != nil {
		return "", fmt.Errorf("session store: %w", err)
	}

	http.SetCookie(w, s.cookie(id, int(s.ttl.Seconds())))
	return id, nil
}

// Get retrieves the session named by the request cookie. Returns nil if no
// valid session exists. Activity older than a few minutes is recorded and
// extends the session's lifetime, and the cookie is re-issued to match.
func (s *Store) Get(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	data, err := s.backend.Load(ctx, cookie.Value)
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	now := s.now().UTC()
	if now.Sub(data.LastActivity) >= touchInterval {
		data.LastActivity = now
		if err := s.backend.Save(ctx, cookie.Value, data, s.ttl); err != nil {
			return nil, fmt.Errorf("session touch: %w", err)
		}
		http.SetCookie(w, s.cookie(cookie.Value, int(s.ttl.Seconds())))
	}
	return data, nil
}

// Update replaces the session data without changing the session ID or
// cookie. Resets the TTL.
func (s *Store) Update(ctx context.Context, r *http.Request, data *Data) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return fmt.Errorf("session update: no cookie")
	}
	if err := s.backend.Save(ctx, cookie.Value, data, s.ttl); err != nil {
		return fmt.Errorf("session update: %w", err)
	}
	return nil
}

// Destroy removes the session and clears the cookie.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}

	// Expire the cookie even if the backend fails so the browser logs out.
	http.SetCookie(w, s.cookie("", -1))

	if err := s.backend.Delete(ctx, cookie.Value); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}
	return nil
}

func (s *Store) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// generateID creates a cryptographically random session identifier.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
