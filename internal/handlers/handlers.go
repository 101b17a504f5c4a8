// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON HTTP handlers of the handbook admin
// API. Handlers are grouped by concern (auth, editor) and receive their
// dependencies through the handler struct.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"handbook/internal/apperr"
	"handbook/internal/editor"
	"handbook/internal/middleware"
	"handbook/internal/models"
)

// maxBodyBytes caps request bodies; documents are the largest payload.
const maxBodyBytes = 2 << 20

// Workflow is the editor service as used by the HTTP layer.
type Workflow interface {
	List(ctx context.Context, actor editor.Actor, path string) (*editor.Listing, error)
	Folders(ctx context.Context, actor editor.Actor) ([]models.Category, error)
	GetCategory(ctx context.Context, actor editor.Actor, path string) (*models.Category, error)
	CreateCategory(ctx context.Context, actor editor.Actor, parentPath string, f editor.CategoryFields) (*models.Category, error)
	UpdateCategory(ctx context.Context, actor editor.Actor, originalPath string, f editor.CategoryFields) (*models.Category, error)
	DeleteCategory(ctx context.Context, actor editor.Actor, path string) error

	GetDocument(ctx context.Context, actor editor.Actor, categoryPath, slug string) (*editor.DocumentView, error)
	CreateDocument(ctx context.Context, actor editor.Actor, categoryPath string, f editor.DocumentFields) (*models.Document, error)
	UpdateDocument(ctx context.Context, actor editor.Actor, categoryPath, originalSlug string, f editor.DocumentFields) (*models.Document, error)
	DeleteDocument(ctx context.Context, actor editor.Actor, categoryPath, slug string) error

	ComputeDiff(ctx context.Context, actor editor.Actor, branchID int64) (*editor.BranchDiff, error)
	HasDiff(ctx context.Context, actor editor.Actor) (bool, *models.Branch, error)
	Submit(ctx context.Context, actor editor.Actor, req editor.SubmitRequest) (*models.PullRequest, error)
	Merge(ctx context.Context, actor editor.Actor, prID int64) (*models.PullRequest, error)
	Reviewers(ctx context.Context, emailFilter string) ([]models.User, error)
}

var _ Workflow = (*editor.Service)(nil)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps err to its HTTP status and writes {"error": msg}.
// Internal errors are logged and replaced by a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := apperr.Public(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// badRequest writes a 400 with msg.
func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// decodeJSON reads a JSON body into dst. Failures are reported as 400s
// and false is returned.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		badRequest(w, "Request body is required")
	case errors.As(err, &maxErr):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "Request body is too large"})
	default:
		badRequest(w, "Malformed JSON body")
	}
	return false
}

// actorFrom builds the editor actor from the loaded session. RequireAuth
// guarantees a session on every route that calls it.
func actorFrom(r *http.Request) editor.Actor {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		return editor.Actor{}
	}
	return editor.Actor{ID: sess.UserID, Email: sess.Email, Role: sess.Role}
}
