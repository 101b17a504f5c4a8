// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"handbook/internal/apperr"
	"handbook/internal/diff"
	"handbook/internal/editor"
	"handbook/internal/models"
)

type diffResponse struct {
	Branch                     *models.Branch    `json:"user_branch"`
	DocumentVersions           []models.Document `json:"document_versions"`
	DocumentCategories         []models.Category `json:"document_categories"`
	OriginalDocumentVersions   []models.Document `json:"original_document_versions"`
	OriginalDocumentCategories []models.Category `json:"original_document_categories"`
	DiffData                   diff.Result       `json:"diff_data"`
}

// BranchDiff returns the caller's branch ?user_branch_id= with its
// field-level diff against the published handbook.
func (e *Editor) BranchDiff(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("user_branch_id")
	if raw == "" {
		badRequest(w, "user_branch_id is required")
		return
	}
	branchID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || branchID <= 0 {
		badRequest(w, "user_branch_id must be a positive integer")
		return
	}

	d, err := e.wf.ComputeDiff(r.Context(), actorFrom(r), branchID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, diffResponse{
		Branch:                     d.Branch,
		DocumentVersions:           nonNil(d.Documents),
		DocumentCategories:         nonNil(d.Categories),
		OriginalDocumentVersions:   nonNil(d.OriginalDocuments),
		OriginalDocumentCategories: nonNil(d.OriginalCategories),
		DiffData:                   d.Result,
	})
}

// HasDiff reports whether the caller's open branch changes anything.
func (e *Editor) HasDiff(w http.ResponseWriter, r *http.Request) {
	exists, branch, err := e.wf.HasDiff(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := map[string]any{"exists": exists}
	if branch != nil {
		resp["user_branch_id"] = branch.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

type pullRequestBody struct {
	UserBranchID int64                     `json:"user_branch_id"`
	Title        string                    `json:"title"`
	Description  string                    `json:"description"`
	DiffItems    *[]models.PullRequestItem `json:"diff_items"`
	Reviewers    []string                  `json:"reviewers"`
}

// CreatePullRequest submits a branch for review. Without user_branch_id
// the caller's open branch is used; without diff_items every changed
// entity of the branch is attached. An explicit empty diff_items is
// rejected.
func (e *Editor) CreatePullRequest(w http.ResponseWriter, r *http.Request) {
	var req pullRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := validatePullRequest(req.Title, req.Description); msg != "" {
		badRequest(w, msg)
		return
	}

	if req.DiffItems != nil && len(*req.DiffItems) == 0 {
		badRequest(w, "diff_items must not be empty")
		return
	}

	actor := actorFrom(r)
	if req.UserBranchID == 0 || req.DiffItems == nil {
		if err := e.fillFromDiff(r, actor, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	pr, err := e.wf.Submit(r.Context(), actor, editor.SubmitRequest{
		BranchID:    req.UserBranchID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Items:       *req.DiffItems,
		Reviewers:   req.Reviewers,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"id":      pr.ID,
		"pr_url":  pr.PRURL,
	})
}

func (e *Editor) fillFromDiff(r *http.Request, actor editor.Actor, req *pullRequestBody) error {
	if req.UserBranchID == 0 {
		_, branch, err := e.wf.HasDiff(r.Context(), actor)
		if err != nil {
			return err
		}
		if branch == nil {
			return apperr.NotFoundf("no open branch to submit")
		}
		req.UserBranchID = branch.ID
	}
	if req.DiffItems != nil {
		return nil
	}

	d, err := e.wf.ComputeDiff(r.Context(), actor, req.UserBranchID)
	if err != nil {
		return err
	}
	items := []models.PullRequestItem{}
	for _, entry := range d.Result.All() {
		items = append(items, models.PullRequestItem{ID: entry.ID, Type: entry.Type})
	}
	req.DiffItems = &items
	return nil
}

// MergePullRequest merges pull request {id} into the published handbook.
// Admin only.
func (e *Editor) MergePullRequest(w http.ResponseWriter, r *http.Request) {
	prID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || prID <= 0 {
		badRequest(w, "Invalid pull request id")
		return
	}

	pr, err := e.wf.Merge(r.Context(), actorFrom(r), prID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "pull_request": pr})
}

// Reviewers lists users whose e-mail contains ?email=.
func (e *Editor) Reviewers(w http.ResponseWriter, r *http.Request) {
	e.writeUsers(w, r, strings.TrimSpace(r.URL.Query().Get("email")))
}

// Users lists every registered user.
func (e *Editor) Users(w http.ResponseWriter, r *http.Request) {
	e.writeUsers(w, r, "")
}

func (e *Editor) writeUsers(w http.ResponseWriter, r *http.Request, filter string) {
	users, err := e.wf.Reviewers(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, newUserResponse(&users[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
