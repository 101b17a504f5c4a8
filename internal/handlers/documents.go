// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strings"

	"handbook/internal/editor"
	"handbook/internal/models"
	"handbook/internal/store"
)

// Editor groups the handbook editing, review and user lookup handlers.
type Editor struct {
	wf Workflow
}

// NewEditor creates the Editor handler group.
func NewEditor(wf Workflow) *Editor {
	return &Editor{wf: wf}
}

// --- Listing ---

type documentItem struct {
	SidebarLabel string        `json:"sidebarLabel"`
	Slug         string        `json:"slug"`
	IsPublic     bool          `json:"isPublic"`
	Status       models.Status `json:"status"`
	LastEditedBy string        `json:"lastEditedBy"`
	FileOrder    int           `json:"fileOrder"`
}

type categoryItem struct {
	Slug         string `json:"slug"`
	SidebarLabel string `json:"sidebarLabel"`
}

// ListDocuments returns the sub-categories and documents under ?slug=a/b.
func (e *Editor) ListDocuments(w http.ResponseWriter, r *http.Request) {
	listing, err := e.wf.List(r.Context(), actorFrom(r), r.URL.Query().Get("slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	docs := make([]documentItem, 0, len(listing.Documents))
	for _, d := range listing.Documents {
		docs = append(docs, documentItem{
			SidebarLabel: d.SidebarLabel,
			Slug:         d.Slug,
			IsPublic:     d.IsPublic,
			Status:       d.Status,
			LastEditedBy: d.LastEditedBy,
			FileOrder:    d.FileOrder,
		})
	}
	cats := make([]categoryItem, 0, len(listing.Categories))
	for _, c := range listing.Categories {
		cats = append(cats, categoryItem{Slug: c.Slug, SidebarLabel: c.SidebarLabel})
	}

	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "categories": cats})
}

type folderItem struct {
	ID           int64  `json:"id"`
	Slug         string `json:"slug"`
	SidebarLabel string `json:"sidebarLabel"`
	Path         string `json:"path"`
	Depth        int    `json:"depth"`
}

// Folders returns every visible category in tree order with its full path.
func (e *Editor) Folders(w http.ResponseWriter, r *http.Request) {
	tree, err := e.wf.Folders(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Parents precede their children in the flattened tree.
	paths := make(map[string]string)
	folders := []folderItem{}
	for _, c := range store.FlattenTree(tree) {
		path := c.Slug
		if c.ParentID != nil {
			path = paths[c.ParentID.String()] + "/" + c.Slug
		}
		paths[c.LineageID.String()] = path
		folders = append(folders, folderItem{
			ID:           c.ID,
			Slug:         c.Slug,
			SidebarLabel: c.SidebarLabel,
			Path:         path,
			Depth:        c.Depth,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

type categoryDetail struct {
	ID           int64         `json:"id"`
	Slug         string        `json:"slug"`
	SidebarLabel string        `json:"sidebarLabel"`
	Position     int           `json:"position"`
	Description  string        `json:"description"`
	Status       models.Status `json:"status"`
}

// CategoryBySlug returns one category addressed by ?slug=a/b.
func (e *Editor) CategoryBySlug(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(r.URL.Query().Get("slug"), "/")
	if path == "" {
		badRequest(w, "slug is required")
		return
	}

	c, err := e.wf.GetCategory(r.Context(), actorFrom(r), path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryDetail{
		ID:           c.ID,
		Slug:         c.Slug,
		SidebarLabel: c.SidebarLabel,
		Position:     c.Position,
		Description:  c.Description,
		Status:       c.Status,
	})
}

// --- Categories ---

type createFolderRequest struct {
	Slug         string   `json:"slug"`
	SidebarLabel string   `json:"sidebarLabel"`
	Position     *int     `json:"position"`
	Description  *string  `json:"description"`
	CategoryPath []string `json:"categoryPath"`
}

// CreateFolder creates a draft category under categoryPath.
func (e *Editor) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := validateCategory(req.Slug, req.SidebarLabel, deref(req.Description)); msg != "" {
		badRequest(w, msg)
		return
	}

	c, err := e.wf.CreateCategory(r.Context(), actorFrom(r), strings.Join(req.CategoryPath, "/"), editor.CategoryFields{
		Slug:         strings.TrimSpace(req.Slug),
		SidebarLabel: strings.TrimSpace(req.SidebarLabel),
		Position:     req.Position,
		Description:  req.Description,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMutation(w, http.StatusCreated, c.ID, c.Slug, c.SidebarLabel)
}

type updateCategoryRequest struct {
	OriginalSlug string  `json:"originalSlug"`
	Slug         string  `json:"slug"`
	SidebarLabel string  `json:"sidebarLabel"`
	Position     *int    `json:"position"`
	Description  *string `json:"description"`
}

// UpdateCategory replaces the category at originalSlug with a new draft.
func (e *Editor) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req updateCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	switch {
	case strings.TrimSpace(req.OriginalSlug) == "":
		badRequest(w, "originalSlug is required")
		return
	case strings.TrimSpace(req.Slug) == "":
		badRequest(w, "slug is required")
		return
	case strings.TrimSpace(req.SidebarLabel) == "":
		badRequest(w, "sidebarLabel is required")
		return
	}
	if msg := validateCategory(req.Slug, req.SidebarLabel, deref(req.Description)); msg != "" {
		badRequest(w, msg)
		return
	}

	c, err := e.wf.UpdateCategory(r.Context(), actorFrom(r), strings.Trim(req.OriginalSlug, "/"), editor.CategoryFields{
		Slug:         strings.TrimSpace(req.Slug),
		SidebarLabel: strings.TrimSpace(req.SidebarLabel),
		Position:     req.Position,
		Description:  req.Description,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMutation(w, http.StatusOK, c.ID, c.Slug, c.SidebarLabel)
}

type deleteRequest struct {
	Category string `json:"category"`
	Slug     string `json:"slug"`
}

// DeleteFolder soft-deletes the empty category at slug (a path).
func (e *Editor) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	path := strings.Trim(strings.TrimSpace(req.Slug), "/")
	if path == "" {
		badRequest(w, "slug is required")
		return
	}

	if err := e.wf.DeleteCategory(r.Context(), actorFrom(r), path); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// --- Documents ---

// GetDocument returns one document with its rendered preview.
func (e *Editor) GetDocument(w http.ResponseWriter, r *http.Request) {
	category, slug := splitDocumentPath(r.URL.Query().Get("category"), r.URL.Query().Get("slug"))
	if slug == "" {
		badRequest(w, "slug is required")
		return
	}

	view, err := e.wf.GetDocument(r.Context(), actorFrom(r), category, slug)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type documentRequest struct {
	Category     string  `json:"category"`
	OriginalSlug string  `json:"originalSlug"`
	Slug         string  `json:"slug"`
	Label        string  `json:"label"`
	Content      *string `json:"content"`
	IsPublic     *bool   `json:"isPublic"`
	FileOrder    *int    `json:"fileOrder"`
}

func (req documentRequest) fields() editor.DocumentFields {
	return editor.DocumentFields{
		Slug:         strings.TrimSpace(req.Slug),
		SidebarLabel: strings.TrimSpace(req.Label),
		FileOrder:    req.FileOrder,
		Content:      req.Content,
		IsPublic:     req.IsPublic,
	}
}

// CreateDocument creates a draft document in category.
func (e *Editor) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := validateDocument(req.Slug, req.Label, deref(req.Content)); msg != "" {
		badRequest(w, msg)
		return
	}

	d, err := e.wf.CreateDocument(r.Context(), actorFrom(r), strings.Trim(req.Category, "/"), req.fields())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMutation(w, http.StatusCreated, d.ID, d.Slug, d.SidebarLabel)
}

// UpdateDocument replaces the document at category/originalSlug with a
// new draft.
func (e *Editor) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	category, original := splitDocumentPath(req.Category, req.OriginalSlug)
	if original == "" {
		badRequest(w, "originalSlug is required")
		return
	}
	if msg := validateDocument(req.Slug, req.Label, deref(req.Content)); msg != "" {
		badRequest(w, msg)
		return
	}

	d, err := e.wf.UpdateDocument(r.Context(), actorFrom(r), category, original, req.fields())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMutation(w, http.StatusOK, d.ID, d.Slug, d.SidebarLabel)
}

// DeleteDocument soft-deletes the document at category/slug. The slug may
// carry the category path itself ("guides/setup/intro").
func (e *Editor) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	category, slug := splitDocumentPath(req.Category, req.Slug)
	if slug == "" {
		badRequest(w, "slug is required")
		return
	}

	if err := e.wf.DeleteDocument(r.Context(), actorFrom(r), category, slug); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// splitDocumentPath returns the category path and document slug. When no
// category is given, the last segment of slug is the document.
func splitDocumentPath(category, slug string) (string, string) {
	category = strings.Trim(strings.TrimSpace(category), "/")
	slug = strings.Trim(strings.TrimSpace(slug), "/")
	if category == "" {
		if i := strings.LastIndexByte(slug, '/'); i >= 0 {
			return slug[:i], slug[i+1:]
		}
	}
	return category, slug
}

func writeMutation(w http.ResponseWriter, status int, id int64, slug, label string) {
	writeJSON(w, status, map[string]any{
		"success": true,
		"id":      id,
		"slug":    slug,
		"label":   label,
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
