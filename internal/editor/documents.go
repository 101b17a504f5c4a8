// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package editor

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"handbook/internal/apperr"
	"handbook/internal/markdown"
	"handbook/internal/models"
	"handbook/internal/repository"
	"handbook/internal/slug"
)

// DocumentFields carries the editable document fields. Empty strings and
// nil pointers keep the current value on update.
type DocumentFields struct {
	Slug         string
	SidebarLabel string
	FileOrder    *int
	Content      *string
	IsPublic     *bool
}

// DocumentView is a document with its rendered preview.
type DocumentView struct {
	models.Document
	CategoryPath string `json:"category_path"`
	ContentHTML  string `json:"content_html"`
}

// GetDocument resolves a document by category path and slug.
func (s *Service) GetDocument(ctx context.Context, actor Actor, categoryPath, docSlug string) (*DocumentView, error) {
	if strings.TrimSpace(docSlug) == "" {
		return nil, apperr.Validationf("slug is required")
	}
	branchID, err := s.viewBranch(ctx, actor)
	if err != nil {
		return nil, err
	}
	doc, err := findDocument(ctx, s.store, categoryPath, docSlug, branchID)
	if err != nil {
		return nil, err
	}

	html, err := markdown.ToHTML(doc.Content)
	if err != nil {
		s.logger.Warn("render document preview", "document_id", doc.ID, "error", err)
	}
	return &DocumentView{
		Document:     *doc,
		CategoryPath: strings.Trim(categoryPath, "/"),
		ContentHTML:  html,
	}, nil
}

// CreateDocument adds a draft document under categoryPath.
func (s *Service) CreateDocument(ctx context.Context, actor Actor, categoryPath string, f DocumentFields) (*models.Document, error) {
	if err := normalizeSlug(&f.Slug); err != nil {
		return nil, err
	}
	if strings.TrimSpace(f.SidebarLabel) == "" {
		return nil, apperr.Validationf("label is required")
	}

	var created *models.Document
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		branch, err := s.activeBranch(ctx, tx, actor)
		if err != nil {
			return err
		}
		category, err := resolveCategoryPath(ctx, tx, categoryPath, &branch.ID)
		if err != nil {
			return err
		}
		categoryID := lineageOf(category)
		if err := ensureDocumentSlugFree(ctx, tx, categoryID, f.Slug, &branch.ID, uuid.Nil); err != nil {
			return err
		}

		fileOrder := f.FileOrder
		if fileOrder == nil {
			siblings, err := tx.ListVisibleDocuments(ctx, categoryID, &branch.ID)
			if err != nil {
				return err
			}
			next := len(siblings) + 1
			fileOrder = &next
		}

		created, err = tx.InsertDocument(ctx, &models.Document{
			LineageID:    uuid.New(),
			Slug:         f.Slug,
			SidebarLabel: f.SidebarLabel,
			FileOrder:    *fileOrder,
			Content:      orString(f.Content, ""),
			IsPublic:     orBool(f.IsPublic, false),
			CategoryID:   categoryID,
			Status:       models.StatusDraft,
			UserBranchID: &branch.ID,
			LastEditedBy: actor.Email,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateDocument retires the document and inserts a new draft version
// carrying forward every field f leaves unset.
func (s *Service) UpdateDocument(ctx context.Context, actor Actor, categoryPath, originalSlug string, f DocumentFields) (*models.Document, error) {
	if strings.TrimSpace(originalSlug) == "" {
		return nil, apperr.Validationf("originalSlug is required")
	}
	if f.Slug != "" {
		if err := normalizeSlug(&f.Slug); err != nil {
			return nil, err
		}
	}

	var updated *models.Document
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		branch, err := s.activeBranch(ctx, tx, actor)
		if err != nil {
			return err
		}
		existing, err := findDocument(ctx, tx, categoryPath, originalSlug, &branch.ID)
		if err != nil {
			return err
		}

		newSlug := orNonEmpty(f.Slug, existing.Slug)
		if newSlug != existing.Slug {
			if err := ensureDocumentSlugFree(ctx, tx, existing.CategoryID, newSlug, &branch.ID, existing.LineageID); err != nil {
				return err
			}
		}

		if err := tx.RetireDocument(ctx, existing.ID, branch.ID); err != nil {
			return err
		}
		updated, err = tx.InsertDocument(ctx, &models.Document{
			LineageID:    existing.LineageID,
			Slug:         newSlug,
			SidebarLabel: orNonEmpty(f.SidebarLabel, existing.SidebarLabel),
			FileOrder:    orInt(f.FileOrder, existing.FileOrder),
			Content:      orString(f.Content, existing.Content),
			IsPublic:     orBool(f.IsPublic, existing.IsPublic),
			CategoryID:   existing.CategoryID,
			Status:       models.StatusDraft,
			UserBranchID: &branch.ID,
			LastEditedBy: actor.Email,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteDocument soft-deletes a document.
func (s *Service) DeleteDocument(ctx context.Context, actor Actor, categoryPath, docSlug string) error {
	if strings.TrimSpace(docSlug) == "" {
		return apperr.Validationf("slug is required")
	}
	return s.store.InTx(ctx, func(tx repository.Tx) error {
		branch, err := s.activeBranch(ctx, tx, actor)
		if err != nil {
			return err
		}
		existing, err := findDocument(ctx, tx, categoryPath, docSlug, &branch.ID)
		if err != nil {
			return err
		}
		return tx.RetireDocument(ctx, existing.ID, branch.ID)
	})
}

type documentFinder interface {
	repository.Categories
	repository.Documents
}

func findDocument(ctx context.Context, r documentFinder, categoryPath, docSlug string, branchID *int64) (*models.Document, error) {
	category, err := resolveCategoryPath(ctx, r, categoryPath, branchID)
	if err != nil {
		return nil, err
	}
	doc, err := r.FindVisibleDocument(ctx, lineageOf(category), slug.Normalize(docSlug), branchID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperr.NotFoundf("document %q not found", docSlug)
	}
	return doc, nil
}

// ensureDocumentSlugFree rejects slug when another live document of a
// different lineage already uses it in category.
func ensureDocumentSlugFree(ctx context.Context, tx repository.Tx, category *uuid.UUID, slug string, branchID *int64, self uuid.UUID) error {
	other, err := tx.FindVisibleDocument(ctx, category, slug, branchID)
	if err != nil {
		return err
	}
	if other != nil && other.LineageID != self {
		return apperr.Conflictf("slug %q is already in use", slug)
	}
	return nil
}
