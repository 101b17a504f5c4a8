// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package editor

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"handbook/internal/apperr"
	"handbook/internal/models"
	"handbook/internal/repository"
	"handbook/internal/store"
)

// CategoryFields carries the editable category fields. Empty strings and
// nil pointers keep the current value on update.
type CategoryFields struct {
	Slug         string
	SidebarLabel string
	Position     *int
	Description  *string
}

// Listing is the content of one category level.
type Listing struct {
	Category   *models.Category
	Categories []models.Category
	Documents  []models.Document
}

// List returns the sub-categories and documents directly under path as the
// actor sees them.
func (s *Service) List(ctx context.Context, actor Actor, path string) (*Listing, error) {
	branchID, err := s.viewBranch(ctx, actor)
	if err != nil {
		return nil, err
	}
	current, err := resolveCategoryPath(ctx, s.store, path, branchID)
	if err != nil {
		return nil, err
	}
	parent := lineageOf(current)

	listing := &Listing{Category: current}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cats, err := s.store.ListVisibleCategories(gctx, parent, branchID)
		listing.Categories = cats
		return err
	})
	g.Go(func() error {
		docs, err := s.store.ListVisibleDocuments(gctx, parent, branchID)
		listing.Documents = docs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return listing, nil
}

// Folders returns every visible category nested by parent.
func (s *Service) Folders(ctx context.Context, actor Actor) ([]models.Category, error) {
	branchID, err := s.viewBranch(ctx, actor)
	if err != nil {
		return nil, err
	}
	flat, err := s.store.ListAllVisibleCategories(ctx, branchID)
	if err != nil {
		return nil, err
	}
	return store.BuildTree(flat), nil
}

// GetCategory resolves a category by its slug path.
func (s *Service) GetCategory(ctx context.Context, actor Actor, path string) (*models.Category, error) {
	if len(strings.Trim(path, "/ ")) == 0 {
		return nil, apperr.Validationf("slug is required")
	}
	branchID, err := s.viewBranch(ctx, actor)
	if err != nil {
		return nil, err
	}
	return resolveCategoryPath(ctx, s.store, path, branchID)
}

// CreateCategory adds a draft category under parentPath.
func (s *Service) CreateCategory(ctx context.Context, actor Actor, parentPath string, f CategoryFields) (*models.Category, error) {
	if err := normalizeSlug(&f.Slug); err != nil {
		return nil, err
	}
	if strings.TrimSpace(f.SidebarLabel) == "" {
		return nil, apperr.Validationf("sidebarLabel is required")
	}

	var created *models.Category
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		branch, err := s.activeBranch(ctx, tx, actor)
		if err != nil {
			return err
		}
		parent, err := resolveCategoryPath(ctx, tx, parentPath, &branch.ID)
		if err != nil {
			return err
		}
		parentID := lineageOf(parent)
		if err := ensureCategorySlugFree(ctx, tx, parentID, f.Slug, &branch.ID, uuid.Nil); err != nil {
			return err
		}

		position := f.Position
		if position == nil {
			siblings, err := tx.ListVisibleCategories(ctx, parentID, &branch.ID)
			if err != nil {
				return err
			}
			next := len(siblings) + 1
			position = &next
		}

		created, err = tx.InsertCategory(ctx, &models.Category{
			LineageID:    uuid.New(),
			Slug:         f.Slug,
			SidebarLabel: f.SidebarLabel,
			Position:     *position,
			Description:  orString(f.Description, ""),
			ParentID:     parentID,
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

// UpdateCategory retires the category at originalPath and inserts a new
// draft version carrying forward every field f leaves unset.
func (s *Service) UpdateCategory(ctx context.Context, actor Actor, originalPath string, f CategoryFields) (*models.Category, error) {
	if len(strings.Trim(originalPath, "/ ")) == 0 {
		return nil, apperr.Validationf("originalSlug is required")
	}
	if f.Slug != "" {
		if err := normalizeSlug(&f.Slug); err != nil {
			return nil, err
		}
	}

	var updated *models.Category
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		branch, err := s.activeBranch(ctx, tx, actor)
		if err != nil {
			return err
		}
		existing, err := resolveCategoryPath(ctx, tx, originalPath, &branch.ID)
		if err != nil {
			return err
		}

		newSlug := orNonEmpty(f.Slug, existing.Slug)
		if newSlug != existing.Slug {
			if err := ensureCategorySlugFree(ctx, tx, existing.ParentID, newSlug, &branch.ID, existing.LineageID); err != nil {
				return err
			}
		}

		if err := tx.RetireCategory(ctx, existing.ID, branch.ID); err != nil {
			return err
		}
		updated, err = tx.InsertCategory(ctx, &models.Category{
			LineageID:    existing.LineageID,
			Slug:         newSlug,
			SidebarLabel: orNonEmpty(f.SidebarLabel, existing.SidebarLabel),
			Position:     orInt(f.Position, existing.Position),
			Description:  orString(f.Description, existing.Description),
			ParentID:     existing.ParentID,
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

// DeleteCategory soft-deletes the category at path. Categories that still
// hold sub-categories or documents cannot be deleted.
func (s *Service) DeleteCategory(ctx context.Context, actor Actor, path string) error {
	if len(strings.Trim(path, "/ ")) == 0 {
		return apperr.Validationf("slug is required")
	}
	return s.store.InTx(ctx, func(tx repository.Tx) error {
		branch, err := s.activeBranch(ctx, tx, actor)
		if err != nil {
			return err
		}
		existing, err := resolveCategoryPath(ctx, tx, path, &branch.ID)
		if err != nil {
			return err
		}
		n, err := tx.CountCategoryChildren(ctx, existing.LineageID, &branch.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflictf("category %q is not empty", existing.Slug)
		}
		return tx.RetireCategory(ctx, existing.ID, branch.ID)
	})
}

// ensureCategorySlugFree rejects slug when another live category of a
// different lineage already uses it under parent.
func ensureCategorySlugFree(ctx context.Context, tx repository.Tx, parent *uuid.UUID, slug string, branchID *int64, self uuid.UUID) error {
	other, err := tx.FindVisibleCategory(ctx, parent, slug, branchID)
	if err != nil {
		return err
	}
	if other != nil && other.LineageID != self {
		return apperr.Conflictf("slug %q is already in use", slug)
	}
	return nil
}
