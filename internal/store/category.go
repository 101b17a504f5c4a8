// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"handbook/internal/apperr"
	"handbook/internal/models"
)

// CategoryStore manages document_categories versions.
type CategoryStore struct {
	q Querier
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(q Querier) *CategoryStore {
	return &CategoryStore{q: q}
}

const categoryColumns = `id, lineage_id, slug, sidebar_label, position, description, parent_id,
	status, user_branch_id, is_deleted, retired_by_branch_id, last_edited_by, created_at, updated_at`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.LineageID, &c.Slug, &c.SidebarLabel, &c.Position, &c.Description,
		&c.ParentID, &c.Status, &c.UserBranchID, &c.IsDeleted, &c.RetiredByBranchID,
		&c.LastEditedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CategoryStore) list(ctx context.Context, op, query string, args ...any) ([]models.Category, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// FindVisibleCategory resolves one path segment. The caller's own draft
// wins over pushed or merged rows with the same slug. Returns nil if not found.
func (s *CategoryStore) FindVisibleCategory(ctx context.Context, parent *uuid.UUID, slug string, branchID *int64) (*models.Category, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+categoryColumns+` FROM document_categories
		WHERE parent_id IS NOT DISTINCT FROM $1 AND slug = $2 AND `+visible(3)+`
		ORDER BY (status = 'draft') DESC, id DESC
		LIMIT 1
	`, parent, slug, branchID)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	return c, nil
}

// ListVisibleCategories returns the visible children of parent ordered by
// position.
func (s *CategoryStore) ListVisibleCategories(ctx context.Context, parent *uuid.UUID, branchID *int64) ([]models.Category, error) {
	return s.list(ctx, "list categories", `
		SELECT `+categoryColumns+` FROM document_categories
		WHERE parent_id IS NOT DISTINCT FROM $1 AND `+visible(2)+`
		ORDER BY position, id
	`, parent, branchID)
}

// ListAllVisibleCategories returns every visible category ordered by position.
func (s *CategoryStore) ListAllVisibleCategories(ctx context.Context, branchID *int64) ([]models.Category, error) {
	return s.list(ctx, "list all categories", `
		SELECT `+categoryColumns+` FROM document_categories
		WHERE `+visible(1)+`
		ORDER BY position, id
	`, branchID)
}

// InsertCategory inserts a new category version and returns it.
func (s *CategoryStore) InsertCategory(ctx context.Context, c *models.Category) (*models.Category, error) {
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO document_categories (
			lineage_id, slug, sidebar_label, position, description, parent_id,
			status, user_branch_id, last_edited_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+categoryColumns,
		c.LineageID, c.Slug, c.SidebarLabel, c.Position, c.Description, c.ParentID,
		c.Status, c.UserBranchID, c.LastEditedBy,
	)
	result, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	return result, nil
}

// RetireCategory soft-deletes a live row on behalf of branchID.
func (s *CategoryStore) RetireCategory(ctx context.Context, id, branchID int64) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE document_categories
		SET is_deleted = TRUE, retired_by_branch_id = $2, updated_at = NOW()
		WHERE id = $1 AND NOT is_deleted
	`, id, branchID)
	if err != nil {
		return fmt.Errorf("retire category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Conflictf("category was changed by another request")
	}
	return nil
}

// CountCategoryChildren counts visible sub-categories and documents.
func (s *CategoryStore) CountCategoryChildren(ctx context.Context, lineage uuid.UUID, branchID *int64) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM document_categories WHERE parent_id = $1 AND `+visible(2)+`) +
			(SELECT COUNT(*) FROM document_versions WHERE category_id = $1 AND `+visible(2)+`)
	`, lineage, branchID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count category children: %w", err)
	}
	return n, nil
}

// ListBranchCategories returns the branch's live rows.
func (s *CategoryStore) ListBranchCategories(ctx context.Context, branchID int64) ([]models.Category, error) {
	return s.list(ctx, "list branch categories", `
		SELECT `+categoryColumns+` FROM document_categories
		WHERE user_branch_id = $1 AND NOT is_deleted
		ORDER BY id
	`, branchID)
}

// ListRetiredCategories returns merged rows soft-deleted by the branch.
func (s *CategoryStore) ListRetiredCategories(ctx context.Context, branchID int64) ([]models.Category, error) {
	return s.list(ctx, "list retired categories", `
		SELECT `+categoryColumns+` FROM document_categories
		WHERE retired_by_branch_id = $1 AND status = 'merged'
		ORDER BY id
	`, branchID)
}

// ListBranchViewCategories returns the category tree as branchID sees it.
func (s *CategoryStore) ListBranchViewCategories(ctx context.Context, branchID *int64) ([]models.Category, error) {
	return s.list(ctx, "list branch view categories", `
		SELECT `+categoryColumns+` FROM document_categories t
		WHERE `+branchView+`
		ORDER BY position, id
	`, branchID)
}

// SetBranchCategoriesStatus moves the branch's live rows to status. Merged
// rows are detached from the branch, including rows another branch has
// since retired, which become that branch's baseline.
func (s *CategoryStore) SetBranchCategoriesStatus(ctx context.Context, branchID int64, status models.Status) error {
	query := `UPDATE document_categories SET status = $2, updated_at = NOW()
		WHERE user_branch_id = $1 AND NOT is_deleted`
	if status == models.StatusMerged {
		query = `UPDATE document_categories SET status = $2, user_branch_id = NULL, updated_at = NOW()
			WHERE user_branch_id = $1
			  AND (NOT is_deleted OR retired_by_branch_id <> $1)`
	}
	if _, err := s.q.ExecContext(ctx, query, branchID, status); err != nil {
		return fmt.Errorf("set branch categories status: %w", err)
	}
	return nil
}

// BuildTree nests a flat category list by parent lineage.
func BuildTree(flat []models.Category) []models.Category {
	return buildTree(flat, nil, 0)
}

// buildTree recursively builds a tree from a flat list.
func buildTree(flat []models.Category, parentID *uuid.UUID, depth int) []models.Category {
	result := []models.Category{}
	for _, c := range flat {
		if ptrEqual(c.ParentID, parentID) {
			lineage := c.LineageID
			c.Depth = depth
			c.Children = buildTree(flat, &lineage, depth+1)
			result = append(result, c)
		}
	}
	return result
}

// ptrEqual compares two *uuid.UUID for equality (both nil or same value).
func ptrEqual(a, b *uuid.UUID) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// FlattenTree walks a category tree depth-first with Depth set for
// indentation.
func FlattenTree(tree []models.Category) []models.Category {
	result := []models.Category{}
	flattenTree(tree, &result)
	return result
}

func flattenTree(cats []models.Category, result *[]models.Category) {
	for _, c := range cats {
		children := c.Children
		c.Children = nil
		*result = append(*result, c)
		if len(children) > 0 {
			flattenTree(children, result)
		}
	}
}
