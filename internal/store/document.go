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

// DocumentStore manages document_versions.
type DocumentStore struct {
	q Querier
}

// NewDocumentStore returns a new DocumentStore.
func NewDocumentStore(q Querier) *DocumentStore {
	return &DocumentStore{q: q}
}

const documentColumns = `id, lineage_id, slug, sidebar_label, file_order, content, is_public, category_id,
	status, user_branch_id, is_deleted, retired_by_branch_id, last_edited_by, created_at, updated_at`

func scanDocument(scanner interface{ Scan(...any) error }) (*models.Document, error) {
	var d models.Document
	err := scanner.Scan(
		&d.ID, &d.LineageID, &d.Slug, &d.SidebarLabel, &d.FileOrder, &d.Content, &d.IsPublic,
		&d.CategoryID, &d.Status, &d.UserBranchID, &d.IsDeleted, &d.RetiredByBranchID,
		&d.LastEditedBy, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DocumentStore) list(ctx context.Context, op, query string, args ...any) ([]models.Document, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := []models.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, *d)
	}
	return items, rows.Err()
}

// FindVisibleDocument returns the visible document with slug inside
// category, preferring the caller's draft. Returns nil if not found.
func (s *DocumentStore) FindVisibleDocument(ctx context.Context, category *uuid.UUID, slug string, branchID *int64) (*models.Document, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM document_versions
		WHERE category_id IS NOT DISTINCT FROM $1 AND slug = $2 AND `+visible(3)+`
		ORDER BY (status = 'draft') DESC, id DESC
		LIMIT 1
	`, category, slug, branchID)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return d, nil
}

// ListVisibleDocuments returns visible documents in category ordered by
// file_order.
func (s *DocumentStore) ListVisibleDocuments(ctx context.Context, category *uuid.UUID, branchID *int64) ([]models.Document, error) {
	return s.list(ctx, "list documents", `
		SELECT `+documentColumns+` FROM document_versions
		WHERE category_id IS NOT DISTINCT FROM $1 AND `+visible(2)+`
		ORDER BY file_order, id
	`, category, branchID)
}

// InsertDocument inserts a new document version and returns it.
func (s *DocumentStore) InsertDocument(ctx context.Context, d *models.Document) (*models.Document, error) {
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO document_versions (
			lineage_id, slug, sidebar_label, file_order, content, is_public,
			category_id, status, user_branch_id, last_edited_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+documentColumns,
		d.LineageID, d.Slug, d.SidebarLabel, d.FileOrder, d.Content, d.IsPublic,
		d.CategoryID, d.Status, d.UserBranchID, d.LastEditedBy,
	)
	result, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return result, nil
}

// RetireDocument soft-deletes a live row on behalf of branchID.
func (s *DocumentStore) RetireDocument(ctx context.Context, id, branchID int64) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE document_versions
		SET is_deleted = TRUE, retired_by_branch_id = $2, updated_at = NOW()
		WHERE id = $1 AND NOT is_deleted
	`, id, branchID)
	if err != nil {
		return fmt.Errorf("retire document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Conflictf("document was changed by another request")
	}
	return nil
}

// ListBranchDocuments returns the branch's live rows.
func (s *DocumentStore) ListBranchDocuments(ctx context.Context, branchID int64) ([]models.Document, error) {
	return s.list(ctx, "list branch documents", `
		SELECT `+documentColumns+` FROM document_versions
		WHERE user_branch_id = $1 AND NOT is_deleted
		ORDER BY id
	`, branchID)
}

// ListRetiredDocuments returns merged rows soft-deleted by the branch.
func (s *DocumentStore) ListRetiredDocuments(ctx context.Context, branchID int64) ([]models.Document, error) {
	return s.list(ctx, "list retired documents", `
		SELECT `+documentColumns+` FROM document_versions
		WHERE retired_by_branch_id = $1 AND status = 'merged'
		ORDER BY id
	`, branchID)
}

// ListBranchViewDocuments returns every document as branchID sees it.
func (s *DocumentStore) ListBranchViewDocuments(ctx context.Context, branchID *int64) ([]models.Document, error) {
	return s.list(ctx, "list branch view documents", `
		SELECT `+documentColumns+` FROM document_versions t
		WHERE `+branchView+`
		ORDER BY file_order, id
	`, branchID)
}

// SetBranchDocumentsStatus moves the branch's live rows to status. Merged
// rows are detached from the branch, including rows another branch has
// since retired, which become that branch's baseline.
func (s *DocumentStore) SetBranchDocumentsStatus(ctx context.Context, branchID int64, status models.Status) error {
	query := `UPDATE document_versions SET status = $2, updated_at = NOW()
		WHERE user_branch_id = $1 AND NOT is_deleted`
	if status == models.StatusMerged {
		query = `UPDATE document_versions SET status = $2, user_branch_id = NULL, updated_at = NOW()
			WHERE user_branch_id = $1
			  AND (NOT is_deleted OR retired_by_branch_id <> $1)`
	}
	if _, err := s.q.ExecContext(ctx, query, branchID, status); err != nil {
		return fmt.Errorf("set branch documents status: %w", err)
	}
	return nil
}
