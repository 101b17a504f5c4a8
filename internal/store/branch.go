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

	"handbook/internal/models"
)

// BranchStore manages user_branches.
type BranchStore struct {
	q Querier
}

// NewBranchStore returns a new BranchStore.
func NewBranchStore(q Querier) *BranchStore {
	return &BranchStore{q: q}
}

const branchColumns = `id, user_id, branch_name, is_active, pr_status, created_at, updated_at`

func scanBranch(scanner interface{ Scan(...any) error }) (*models.Branch, error) {
	var b models.Branch
	err := scanner.Scan(
		&b.ID, &b.UserID, &b.BranchName, &b.IsActive, &b.PRStatus,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// FindBranch retrieves a branch by ID. Returns nil if not found.
func (s *BranchStore) FindBranch(ctx context.Context, id int64) (*models.Branch, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+branchColumns+` FROM user_branches WHERE id = $1`, id)
	b, err := scanBranch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find branch: %w", err)
	}
	return b, nil
}

// FindOpenBranch returns the user's active, unsubmitted branch or nil.
func (s *BranchStore) FindOpenBranch(ctx context.Context, userID uuid.UUID) (*models.Branch, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+branchColumns+` FROM user_branches
		WHERE user_id = $1 AND is_active AND pr_status = 'none'
	`, userID)
	b, err := scanBranch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find open branch: %w", err)
	}
	return b, nil
}

// InsertOpenBranch creates an open branch for the user. When a concurrent
// request already created one, the partial unique index turns the insert
// into a no-op and (nil, nil) is returned.
func (s *BranchStore) InsertOpenBranch(ctx context.Context, userID uuid.UUID, name string) (*models.Branch, error) {
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO user_branches (user_id, branch_name, is_active, pr_status)
		VALUES ($1, $2, TRUE, 'none')
		ON CONFLICT (user_id) WHERE is_active AND pr_status = 'none' DO NOTHING
		RETURNING `+branchColumns,
		userID, name,
	)
	b, err := scanBranch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("insert branch: %w", err)
	}
	return b, nil
}

// SetBranchStatus updates pr_status and is_active.
func (s *BranchStore) SetBranchStatus(ctx context.Context, id int64, status models.PRStatus, active bool) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE user_branches SET pr_status = $2, is_active = $3, updated_at = NOW()
		WHERE id = $1
	`, id, status, active)
	if err != nil {
		return fmt.Errorf("set branch status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set branch status: branch %d not found", id)
	}
	return nil
}
