// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"handbook/internal/apperr"
	"handbook/internal/models"
)

// PullRequestStore persists pull requests with their items and reviewers.
type PullRequestStore struct {
	q Querier
}

// NewPullRequestStore returns a new PullRequestStore.
func NewPullRequestStore(q Querier) *PullRequestStore {
	return &PullRequestStore{q: q}
}

const pullRequestColumns = `id, user_branch_id, title, description, status, pr_url, created_by, created_at, updated_at`

func scanPullRequest(scanner interface{ Scan(...any) error }) (*models.PullRequest, error) {
	var pr models.PullRequest
	err := scanner.Scan(
		&pr.ID, &pr.UserBranchID, &pr.Title, &pr.Description, &pr.Status,
		&pr.PRURL, &pr.CreatedBy, &pr.CreatedAt, &pr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

// InsertPullRequest stores pr, its items and its reviewers. Run it inside a
// transaction so a failure leaves no partial record.
func (s *PullRequestStore) InsertPullRequest(ctx context.Context, pr *models.PullRequest) (*models.PullRequest, error) {
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO pull_requests (user_branch_id, title, description, status, pr_url, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+pullRequestColumns,
		pr.UserBranchID, pr.Title, pr.Description, pr.Status, pr.PRURL, pr.CreatedBy,
	)
	created, err := scanPullRequest(row)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return nil, apperr.Conflictf("branch %d already has a pull request", pr.UserBranchID)
	}
	if err != nil {
		return nil, fmt.Errorf("insert pull request: %w", err)
	}

	for _, item := range pr.Items {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO pull_request_items (pull_request_id, item_id, item_type)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, created.ID, item.ID, item.Type)
		if err != nil {
			return nil, fmt.Errorf("insert pull request item %s/%d: %w", item.Type, item.ID, err)
		}
	}
	for _, rv := range pr.Reviewers {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO pull_request_reviewers (pull_request_id, email, user_id)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, created.ID, rv.Email, rv.UserID)
		if err != nil {
			return nil, fmt.Errorf("insert pull request reviewer: %w", err)
		}
	}

	created.Items = pr.Items
	created.Reviewers = pr.Reviewers
	return created, nil
}

// FindPullRequest loads a pull request with items and reviewers. Returns
// nil if not found.
func (s *PullRequestStore) FindPullRequest(ctx context.Context, id int64) (*models.PullRequest, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+pullRequestColumns+` FROM pull_requests WHERE id = $1`, id)
	pr, err := scanPullRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find pull request: %w", err)
	}

	items, err := s.q.QueryContext(ctx, `
		SELECT item_id, item_type FROM pull_request_items
		WHERE pull_request_id = $1 ORDER BY item_type, item_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list pull request items: %w", err)
	}
	defer items.Close()
	for items.Next() {
		var it models.PullRequestItem
		if err := items.Scan(&it.ID, &it.Type); err != nil {
			return nil, fmt.Errorf("scan pull request item: %w", err)
		}
		pr.Items = append(pr.Items, it)
	}
	if err := items.Err(); err != nil {
		return nil, err
	}
	items.Close()

	reviewers, err := s.q.QueryContext(ctx, `
		SELECT email, user_id FROM pull_request_reviewers
		WHERE pull_request_id = $1 ORDER BY email
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list pull request reviewers: %w", err)
	}
	defer reviewers.Close()
	for reviewers.Next() {
		var rv models.Reviewer
		if err := reviewers.Scan(&rv.Email, &rv.UserID); err != nil {
			return nil, fmt.Errorf("scan pull request reviewer: %w", err)
		}
		pr.Reviewers = append(pr.Reviewers, rv)
	}
	return pr, reviewers.Err()
}

// SetPullRequestState updates the review state.
func (s *PullRequestStore) SetPullRequestState(ctx context.Context, id int64, state models.PullRequestState) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE pull_requests SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, state)
	if err != nil {
		return fmt.Errorf("set pull request state: %w", err)
	}
	return nil
}

// CountMergeConflicts counts live rows of the branch whose slug collides
// with a live merged row of a different lineage at the same level.
func (s *PullRequestStore) CountMergeConflicts(ctx context.Context, branchID int64) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM document_categories d
			 JOIN document_categories m
			   ON m.parent_id IS NOT DISTINCT FROM d.parent_id AND m.slug = d.slug
			 WHERE d.user_branch_id = $1 AND NOT d.is_deleted
			   AND m.status = 'merged' AND NOT m.is_deleted
			   AND m.lineage_id <> d.lineage_id) +
			(SELECT COUNT(*) FROM document_versions d
			 JOIN document_versions m
			   ON m.category_id IS NOT DISTINCT FROM d.category_id AND m.slug = d.slug
			 WHERE d.user_branch_id = $1 AND NOT d.is_deleted
			   AND m.status = 'merged' AND NOT m.is_deleted
			   AND m.lineage_id <> d.lineage_id)
	`, branchID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count merge conflicts: %w", err)
	}
	return n, nil
}
