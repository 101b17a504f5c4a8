// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides PostgreSQL access for all handbook entities.
// Each store struct wraps a Querier and exposes typed query methods; Repo
// bundles them and implements repository.Store.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"handbook/internal/repository"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repo bundles every store on one Querier.
type Repo struct {
	*UserStore
	*BranchStore
	*CategoryStore
	*DocumentStore
	*PullRequestStore

	db *sql.DB // nil when bound to a transaction
}

var _ repository.Store = (*Repo)(nil)

// NewRepo returns a Repo backed by the connection pool.
func NewRepo(db *sql.DB) *Repo {
	r := bind(db)
	r.db = db
	return r
}

func bind(q Querier) *Repo {
	return &Repo{
		UserStore:        NewUserStore(q),
		BranchStore:      NewBranchStore(q),
		CategoryStore:    NewCategoryStore(q),
		DocumentStore:    NewDocumentStore(q),
		PullRequestStore: NewPullRequestStore(q),
	}
}

// InTx runs fn inside a transaction. A Repo already bound to a transaction
// runs fn directly.
func (r *Repo) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if r.db == nil {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(bind(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// visible is the predicate for rows a branch may see. n is the placeholder
// index carrying the branch id (NULL for no branch).
func visible(n int) string {
	return fmt.Sprintf(`NOT is_deleted AND (status IN ('pushed', 'merged') OR (status = 'draft' AND user_branch_id = $%d))`, n)
}

// branchView selects merged rows that are live or were retired by another
// unmerged branch, plus the branch's own live rows. $1 is the branch id.
const branchView = `
	(t.status = 'merged' AND (NOT t.is_deleted OR EXISTS (
		SELECT 1 FROM user_branches b
		WHERE b.id = t.retired_by_branch_id
		  AND b.pr_status <> 'merged'
		  AND b.id IS DISTINCT FROM $1)))
	OR (t.user_branch_id = $1 AND NOT t.is_deleted)`
