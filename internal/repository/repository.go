// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package repository declares the persistence contracts used by the editor
// workflow. The PostgreSQL implementation lives in internal/store.
//
// Visibility: a row is visible to a branch when it is not deleted and is
// either pushed/merged or a draft owned by that branch. A nil branch sees
// only pushed and merged rows.
package repository

import (
	"context"

	"github.com/google/uuid"

	"handbook/internal/models"
)

// Users reads and creates accounts.
type Users interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// ListUsers returns users whose e-mail contains emailFilter
	// (case-insensitive); an empty filter returns everyone.
	ListUsers(ctx context.Context, emailFilter string) ([]models.User, error)
	// CreateUser stores a new account with a bcrypt hash of password.
	CreateUser(ctx context.Context, email, password, displayName string, role models.Role) (*models.User, error)
}

// Branches manages user_branches.
type Branches interface {
	FindBranch(ctx context.Context, id int64) (*models.Branch, error)
	// FindOpenBranch returns the user's active branch with pr_status none.
	FindOpenBranch(ctx context.Context, userID uuid.UUID) (*models.Branch, error)
	// InsertOpenBranch inserts an open branch unless one already exists for
	// the user, in which case it returns (nil, nil).
	InsertOpenBranch(ctx context.Context, userID uuid.UUID, name string) (*models.Branch, error)
	SetBranchStatus(ctx context.Context, id int64, status models.PRStatus, active bool) error
}

// Categories manages document_categories versions.
type Categories interface {
	FindVisibleCategory(ctx context.Context, parent *uuid.UUID, slug string, branchID *int64) (*models.Category, error)
	ListVisibleCategories(ctx context.Context, parent *uuid.UUID, branchID *int64) ([]models.Category, error)
	ListAllVisibleCategories(ctx context.Context, branchID *int64) ([]models.Category, error)
	InsertCategory(ctx context.Context, c *models.Category) (*models.Category, error)
	// RetireCategory soft-deletes a row on behalf of a branch.
	RetireCategory(ctx context.Context, id, branchID int64) error
	// CountCategoryChildren counts live visible categories and documents
	// whose parent is the given lineage.
	CountCategoryChildren(ctx context.Context, lineage uuid.UUID, branchID *int64) (int, error)
	// ListBranchCategories returns the branch's live rows.
	ListBranchCategories(ctx context.Context, branchID int64) ([]models.Category, error)
	// ListRetiredCategories returns published rows the branch soft-deleted.
	ListRetiredCategories(ctx context.Context, branchID int64) ([]models.Category, error)
	// ListBranchViewCategories returns the handbook as the branch sees it:
	// merged rows that are live or were retired by another, still unmerged
	// branch, plus the branch's own live rows. A nil branch yields the
	// published handbook.
	ListBranchViewCategories(ctx context.Context, branchID *int64) ([]models.Category, error)
	SetBranchCategoriesStatus(ctx context.Context, branchID int64, status models.Status) error
}

// Documents manages document_versions versions.
type Documents interface {
	FindVisibleDocument(ctx context.Context, category *uuid.UUID, slug string, branchID *int64) (*models.Document, error)
	ListVisibleDocuments(ctx context.Context, category *uuid.UUID, branchID *int64) ([]models.Document, error)
	InsertDocument(ctx context.Context, d *models.Document) (*models.Document, error)
	RetireDocument(ctx context.Context, id, branchID int64) error
	ListBranchDocuments(ctx context.Context, branchID int64) ([]models.Document, error)
	ListRetiredDocuments(ctx context.Context, branchID int64) ([]models.Document, error)
	ListBranchViewDocuments(ctx context.Context, branchID *int64) ([]models.Document, error)
	SetBranchDocumentsStatus(ctx context.Context, branchID int64, status models.Status) error
}

// PullRequests persists submitted pull requests.
type PullRequests interface {
	// InsertPullRequest stores the pull request with its items and reviewers.
	InsertPullRequest(ctx context.Context, pr *models.PullRequest) (*models.PullRequest, error)
	FindPullRequest(ctx context.Context, id int64) (*models.PullRequest, error)
	SetPullRequestState(ctx context.Context, id int64, state models.PullRequestState) error
	// CountMergeConflicts counts the branch's live rows whose slug is
	// already taken at the same level by a published row of another
	// lineage.
	CountMergeConflicts(ctx context.Context, branchID int64) (int, error)
}

// Tx is the full set of repositories bound to one transaction.
type Tx interface {
	Users
	Branches
	Categories
	Documents
	PullRequests
}

// Store is a Tx that runs outside a transaction and can open one.
type Store interface {
	Tx
	// InTx runs fn in a transaction, committing when fn returns nil.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
