// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package editor implements the handbook editing workflow: every edit lands
// as a draft row on the caller's open branch, branches are reviewed through
// field-level diffs, submitted as pull requests and merged by an admin.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"handbook/internal/apperr"
	"handbook/internal/email"
	"handbook/internal/gitrepo"
	"handbook/internal/models"
	"handbook/internal/repository"
	"handbook/internal/slug"
)

// BranchPrefix namespaces user branches in the content repository.
const BranchPrefix = "edit/"

// ContentRepo mirrors the handbook as files under version control.
type ContentRepo interface {
	EnsureBranch(ctx context.Context, branch string) error
	CommitSnapshot(ctx context.Context, branch string, files []gitrepo.File, author gitrepo.Author, message string) (string, error)
	MergeIntoMain(ctx context.Context, branch string, files []gitrepo.File, author gitrepo.Author, message string) (string, error)
}

// Locker grants short exclusive locks across processes.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

// Notifier tells reviewers about a new pull request.
type Notifier interface {
	NotifyReviewers(ctx context.Context, req email.ReviewRequest) error
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID    uuid.UUID
	Email string
	Role  models.Role
}

// IsAdmin reports whether the actor may merge pull requests.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Deps are the collaborators of a Service. Locker and Notifier are optional.
type Deps struct {
	Store     repository.Store
	Repo      ContentRepo
	Locker    Locker
	Notifier  Notifier
	PRBaseURL string
	Logger    *slog.Logger
}

// Service runs editor operations.
type Service struct {
	store     repository.Store
	repo      ContentRepo
	locker    Locker
	notifier  Notifier
	prBaseURL string
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Service.
func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     d.Store,
		repo:      d.Repo,
		locker:    d.Locker,
		notifier:  d.Notifier,
		prBaseURL: strings.TrimRight(d.PRBaseURL, "/"),
		logger:    logger,
		now:       time.Now,
	}
}

// GetOrCreateActiveBranch returns the actor's open branch, creating it
// together with its content repository branch when none exists.
func (s *Service) GetOrCreateActiveBranch(ctx context.Context, actor Actor) (*models.Branch, error) {
	var branch *models.Branch
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		branch, err = s.activeBranch(ctx, tx, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	return branch, nil
}

// activeBranch resolves the open branch inside tx. Creation races are
// settled by the one-open-branch index: the loser re-reads the winner's row.
func (s *Service) activeBranch(ctx context.Context, tx repository.Tx, actor Actor) (*models.Branch, error) {
	branch, err := tx.FindOpenBranch(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if branch != nil {
		return branch, nil
	}

	name := branchName(actor.Email, s.now())
	branch, err = tx.InsertOpenBranch(ctx, actor.ID, name)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		branch, err = tx.FindOpenBranch(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if branch == nil {
			return nil, fmt.Errorf("open branch for user %s vanished after conflict", actor.ID)
		}
		return branch, nil
	}

	if err := s.repo.EnsureBranch(ctx, branch.BranchName); err != nil {
		return nil, fmt.Errorf("snapshot branch %s: %w", branch.BranchName, err)
	}
	s.logger.Info("branch created", "branch_id", branch.ID, "name", branch.BranchName, "user", actor.Email)
	return branch, nil
}

// viewBranch returns the id of the actor's open branch for read paths, or
// nil when the actor has none. Reads never create a branch.
func (s *Service) viewBranch(ctx context.Context, actor Actor) (*int64, error) {
	branch, err := s.store.FindOpenBranch(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, nil
	}
	return &branch.ID, nil
}

// branchName builds "edit/<user>-<utc timestamp>-<random>".
func branchName(emailAddr string, now time.Time) string {
	local, _, _ := strings.Cut(emailAddr, "@")
	user := slug.Generate(local)
	if user == "" {
		user = "user"
	}
	return fmt.Sprintf("%s%s-%s-%s", BranchPrefix, user, now.UTC().Format("20060102-150405"), uuid.NewString()[:8])
}

// resolveCategoryPath walks "a/b/c" segment by segment through the visible
// scope. An empty path is the root and yields nil.
func resolveCategoryPath(ctx context.Context, r repository.Categories, path string, branchID *int64) (*models.Category, error) {
	var (
		current *models.Category
		parent  *uuid.UUID
	)
	for _, segment := range slug.SplitPath(path) {
		c, err := r.FindVisibleCategory(ctx, parent, segment, branchID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, apperr.NotFoundf("category %q not found", path)
		}
		current = c
		parent = &c.LineageID
	}
	return current, nil
}

// lineageOf returns the lineage pointer used as parent_id/category_id.
func lineageOf(c *models.Category) *uuid.UUID {
	if c == nil {
		return nil
	}
	id := c.LineageID
	return &id
}

// normalizeSlug lower-cases *s in place and validates the result.
func normalizeSlug(s *string) error {
	*s = slug.Normalize(*s)
	if err := slug.Validate(*s); err != nil {
		return apperr.Validationf("%s", err.Error())
	}
	return nil
}

func orInt(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}

func orString(v *string, fallback string) string {
	if v != nil {
		return *v
	}
	return fallback
}

func orBool(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}

func orNonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
