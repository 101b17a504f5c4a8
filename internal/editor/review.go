// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package editor

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"handbook/internal/apperr"
	"handbook/internal/diff"
	"handbook/internal/email"
	"handbook/internal/gitrepo"
	"handbook/internal/models"
	"handbook/internal/repository"
)

// BranchDiff is a branch's draft rows, the published rows they replace and
// the field-level comparison between the two.
type BranchDiff struct {
	Branch             *models.Branch
	Categories         []models.Category
	Documents          []models.Document
	OriginalCategories []models.Category
	OriginalDocuments  []models.Document
	Result             diff.Result
}

// ComputeDiff compares the branch's drafts with the published rows they
// retire. Only the branch owner may read it.
func (s *Service) ComputeDiff(ctx context.Context, actor Actor, branchID int64) (*BranchDiff, error) {
	branch, err := s.store.FindBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if branch == nil || branch.UserID != actor.ID {
		return nil, apperr.NotFoundf("branch %d not found", branchID)
	}
	return s.branchDiff(ctx, branch)
}

// HasDiff reports whether the actor's open branch has any change. The
// branch is nil when the actor has none.
func (s *Service) HasDiff(ctx context.Context, actor Actor) (bool, *models.Branch, error) {
	branch, err := s.store.FindOpenBranch(ctx, actor.ID)
	if err != nil || branch == nil {
		return false, nil, err
	}
	d, err := s.branchDiff(ctx, branch)
	if err != nil {
		return false, nil, err
	}
	return !d.Result.Empty(), branch, nil
}

func (s *Service) branchDiff(ctx context.Context, branch *models.Branch) (*BranchDiff, error) {
	d := &BranchDiff{
		Branch:             branch,
		Categories:         []models.Category{},
		Documents:          []models.Document{},
		OriginalCategories: []models.Category{},
		OriginalDocuments:  []models.Document{},
	}
	// A merged branch owns no drafts any more; its retirements are history.
	if branch.PRStatus == models.PRStatusMerged {
		d.Result = diff.Compute(nil, nil, nil, nil)
		return d, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Categories, err = s.store.ListBranchCategories(gctx, branch.ID)
		return err
	})
	g.Go(func() (err error) {
		d.OriginalCategories, err = s.store.ListRetiredCategories(gctx, branch.ID)
		return err
	})
	g.Go(func() (err error) {
		d.Documents, err = s.store.ListBranchDocuments(gctx, branch.ID)
		return err
	})
	g.Go(func() (err error) {
		d.OriginalDocuments, err = s.store.ListRetiredDocuments(gctx, branch.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.Result = diff.Compute(d.Categories, d.OriginalCategories, d.Documents, d.OriginalDocuments)
	return d, nil
}

// SubmitRequest is a pull request as entered by its author.
type SubmitRequest struct {
	BranchID    int64
	Title       string
	Description string
	Items       []models.PullRequestItem
	Reviewers   []string
}

// Submit packages the branch into a pull request: the branch snapshot is
// committed to the content repository, the pull request is recorded and
// the branch's drafts become pushed. Reviewers are notified best-effort.
func (s *Service) Submit(ctx context.Context, actor Actor, req SubmitRequest) (*models.PullRequest, error) {
	if len(req.Items) == 0 {
		return nil, apperr.Validationf("no changes to submit")
	}
	for _, item := range req.Items {
		if !item.Type.Valid() || item.ID <= 0 {
			return nil, apperr.Validationf("invalid diff item %s/%d", item.Type, item.ID)
		}
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.Validationf("title is required")
	}

	branch, err := s.store.FindBranch(ctx, req.BranchID)
	if err != nil {
		return nil, err
	}
	if branch == nil || branch.UserID != actor.ID {
		return nil, apperr.NotFoundf("branch %d not found", req.BranchID)
	}
	if !branch.IsOpen() {
		return nil, apperr.Conflictf("branch %d was already submitted", branch.ID)
	}

	release, err := s.lock(ctx, fmt.Sprintf("submit:%d", branch.ID))
	if err != nil {
		return nil, err
	}
	defer release()

	files, err := s.exportView(ctx, s.store, &branch.ID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.EnsureBranch(ctx, branch.BranchName); err != nil {
		return nil, fmt.Errorf("ensure branch %s: %w", branch.BranchName, err)
	}
	commit, err := s.repo.CommitSnapshot(ctx, branch.BranchName, files, author(actor), title)
	if err != nil {
		return nil, fmt.Errorf("commit branch %s: %w", branch.BranchName, err)
	}

	reviewers := s.resolveReviewers(ctx, req.Reviewers)

	var pr *models.PullRequest
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		current, err := tx.FindBranch(ctx, branch.ID)
		if err != nil {
			return err
		}
		if current == nil || !current.IsOpen() {
			return apperr.Conflictf("branch %d was already submitted", branch.ID)
		}

		pr, err = tx.InsertPullRequest(ctx, &models.PullRequest{
			UserBranchID: branch.ID,
			Title:        title,
			Description:  req.Description,
			Status:       models.PullRequestOpen,
			PRURL:        s.prURL(branch.BranchName),
			CreatedBy:    actor.ID,
			Items:        req.Items,
			Reviewers:    reviewers,
		})
		if err != nil {
			return err
		}
		if err := tx.SetBranchCategoriesStatus(ctx, branch.ID, models.StatusPushed); err != nil {
			return err
		}
		if err := tx.SetBranchDocumentsStatus(ctx, branch.ID, models.StatusPushed); err != nil {
			return err
		}
		return tx.SetBranchStatus(ctx, branch.ID, models.PRStatusPushed, true)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("pull request submitted",
		"pull_request_id", pr.ID, "branch", branch.BranchName, "commit", commit,
		"items", len(req.Items), "reviewers", len(reviewers))
	s.notify(ctx, actor, pr)
	return pr, nil
}

// Merge publishes a submitted branch. Only admins may merge.
func (s *Service) Merge(ctx context.Context, actor Actor, prID int64) (*models.PullRequest, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbiddenf("only admins can merge pull requests")
	}

	pr, err := s.store.FindPullRequest(ctx, prID)
	if err != nil {
		return nil, err
	}
	if pr == nil {
		return nil, apperr.NotFoundf("pull request %d not found", prID)
	}
	if pr.Status == models.PullRequestMerged {
		return nil, apperr.Conflictf("pull request %d is already merged", prID)
	}
	branch, err := s.store.FindBranch(ctx, pr.UserBranchID)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, fmt.Errorf("pull request %d references missing branch %d", pr.ID, pr.UserBranchID)
	}

	release, err := s.lock(ctx, fmt.Sprintf("merge:%d", pr.ID))
	if err != nil {
		return nil, err
	}
	defer release()

	var commit string
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		current, err := tx.FindPullRequest(ctx, pr.ID)
		if err != nil {
			return err
		}
		if current == nil || current.Status == models.PullRequestMerged {
			return apperr.Conflictf("pull request %d is already merged", pr.ID)
		}

		conflicts, err := tx.CountMergeConflicts(ctx, branch.ID)
		if err != nil {
			return err
		}
		if conflicts > 0 {
			return apperr.Conflictf("%d change(s) collide with slugs already published", conflicts)
		}

		if err := tx.SetBranchCategoriesStatus(ctx, branch.ID, models.StatusMerged); err != nil {
			return err
		}
		if err := tx.SetBranchDocumentsStatus(ctx, branch.ID, models.StatusMerged); err != nil {
			return err
		}
		if err := tx.SetBranchStatus(ctx, branch.ID, models.PRStatusMerged, false); err != nil {
			return err
		}
		if err := tx.SetPullRequestState(ctx, pr.ID, models.PullRequestMerged); err != nil {
			return err
		}

		// The published view read inside the transaction already includes
		// this branch's rows.
		files, err := s.exportView(ctx, tx, nil)
		if err != nil {
			return err
		}
		if err := s.repo.EnsureBranch(ctx, branch.BranchName); err != nil {
			return fmt.Errorf("ensure branch %s: %w", branch.BranchName, err)
		}
		commit, err = s.repo.MergeIntoMain(ctx, branch.BranchName, files, author(actor), "Merge "+branch.BranchName+": "+pr.Title)
		if err != nil {
			return fmt.Errorf("merge %s into %s: %w", branch.BranchName, gitrepo.MainBranch, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pr.Status = models.PullRequestMerged
	s.logger.Info("pull request merged", "pull_request_id", pr.ID, "branch", branch.BranchName, "commit", commit, "by", actor.Email)
	return pr, nil
}

// Reviewers lists users that can be picked as reviewers.
func (s *Service) Reviewers(ctx context.Context, emailFilter string) ([]models.User, error) {
	return s.store.ListUsers(ctx, strings.TrimSpace(emailFilter))
}

type viewReader interface {
	ListBranchViewCategories(ctx context.Context, branchID *int64) ([]models.Category, error)
	ListBranchViewDocuments(ctx context.Context, branchID *int64) ([]models.Document, error)
}

func (s *Service) exportView(ctx context.Context, r viewReader, branchID *int64) ([]gitrepo.File, error) {
	cats, err := r.ListBranchViewCategories(ctx, branchID)
	if err != nil {
		return nil, err
	}
	docs, err := r.ListBranchViewDocuments(ctx, branchID)
	if err != nil {
		return nil, err
	}
	return Export(cats, docs)
}

// resolveReviewers normalizes the addresses and links registered users.
// Lookup failures only drop the link.
func (s *Service) resolveReviewers(ctx context.Context, emails []string) []models.Reviewer {
	seen := make(map[string]bool, len(emails))
	reviewers := make([]models.Reviewer, 0, len(emails))
	for _, raw := range emails {
		addr := strings.ToLower(strings.TrimSpace(raw))
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true

		rv := models.Reviewer{Email: addr}
		u, err := s.store.FindUserByEmail(ctx, addr)
		switch {
		case err != nil:
			s.logger.Warn("resolve reviewer", "email", addr, "error", err)
		case u == nil:
			s.logger.Warn("reviewer is not a registered user", "email", addr)
		default:
			id := u.ID
			rv.UserID = &id
		}
		reviewers = append(reviewers, rv)
	}
	return reviewers
}

func (s *Service) notify(ctx context.Context, actor Actor, pr *models.PullRequest) {
	if s.notifier == nil || len(pr.Reviewers) == 0 {
		return
	}
	to := make([]string, 0, len(pr.Reviewers))
	for _, rv := range pr.Reviewers {
		to = append(to, rv.Email)
	}
	err := s.notifier.NotifyReviewers(ctx, email.ReviewRequest{
		Reviewers:   to,
		Author:      actor.Email,
		Title:       pr.Title,
		Description: pr.Description,
		URL:         pr.PRURL,
		Changes:     len(pr.Items),
	})
	if err != nil {
		s.logger.Warn("notify reviewers", "pull_request_id", pr.ID, "error", err)
	}
}

// lock takes key from the Locker. Without a Locker it is a no-op.
func (s *Service) lock(ctx context.Context, key string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, ok, err := s.locker.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflictf("another request is already processing this change")
	}
	return release, nil
}

func (s *Service) prURL(branchName string) string {
	if s.prBaseURL == "" {
		return branchName
	}
	return s.prBaseURL + "/" + branchName
}

func author(actor Actor) gitrepo.Author {
	name, _, _ := strings.Cut(actor.Email, "@")
	return gitrepo.Author{Name: name, Email: actor.Email}
}
