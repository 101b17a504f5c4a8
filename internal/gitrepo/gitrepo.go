// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package gitrepo mirrors the handbook into a git repository. main holds
// the published handbook; every user branch gets a git branch forked from
// main, and each commit replaces the branch tree with a full snapshot.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// MainBranch holds the published handbook.
const MainBranch = "main"

// ErrBranchNotFound is returned when a branch ref does not exist.
var ErrBranchNotFound = errors.New("branch not found")

// Author identifies who a commit is attributed to.
type Author struct {
	Name  string
	Email string
}

// File is one file of a snapshot, relative to the repository root.
type File struct {
	Path    string
	Content []byte
}

// Service owns a single working repository. All operations are serialized.
type Service struct {
	dir string
	mu  sync.Mutex
}

// New returns a Service for the repository at dir. Call Init before use.
func New(dir string) *Service {
	return &Service{dir: dir}
}

// Init opens the repository, creating it with an initial commit on main
// when dir does not contain one yet.
func (s *Service) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := git.PlainOpen(s.dir); err == nil {
		return nil
	} else if !errors.Is(err, git.ErrRepositoryNotExists) {
		return fmt.Errorf("open repo: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create repo dir: %w", err)
	}
	repo, err := git.PlainInit(s.dir, false)
	if err != nil {
		return fmt.Errorf("init repo: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	readme := "# Handbook\n\nThis repository is generated by the handbook admin API.\n"
	if err := os.WriteFile(filepath.Join(s.dir, "README.md"), []byte(readme), 0o644); err != nil {
		return fmt.Errorf("write readme: %w", err)
	}
	if _, err := worktree.Add("README.md"); err != nil {
		return fmt.Errorf("git add readme: %w", err)
	}
	hash, err := worktree.Commit("Initialize handbook", &git.CommitOptions{
		Author: signature(Author{Name: "Handbook", Email: "handbook@localhost"}),
	})
	if err != nil {
		return fmt.Errorf("commit initial content: %w", err)
	}

	mainRef := plumbing.NewBranchReferenceName(MainBranch)
	if err := repo.Storer.SetReference(plumbing.NewHashReference(mainRef, hash)); err != nil {
		return fmt.Errorf("set main branch ref: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, mainRef)); err != nil {
		return fmt.Errorf("set HEAD to main: %w", err)
	}
	if mainRef != plumbing.Master {
		_ = repo.Storer.RemoveReference(plumbing.Master)
	}
	return nil
}

// EnsureBranch creates branch from the current main head. An existing
// branch is left untouched.
func (s *Service) EnsureBranch(ctx context.Context, branch string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return fmt.Errorf("open repo: %w", err)
	}

	ref := plumbing.NewBranchReferenceName(branch)
	if _, err := repo.Reference(ref, true); err == nil {
		return nil
	}

	mainHead, err := repo.Reference(plumbing.NewBranchReferenceName(MainBranch), true)
	if err != nil {
		return fmt.Errorf("read main ref: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(ref, mainHead.Hash())); err != nil {
		return fmt.Errorf("create branch ref: %w", err)
	}
	return nil
}

// CommitSnapshot replaces the tree of branch with files and commits it.
// Returns the abbreviated commit hash.
func (s *Service) CommitSnapshot(ctx context.Context, branch string, files []File, author Author, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	if _, err := resolveBranch(repo, branch); err != nil {
		return "", err
	}

	hash, err := s.commit(repo, branch, files, author, message, nil)
	if err != nil {
		return "", err
	}
	return short(hash), nil
}

// MergeIntoMain commits files as the new main tree with both main and
// branch as parents.
func (s *Service) MergeIntoMain(ctx context.Context, branch string, files []File, author Author, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	source, err := resolveBranch(repo, branch)
	if err != nil {
		return "", err
	}
	target, err := resolveBranch(repo, MainBranch)
	if err != nil {
		return "", err
	}

	mergeMessage := fmt.Sprintf("%s\n\nmerge: source=%s target=%s actor=%s", message, branch, MainBranch, author.Email)
	hash, err := s.commit(repo, MainBranch, files, author, mergeMessage, []plumbing.Hash{target, source})
	if err != nil {
		return "", err
	}
	return short(hash), nil
}

// ReadFile returns the content of path at the head of branch.
func (s *Service) ReadFile(ctx context.Context, branch, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	commit, err := headCommit(repo, branch)
	if err != nil {
		return nil, err
	}
	file, err := commit.File(path)
	if err != nil {
		return nil, fmt.Errorf("load %s from %s: %w", path, branch, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// ListFiles returns the sorted file paths at the head of branch.
func (s *Service) ListFiles(ctx context.Context, branch string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	commit, err := headCommit(repo, branch)
	if err != nil {
		return nil, err
	}
	iter, err := commit.Files()
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	var paths []string
	err = iter.ForEach(func(f *object.File) error {
		paths = append(paths, f.Name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// ParentCount returns the number of parents of the head commit of branch.
func (s *Service) ParentCount(ctx context.Context, branch string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return 0, fmt.Errorf("open repo: %w", err)
	}
	commit, err := headCommit(repo, branch)
	if err != nil {
		return 0, err
	}
	return commit.NumParents(), nil
}

func (s *Service) commit(repo *git.Repository, branch string, files []File, author Author, message string, parents []plumbing.Hash) (plumbing.Hash, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("open worktree: %w", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Force:  true,
	}); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("checkout branch %s: %w", branch, err)
	}

	root := worktree.Filesystem.Root()
	if err := clearWorktree(root); err != nil {
		return plumbing.ZeroHash, err
	}
	for _, f := range files {
		if err := writeFile(root, f); err != nil {
			return plumbing.ZeroHash, err
		}
	}

	status, err := worktree.Status()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("worktree status: %w", err)
	}
	for path, st := range status {
		switch st.Worktree {
		case git.Unmodified:
		case git.Deleted:
			if _, err := worktree.Remove(path); err != nil {
				return plumbing.ZeroHash, fmt.Errorf("git rm %s: %w", path, err)
			}
		default:
			if _, err := worktree.Add(path); err != nil {
				return plumbing.ZeroHash, fmt.Errorf("git add %s: %w", path, err)
			}
		}
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author:            signature(author),
		Parents:           parents,
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit snapshot: %w", err)
	}
	return hash, nil
}

// clearWorktree removes everything under root except .git.
func clearWorktree(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("read worktree: %w", err)
	}
	for _, e := range entries {
		if e.Name() == ".git" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			return fmt.Errorf("clear worktree: %w", err)
		}
	}
	return nil
}

func writeFile(root string, f File) error {
	clean := filepath.Clean(filepath.FromSlash(f.Path))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") || strings.HasPrefix(clean, ".git") {
		return fmt.Errorf("invalid snapshot path %q", f.Path)
	}
	full := filepath.Join(root, clean)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", f.Path, err)
	}
	if err := os.WriteFile(full, f.Content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.Path, err)
	}
	return nil
}

func resolveBranch(repo *git.Repository, branch string) (plumbing.Hash, error) {
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
	}
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve branch %s: %w", branch, err)
	}
	return ref.Hash(), nil
}

func headCommit(repo *git.Repository, branch string) (*object.Commit, error) {
	hash, err := resolveBranch(repo, branch)
	if err != nil {
		return nil, err
	}
	commit, err := repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("load commit object: %w", err)
	}
	return commit, nil
}

func signature(a Author) *object.Signature {
	return &object.Signature{Name: a.Name, Email: a.Email, When: time.Now()}
}

func short(h plumbing.Hash) string {
	return h.String()[:7]
}
