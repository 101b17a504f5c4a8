// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package editor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"handbook/internal/apperr"
	"handbook/internal/email"
	"handbook/internal/gitrepo"
	"handbook/internal/models"
	"handbook/internal/repository"
)

// memStore is an in-memory repository.Store with the same visibility
// rules as the PostgreSQL implementation.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users    []models.User
	branches []models.Branch
	cats     []models.Category
	docs     []models.Document
	prs      []models.PullRequest
	nextID   int64

	failInsertDocument error
}

var _ repository.Store = (*memStore)(nil)

func newMemStore() *memStore { return &memStore{} }

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	saved := struct {
		users    []models.User
		branches []models.Branch
		cats     []models.Category
		docs     []models.Document
		prs      []models.PullRequest
		nextID   int64
	}{
		append([]models.User(nil), m.users...),
		append([]models.Branch(nil), m.branches...),
		append([]models.Category(nil), m.cats...),
		append([]models.Document(nil), m.docs...),
		append([]models.PullRequest(nil), m.prs...),
		m.nextID,
	}
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.users, m.branches, m.cats, m.docs, m.prs, m.nextID =
			saved.users, saved.branches, saved.cats, saved.docs, saved.prs, saved.nextID
		m.mu.Unlock()
		return err
	}
	return nil
}

// Users

func (m *memStore) FindUserByEmail(_ context.Context, addr string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == addr {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListUsers(_ context.Context, filter string) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.User{}
	for _, u := range m.users {
		if filter == "" || strings.Contains(strings.ToLower(u.Email), strings.ToLower(filter)) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *memStore) CreateUser(_ context.Context, addr, password, displayName string, role models.Role) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == addr {
			return nil, apperr.Conflictf("email %s is already registered", addr)
		}
	}
	u := models.User{ID: uuid.New(), Email: addr, PasswordHash: "plain:" + password, DisplayName: displayName, Role: role}
	m.users = append(m.users, u)
	return &u, nil
}

// Branches

func (m *memStore) FindBranch(_ context.Context, id int64) (*models.Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.branches {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindOpenBranch(_ context.Context, userID uuid.UUID) (*models.Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openBranch(userID), nil
}

func (m *memStore) openBranch(userID uuid.UUID) *models.Branch {
	for _, b := range m.branches {
		if b.UserID == userID && b.IsOpen() {
			return &b
		}
	}
	return nil
}

func (m *memStore) InsertOpenBranch(_ context.Context, userID uuid.UUID, name string) (*models.Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openBranch(userID) != nil {
		return nil, nil
	}
	b := models.Branch{ID: m.id(), UserID: userID, BranchName: name, IsActive: true, PRStatus: models.PRStatusNone, CreatedAt: time.Now()}
	m.branches = append(m.branches, b)
	return &b, nil
}

func (m *memStore) SetBranchStatus(_ context.Context, id int64, status models.PRStatus, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.branches {
		if m.branches[i].ID == id {
			m.branches[i].PRStatus = status
			m.branches[i].IsActive = active
			return nil
		}
	}
	return fmt.Errorf("branch %d not found", id)
}

// visibility helpers shared by both entity kinds

func visibleTo(status models.Status, owner *int64, deleted bool, branchID *int64) bool {
	if deleted {
		return false
	}
	if status == models.StatusPushed || status == models.StatusMerged {
		return true
	}
	return owner != nil && branchID != nil && *owner == *branchID
}

// statusTarget mirrors the SetBranch*Status filters: live rows always move,
// rows retired by another branch move only on merge.
func statusTarget(deleted bool, retiredBy *int64, branchID int64, status models.Status) bool {
	if !deleted {
		return true
	}
	return status == models.StatusMerged && retiredBy != nil && *retiredBy != branchID
}

func (m *memStore) inBranchView(status models.Status, owner *int64, deleted bool, retiredBy, branchID *int64) bool {
	if status == models.StatusMerged {
		if !deleted {
			return true
		}
		if retiredBy != nil && (branchID == nil || *retiredBy != *branchID) {
			for _, b := range m.branches {
				if b.ID == *retiredBy && b.PRStatus != models.PRStatusMerged {
					return true
				}
			}
		}
	}
	return !deleted && owner != nil && branchID != nil && *owner == *branchID
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func ownedBy(owner *int64, branchID int64) bool {
	return owner != nil && *owner == branchID
}

// Categories

func (m *memStore) FindVisibleCategory(_ context.Context, parent *uuid.UUID, slug string, branchID *int64) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.Category
	for i := range m.cats {
		c := m.cats[i]
		if !sameParent(c.ParentID, parent) || c.Slug != slug || !visibleTo(c.Status, c.UserBranchID, c.IsDeleted, branchID) {
			continue
		}
		if best == nil || (c.Status == models.StatusDraft && best.Status != models.StatusDraft) ||
			((c.Status == models.StatusDraft) == (best.Status == models.StatusDraft) && c.ID > best.ID) {
			cp := c
			best = &cp
		}
	}
	return best, nil
}

func sortCategories(cs []models.Category) []models.Category {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Position != cs[j].Position {
			return cs[i].Position < cs[j].Position
		}
		return cs[i].ID < cs[j].ID
	})
	return cs
}

func (m *memStore) filterCategories(keep func(models.Category) bool) []models.Category {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Category{}
	for _, c := range m.cats {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func (m *memStore) ListVisibleCategories(_ context.Context, parent *uuid.UUID, branchID *int64) ([]models.Category, error) {
	return sortCategories(m.filterCategories(func(c models.Category) bool {
		return sameParent(c.ParentID, parent) && visibleTo(c.Status, c.UserBranchID, c.IsDeleted, branchID)
	})), nil
}

func (m *memStore) ListAllVisibleCategories(_ context.Context, branchID *int64) ([]models.Category, error) {
	return sortCategories(m.filterCategories(func(c models.Category) bool {
		return visibleTo(c.Status, c.UserBranchID, c.IsDeleted, branchID)
	})), nil
}

func (m *memStore) InsertCategory(_ context.Context, c *models.Category) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := *c
	row.ID = m.id()
	row.CreatedAt = time.Now()
	row.UpdatedAt = row.CreatedAt
	m.cats = append(m.cats, row)
	return &row, nil
}

func (m *memStore) RetireCategory(_ context.Context, id, branchID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.cats {
		if m.cats[i].ID == id && !m.cats[i].IsDeleted {
			m.cats[i].IsDeleted = true
			m.cats[i].RetiredByBranchID = &branchID
			return nil
		}
	}
	return apperr.Conflictf("category was changed by another request")
}

func (m *memStore) CountCategoryChildren(_ context.Context, lineage uuid.UUID, branchID *int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.cats {
		if c.ParentID != nil && *c.ParentID == lineage && visibleTo(c.Status, c.UserBranchID, c.IsDeleted, branchID) {
			n++
		}
	}
	for _, d := range m.docs {
		if d.CategoryID != nil && *d.CategoryID == lineage && visibleTo(d.Status, d.UserBranchID, d.IsDeleted, branchID) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListBranchCategories(_ context.Context, branchID int64) ([]models.Category, error) {
	return m.filterCategories(func(c models.Category) bool {
		return ownedBy(c.UserBranchID, branchID) && !c.IsDeleted
	}), nil
}

func (m *memStore) ListRetiredCategories(_ context.Context, branchID int64) ([]models.Category, error) {
	return m.filterCategories(func(c models.Category) bool {
		return ownedBy(c.RetiredByBranchID, branchID) && c.Status == models.StatusMerged
	}), nil
}

func (m *memStore) ListBranchViewCategories(_ context.Context, branchID *int64) ([]models.Category, error) {
	return sortCategories(m.filterCategories(func(c models.Category) bool {
		return m.inBranchView(c.Status, c.UserBranchID, c.IsDeleted, c.RetiredByBranchID, branchID)
	})), nil
}

func (m *memStore) SetBranchCategoriesStatus(_ context.Context, branchID int64, status models.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.cats {
		c := &m.cats[i]
		if ownedBy(c.UserBranchID, branchID) && statusTarget(c.IsDeleted, c.RetiredByBranchID, branchID, status) {
			c.Status = status
			if status == models.StatusMerged {
				c.UserBranchID = nil
			}
		}
	}
	return nil
}

// Documents

func (m *memStore) FindVisibleDocument(_ context.Context, category *uuid.UUID, slug string, branchID *int64) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.Document
	for i := range m.docs {
		d := m.docs[i]
		if !sameParent(d.CategoryID, category) || d.Slug != slug || !visibleTo(d.Status, d.UserBranchID, d.IsDeleted, branchID) {
			continue
		}
		if best == nil || (d.Status == models.StatusDraft && best.Status != models.StatusDraft) ||
			((d.Status == models.StatusDraft) == (best.Status == models.StatusDraft) && d.ID > best.ID) {
			cp := d
			best = &cp
		}
	}
	return best, nil
}

func sortDocuments(ds []models.Document) []models.Document {
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].FileOrder != ds[j].FileOrder {
			return ds[i].FileOrder < ds[j].FileOrder
		}
		return ds[i].ID < ds[j].ID
	})
	return ds
}

func (m *memStore) filterDocuments(keep func(models.Document) bool) []models.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Document{}
	for _, d := range m.docs {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

func (m *memStore) ListVisibleDocuments(_ context.Context, category *uuid.UUID, branchID *int64) ([]models.Document, error) {
	return sortDocuments(m.filterDocuments(func(d models.Document) bool {
		return sameParent(d.CategoryID, category) && visibleTo(d.Status, d.UserBranchID, d.IsDeleted, branchID)
	})), nil
}

func (m *memStore) InsertDocument(_ context.Context, d *models.Document) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsertDocument != nil {
		return nil, m.failInsertDocument
	}
	row := *d
	row.ID = m.id()
	row.CreatedAt = time.Now()
	row.UpdatedAt = row.CreatedAt
	m.docs = append(m.docs, row)
	return &row, nil
}

func (m *memStore) RetireDocument(_ context.Context, id, branchID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.docs {
		if m.docs[i].ID == id && !m.docs[i].IsDeleted {
			m.docs[i].IsDeleted = true
			m.docs[i].RetiredByBranchID = &branchID
			return nil
		}
	}
	return apperr.Conflictf("document was changed by another request")
}

func (m *memStore) ListBranchDocuments(_ context.Context, branchID int64) ([]models.Document, error) {
	return m.filterDocuments(func(d models.Document) bool {
		return ownedBy(d.UserBranchID, branchID) && !d.IsDeleted
	}), nil
}

func (m *memStore) ListRetiredDocuments(_ context.Context, branchID int64) ([]models.Document, error) {
	return m.filterDocuments(func(d models.Document) bool {
		return ownedBy(d.RetiredByBranchID, branchID) && d.Status == models.StatusMerged
	}), nil
}

func (m *memStore) ListBranchViewDocuments(_ context.Context, branchID *int64) ([]models.Document, error) {
	return sortDocuments(m.filterDocuments(func(d models.Document) bool {
		return m.inBranchView(d.Status, d.UserBranchID, d.IsDeleted, d.RetiredByBranchID, branchID)
	})), nil
}

func (m *memStore) SetBranchDocumentsStatus(_ context.Context, branchID int64, status models.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.docs {
		d := &m.docs[i]
		if ownedBy(d.UserBranchID, branchID) && statusTarget(d.IsDeleted, d.RetiredByBranchID, branchID, status) {
			d.Status = status
			if status == models.StatusMerged {
				d.UserBranchID = nil
			}
		}
	}
	return nil
}

// Pull requests

func (m *memStore) InsertPullRequest(_ context.Context, pr *models.PullRequest) (*models.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.prs {
		if p.UserBranchID == pr.UserBranchID {
			return nil, apperr.Conflictf("branch %d already has a pull request", pr.UserBranchID)
		}
	}
	row := *pr
	row.ID = m.id()
	row.CreatedAt = time.Now()
	m.prs = append(m.prs, row)
	return &row, nil
}

func (m *memStore) FindPullRequest(_ context.Context, id int64) (*models.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.prs {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, nil
}

func (m *memStore) SetPullRequestState(_ context.Context, id int64, state models.PullRequestState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.prs {
		if m.prs[i].ID == id {
			m.prs[i].Status = state
			return nil
		}
	}
	return fmt.Errorf("pull request %d not found", id)
}

func (m *memStore) CountMergeConflicts(_ context.Context, branchID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, d := range m.cats {
		if !ownedBy(d.UserBranchID, branchID) || d.IsDeleted {
			continue
		}
		for _, c := range m.cats {
			if c.Status == models.StatusMerged && !c.IsDeleted && sameParent(c.ParentID, d.ParentID) &&
				c.Slug == d.Slug && c.LineageID != d.LineageID {
				n++
			}
		}
	}
	for _, d := range m.docs {
		if !ownedBy(d.UserBranchID, branchID) || d.IsDeleted {
			continue
		}
		for _, c := range m.docs {
			if c.Status == models.StatusMerged && !c.IsDeleted && sameParent(c.CategoryID, d.CategoryID) &&
				c.Slug == d.Slug && c.LineageID != d.LineageID {
				n++
			}
		}
	}
	return n, nil
}

// seed helpers insert published rows directly.

func (m *memStore) seedUser(addr string, role models.Role) Actor {
	u, _ := m.CreateUser(context.Background(), addr, "secret", "", role)
	return Actor{ID: u.ID, Email: u.Email, Role: u.Role}
}

func (m *memStore) seedCategory(slug string, parent *models.Category, position int) models.Category {
	c, _ := m.InsertCategory(context.Background(), &models.Category{
		LineageID: uuid.New(), Slug: slug, SidebarLabel: strings.ToUpper(slug[:1]) + slug[1:],
		Position: position, ParentID: lineageOf(parent), Status: models.StatusMerged, LastEditedBy: "seed",
	})
	return *c
}

func (m *memStore) seedDocument(slug string, category *models.Category, order int, content string) models.Document {
	d, _ := m.InsertDocument(context.Background(), &models.Document{
		LineageID: uuid.New(), Slug: slug, SidebarLabel: slug, FileOrder: order, Content: content,
		IsPublic: true, CategoryID: lineageOf(category), Status: models.StatusMerged, LastEditedBy: "seed",
	})
	return *d
}

func (m *memStore) category(id int64) models.Category {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cats {
		if c.ID == id {
			return c
		}
	}
	panic(fmt.Sprintf("category %d not found", id))
}

func (m *memStore) document(id int64) models.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.ID == id {
			return d
		}
	}
	panic(fmt.Sprintf("document %d not found", id))
}

func (m *memStore) branch(id int64) models.Branch {
	b, _ := m.FindBranch(context.Background(), id)
	if b == nil {
		panic(fmt.Sprintf("branch %d not found", id))
	}
	return *b
}

// fakeRepo records content repository calls.
type fakeRepo struct {
	mu        sync.Mutex
	branches  map[string]bool
	snapshots map[string][]gitrepo.File
	merges    []string
	main      []gitrepo.File

	failEnsure error
	failMerge  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{branches: map[string]bool{}, snapshots: map[string][]gitrepo.File{}}
}

func (r *fakeRepo) EnsureBranch(_ context.Context, branch string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failEnsure != nil {
		return r.failEnsure
	}
	r.branches[branch] = true
	return nil
}

func (r *fakeRepo) CommitSnapshot(_ context.Context, branch string, files []gitrepo.File, _ gitrepo.Author, _ string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.branches[branch] {
		return "", gitrepo.ErrBranchNotFound
	}
	r.snapshots[branch] = files
	return "abc1234", nil
}

func (r *fakeRepo) MergeIntoMain(_ context.Context, branch string, files []gitrepo.File, _ gitrepo.Author, _ string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failMerge != nil {
		return "", r.failMerge
	}
	r.merges = append(r.merges, branch)
	r.main = files
	return "def5678", nil
}

func (r *fakeRepo) ensured() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.branches)
}

// fakeLocker is an in-process Locker.
type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
	err  error
}

func (l *fakeLocker) Acquire(_ context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true, nil
}

// fakeNotifier records review requests.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []email.ReviewRequest
	err  error
}

func (n *fakeNotifier) NotifyReviewers(_ context.Context, req email.ReviewRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, req)
	return n.err
}

var errBoom = errors.New("boom")
