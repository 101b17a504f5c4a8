// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure: a stub editor
// workflow and request helpers that inject a session the way LoadSession
// does.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"handbook/internal/editor"
	"handbook/internal/middleware"
	"handbook/internal/models"
	"handbook/internal/session"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

// stubWorkflow records the arguments of the last call and returns canned
// values. Unset results are zero values.
type stubWorkflow struct {
	err error

	listing  *editor.Listing
	folders  []models.Category
	category *models.Category
	document *models.Document
	view     *editor.DocumentView
	diff     *editor.BranchDiff
	hasDiff  bool
	branch   *models.Branch
	pr       *models.PullRequest
	users    []models.User

	gotActor    editor.Actor
	gotPath     string
	gotSlug     string
	gotCatField editor.CategoryFields
	gotDocField editor.DocumentFields
	gotBranchID int64
	gotSubmit   editor.SubmitRequest
	gotPRID     int64
	gotFilter   string
	submitted   bool
}

func (s *stubWorkflow) List(_ context.Context, a editor.Actor, path string) (*editor.Listing, error) {
	s.gotActor, s.gotPath = a, path
	if s.listing == nil {
		return &editor.Listing{}, s.err
	}
	return s.listing, s.err
}

func (s *stubWorkflow) Folders(_ context.Context, a editor.Actor) ([]models.Category, error) {
	s.gotActor = a
	return s.folders, s.err
}

func (s *stubWorkflow) GetCategory(_ context.Context, a editor.Actor, path string) (*models.Category, error) {
	s.gotActor, s.gotPath = a, path
	return s.category, s.err
}

func (s *stubWorkflow) CreateCategory(_ context.Context, a editor.Actor, parent string, f editor.CategoryFields) (*models.Category, error) {
	s.gotActor, s.gotPath, s.gotCatField = a, parent, f
	return s.category, s.err
}

func (s *stubWorkflow) UpdateCategory(_ context.Context, a editor.Actor, original string, f editor.CategoryFields) (*models.Category, error) {
	s.gotActor, s.gotPath, s.gotCatField = a, original, f
	return s.category, s.err
}

func (s *stubWorkflow) DeleteCategory(_ context.Context, a editor.Actor, path string) error {
	s.gotActor, s.gotPath = a, path
	return s.err
}

func (s *stubWorkflow) GetDocument(_ context.Context, a editor.Actor, category, slug string) (*editor.DocumentView, error) {
	s.gotActor, s.gotPath, s.gotSlug = a, category, slug
	return s.view, s.err
}

func (s *stubWorkflow) CreateDocument(_ context.Context, a editor.Actor, category string, f editor.DocumentFields) (*models.Document, error) {
	s.gotActor, s.gotPath, s.gotDocField = a, category, f
	return s.document, s.err
}

func (s *stubWorkflow) UpdateDocument(_ context.Context, a editor.Actor, category, original string, f editor.DocumentFields) (*models.Document, error) {
	s.gotActor, s.gotPath, s.gotSlug, s.gotDocField = a, category, original, f
	return s.document, s.err
}

func (s *stubWorkflow) DeleteDocument(_ context.Context, a editor.Actor, category, slug string) error {
	s.gotActor, s.gotPath, s.gotSlug = a, category, slug
	return s.err
}

func (s *stubWorkflow) ComputeDiff(_ context.Context, a editor.Actor, branchID int64) (*editor.BranchDiff, error) {
	s.gotActor, s.gotBranchID = a, branchID
	return s.diff, s.err
}

func (s *stubWorkflow) HasDiff(_ context.Context, a editor.Actor) (bool, *models.Branch, error) {
	s.gotActor = a
	return s.hasDiff, s.branch, s.err
}

func (s *stubWorkflow) Submit(_ context.Context, a editor.Actor, req editor.SubmitRequest) (*models.PullRequest, error) {
	s.gotActor, s.gotSubmit, s.submitted = a, req, true
	return s.pr, s.err
}

func (s *stubWorkflow) Merge(_ context.Context, a editor.Actor, prID int64) (*models.PullRequest, error) {
	s.gotActor, s.gotPRID = a, prID
	return s.pr, s.err
}

func (s *stubWorkflow) Reviewers(_ context.Context, filter string) ([]models.User, error) {
	s.gotFilter = filter
	return s.users, s.err
}

// testSession returns an editor session.
func testSession(role models.Role) *session.Data {
	return &session.Data{UserID: uuid.New(), Email: "editor@handbook.local", Role: role}
}

// newRequest builds a request with an optional JSON body and session.
func newRequest(t *testing.T, method, target string, body any, sess *session.Data) *http.Request {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sess != nil {
		req = req.WithContext(context.WithValue(req.Context(), middleware.SessionKey, sess))
	}
	return req
}

// serve runs h on req and returns the recorder.
func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// decodeBody decodes a JSON response into a generic map.
func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), "body: %s", rr.Body.String())
	return body
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }
