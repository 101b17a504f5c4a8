// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handbook/internal/models"
)

// testValkey starts an in-memory Valkey and returns a client for it.
func testValkey(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatal("expected session cookie to be set")
	return nil
}

func requestWith(c *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if c != nil {
		req.AddCookie(c)
	}
	return req
}

func TestSessionCreateAndGet(t *testing.T) {
	mr, client := testValkey(t)
	store := NewStore(NewValkeyBackend(client), time.Hour, false)
	ctx := context.Background()

	w := httptest.NewRecorder()
	data := &Data{UserID: uuid.New(), Email: "test@session.local", Role: models.RoleAdmin}

	id, err := store.Create(ctx, w, data)
	require.NoError(t, err)
	assert.Len(t, id, 2*idLength)
	assert.True(t, mr.Exists(keyPrefix+id))
	assert.Equal(t, time.Hour, mr.TTL(keyPrefix+id))

	cookie := sessionCookie(t, w)
	assert.Equal(t, id, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, 3600, cookie.MaxAge)

	got, err := store.Get(ctx, httptest.NewRecorder(), requestWith(cookie))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, data.UserID, got.UserID)
	assert.Equal(t, "test@session.local", got.Email)
	assert.True(t, got.IsAdmin())
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSessionSecureCookie(t *testing.T) {
	_, client := testValkey(t)
	store := NewStore(NewValkeyBackend(client), 0, true)
	assert.Equal(t, DefaultTTL, store.TTL())

	w := httptest.NewRecorder()
	_, err := store.Create(context.Background(), w, &Data{UserID: uuid.New()})
	require.NoError(t, err)
	assert.True(t, sessionCookie(t, w).Secure)
}

func TestSessionGetMissing(t *testing.T) {
	_, client := testValkey(t)
	store := NewStore(NewValkeyBackend(client), time.Hour, false)
	ctx := context.Background()

	got, err := store.Get(ctx, httptest.NewRecorder(), requestWith(nil))
	require.NoError(t, err)
	assert.Nil(t, got, "no cookie means no session")

	got, err = store.Get(ctx, httptest.NewRecorder(), requestWith(&http.Cookie{Name: CookieName, Value: "nonexistent"}))
	require.NoError(t, err)
	assert.Nil(t, got, "unknown id means no session")
}

func TestSessionExpires(t *testing.T) {
	mr, client := testValkey(t)
	store := NewStore(NewValkeyBackend(client), time.Minute, false)
	ctx := context.Background()

	w := httptest.NewRecorder()
	_, err := store.Create(ctx, w, &Data{UserID: uuid.New()})
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	got, err := store.Get(ctx, httptest.NewRecorder(), requestWith(sessionCookie(t, w)))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionActivityExtendsLifetime(t *testing.T) {
	mr, client := testValkey(t)
	store := NewStore(NewValkeyBackend(client), time.Hour, false)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	w := httptest.NewRecorder()
	id, err := store.Create(ctx, w, &Data{UserID: uuid.New()})
	require.NoError(t, err)
	cookie := sessionCookie(t, w)

	mr.FastForward(30 * time.Minute)
	now = now.Add(30 * time.Minute)

	touched := httptest.NewRecorder()
	got, err := store.Get(ctx, touched, requestWith(cookie))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, now, got.LastActivity)
	assert.Equal(t, time.Hour, mr.TTL(keyPrefix+id))

	refreshed := sessionCookie(t, touched)
	assert.Equal(t, id, refreshed.Value)
	assert.Equal(t, 3600, refreshed.MaxAge, "cookie lifetime follows the backend TTL")

	// A second read inside the touch interval leaves the TTL and cookie alone.
	mr.FastForward(time.Minute)
	now = now.Add(time.Minute)
	quiet := httptest.NewRecorder()
	_, err = store.Get(ctx, quiet, requestWith(cookie))
	require.NoError(t, err)
	assert.Equal(t, 59*time.Minute, mr.TTL(keyPrefix+id))
	assert.Empty(t, quiet.Result().Cookies())
}

func TestSessionUpdate(t *testing.T) {
	_, client := testValkey(t)
	store := NewStore(NewValkeyBackend(client), time.Hour, false)
	ctx := context.Background()

	w := httptest.NewRecorder()
	data := &Data{UserID: uuid.New(), Email: "update@session.local", Role: models.RoleEditor}
	_, err := store.Create(ctx, w, data)
	require.NoError(t, err)
	req := requestWith(sessionCookie(t, w))

	data.Role = models.RoleAdmin
	require.NoError(t, store.Update(ctx, req, data))

	got, err := store.Get(ctx, httptest.NewRecorder(), req)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.RoleAdmin, got.Role)

	assert.Error(t, store.Update(ctx, requestWith(nil), data), "update needs a cookie")
}

func TestSessionDestroy(t *testing.T) {
	mr, client := testValkey(t)
	store := NewStore(NewValkeyBackend(client), time.Hour, false)
	ctx := context.Background()

	w := httptest.NewRecorder()
	id, err := store.Create(ctx, w, &Data{UserID: uuid.New()})
	require.NoError(t, err)
	req := requestWith(sessionCookie(t, w))

	w2 := httptest.NewRecorder()
	require.NoError(t, store.Destroy(ctx, w2, req))
	assert.Equal(t, -1, sessionCookie(t, w2).MaxAge)
	assert.False(t, mr.Exists(keyPrefix+id))

	got, err := store.Get(ctx, httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, store.Destroy(ctx, httptest.NewRecorder(), requestWith(nil)),
		"destroying without a cookie is a no-op")
}

func TestSessionBackendUnavailable(t *testing.T) {
	mr, client := testValkey(t)
	store := NewStore(NewValkeyBackend(client), time.Hour, false)
	mr.Close()

	_, err := store.Create(context.Background(), httptest.NewRecorder(), &Data{UserID: uuid.New()})
	assert.Error(t, err)

	_, err = store.Get(context.Background(), httptest.NewRecorder(), requestWith(&http.Cookie{Name: CookieName, Value: "x"}))
	assert.Error(t, err)
}

func TestGenerateIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := generateID()
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate session id %s", id)
		seen[id] = true
	}
}
