// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"handbook/internal/database"
	"handbook/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "handbook")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "handbook")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testUser creates a throwaway editor. Its branches and their rows are
// removed on cleanup.
func testUser(t *testing.T, db *sql.DB) *models.User {
	t.Helper()
	ctx := context.Background()

	email := "store-" + uuid.NewString()[:8] + "@store-test.local"
	u, err := NewUserStore(db).CreateUser(ctx, email, "testpass123", "Store Test", models.RoleEditor)
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}

	t.Cleanup(func() {
		for _, table := range []string{"document_versions", "document_categories"} {
			db.Exec(`DELETE FROM `+table+` WHERE user_branch_id IN (SELECT id FROM user_branches WHERE user_id = $1)
				OR retired_by_branch_id IN (SELECT id FROM user_branches WHERE user_id = $1)
				OR last_edited_by = $2`, u.ID, u.Email)
		}
		db.Exec("DELETE FROM users WHERE id = $1", u.ID)
	})
	return u
}
