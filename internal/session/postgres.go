// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PostgresBackend stores sessions in the sessions table. Expired rows are
// ignored on load and removed by a Sweeper.
type PostgresBackend struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresBackend creates a backend on the given database.
func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db, now: time.Now}
}

func (b *PostgresBackend) Save(ctx context.Context, id string, data *Data, ttl time.Duration) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	_, err = b.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, sess, expired_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET sess = EXCLUDED.sess, expired_at = EXCLUDED.expired_at`,
		id, data.UserID, payload, b.now().Add(ttl).UTC(),
	)
	return err
}

func (b *PostgresBackend) Load(ctx context.Context, id string) (*Data, error) {
	var payload []byte
	err := b.db.QueryRowContext(ctx,
		`SELECT sess FROM sessions WHERE id = $1 AND expired_at > $2`,
		id, b.now().UTC(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &data, nil
}

func (b *PostgresBackend) Delete(ctx context.Context, id string) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteExpired removes every expired session and returns how many rows
// were deleted.
func (b *PostgresBackend) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM sessions WHERE expired_at <= $1`, b.now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
