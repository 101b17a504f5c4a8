// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// lockKeyPrefix is the Valkey key prefix for in-flight locks.
	lockKeyPrefix = "lock:"

	// DefaultLockTTL bounds how long a crashed holder can block others.
	DefaultLockTTL = 30 * time.Second
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out exclusive, expiring locks stored in Valkey.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLocker creates a Locker backed by the given Valkey client.
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if ttl == 0 {
		ttl = DefaultLockTTL
	}
	return &Locker{client: client, ttl: ttl}
}

// Acquire takes the lock named key. It reports false when another holder
// has it. The returned release func is safe to call once the lock has
// expired.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), bool, error) {
	token, err := randomToken()
	if err != nil {
		return nil, false, fmt.Errorf("lock token: %w", err)
	}

	ok, err := l.client.SetNX(ctx, lockKeyPrefix+key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Release must work after the request context is canceled.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{lockKeyPrefix + key}, token).Err(); err != nil {
			slog.Warn("lock release failed", "key", key, "error", err)
		}
	}
	return release, true, nil
}

func randomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
