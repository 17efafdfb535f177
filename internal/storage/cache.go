package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	coreerrors "github.com/lueurxax/mapcomplete-digest-bot/internal/core/errors"
	"github.com/lueurxax/mapcomplete-digest-bot/internal/platform/observability"
)

// Get returns the value stored under namespace/key. Entries older than maxAge are removed
// and reported as ErrCacheExpired; maxAge <= 0 accepts any age.
func (db *DB) Get(ctx context.Context, namespace, key string, maxAge time.Duration) ([]byte, error) {
	row := db.SQL.QueryRowContext(ctx, `
		SELECT value, created_at
		FROM cache_entries
		WHERE namespace = ? AND key = ?
	`, namespace, key)

	var (
		value     []byte
		createdAt int64
	)

	if err := row.Scan(&value, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			observability.CacheLookups.WithLabelValues(namespace, observability.CacheMiss).Inc()
			return nil, coreerrors.ErrCacheNotFound
		}

		return nil, fmt.Errorf("get cache entry: %w", err)
	}

	if maxAge > 0 && db.now().Sub(time.Unix(createdAt, 0)) > maxAge {
		observability.CacheLookups.WithLabelValues(namespace, observability.CacheMiss).Inc()

		if err := db.Delete(ctx, namespace, key); err != nil {
			db.Logger.Warn().Err(err).Str("namespace", namespace).Str("key", key).Msg("could not remove stale cache entry")
		}

		return nil, coreerrors.ErrCacheExpired
	}

	observability.CacheLookups.WithLabelValues(namespace, observability.CacheHit).Inc()

	return value, nil
}

// Put stores value under namespace/key, replacing any previous entry.
func (db *DB) Put(ctx context.Context, namespace, key string, value []byte) error {
	_, err := db.SQL.ExecContext(ctx, `
		INSERT INTO cache_entries (namespace, key, value, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE
		SET value = excluded.value,
		    created_at = excluded.created_at
	`, namespace, key, value, db.now().Unix())
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}

	return nil
}

// Delete removes namespace/key. Removing a missing entry is not an error.
func (db *DB) Delete(ctx context.Context, namespace, key string) error {
	if _, err := db.SQL.ExecContext(ctx, `DELETE FROM cache_entries WHERE namespace = ? AND key = ?`, namespace, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}

	return nil
}

// Noop is the cache used when no cache directory is configured: it never holds anything.
type Noop struct{}

// Get always reports a miss.
func (Noop) Get(context.Context, string, string, time.Duration) ([]byte, error) {
	return nil, coreerrors.ErrCacheNotFound
}

// Put discards the value.
func (Noop) Put(context.Context, string, string, []byte) error {
	return nil
}

// Delete does nothing.
func (Noop) Delete(context.Context, string, string) error {
	return nil
}
