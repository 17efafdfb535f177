// Package db provides the optional on-disk cache shared by the collaborators.
//
// This package contains:
//   - DB: a SQLite database opened inside the cache directory
//   - Key/value entries grouped by namespace, each with a creation time
//   - Migration support via goose
//
// The package uses the pure-Go modernc.org/sqlite driver so the binary stays cgo-free.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/lueurxax/mapcomplete-digest-bot/migrations"
)

// DB wraps the cache database.
type DB struct {
	SQL    *sql.DB
	Logger *zerolog.Logger

	now func() time.Time
}

// Option configures a DB.
type Option func(*DB)

// WithClock overrides the clock used to stamp and age entries.
func WithClock(now func() time.Time) Option {
	return func(db *DB) {
		db.now = now
	}
}

// Open creates dir when needed, opens the cache database inside it and applies migrations.
func Open(ctx context.Context, dir string, logger *zerolog.Logger, opts ...Option) (*DB, error) {
	if err := os.MkdirAll(dir, cacheDirPerm); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	path := filepath.Join(dir, databaseFile)

	sqlDB, err := sql.Open(driverName, "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	// SQLite serializes writers; one connection avoids SQLITE_BUSY under the prefetch fan-out.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping cache db: %w", err)
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	db := &DB{SQL: sqlDB, Logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(db)
	}

	if err := db.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// Close closes the database.
func (db *DB) Close() error {
	if err := db.SQL.Close(); err != nil {
		return fmt.Errorf("close cache db: %w", err)
	}

	return nil
}

type gooseLogger struct {
	logger *zerolog.Logger
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal().Msgf(format, v...)
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug().Msgf(format, v...)
}

// Migrate runs database migrations using goose.
func (db *DB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(&gooseLogger{logger: db.Logger})

	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db.SQL, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
