// Package sqlite implements the catalogue store on an embedded SQLite
// database: schema, artwork and tag CRUD, the artwork filter compiler and
// query engine, association replacement, image rows with the preview
// pointer, and consistent snapshots for backup.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/catalogue/internal/paths"
	"github.com/mesh-intelligence/catalogue/pkg/types"
)

// Backend is the persisted store. It owns the database handle; every write
// to the database goes through its methods. Construct with NewBackend and
// open with Attach; Detach closes it.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	layout   paths.Layout
	db       *sql.DB
	logger   zerolog.Logger
}

// NewBackend creates a new, detached backend.
func NewBackend(logger zerolog.Logger) *Backend {
	return &Backend{logger: logger.With().Str("component", "store").Logger()}
}

// dsn builds the connection string. Every pooled connection gets foreign
// keys, WAL journaling and a busy timeout; write transactions take the
// write lock up front so concurrent writers queue instead of failing.
func dsn(path string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate", path)
}

// openDB opens the database at path and applies the schema.
func openDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := applySchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Attach opens (creating if needed) the database in config.DataDir.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	layout := paths.NewLayout(config.DataDir)
	if err := os.MkdirAll(layout.Root, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	db, err := openDB(context.Background(), layout.DatabasePath())
	if err != nil {
		return err
	}

	b.db = db
	b.config = config.WithDefaults()
	b.layout = layout
	b.attached = true

	b.logger.Debug().Str("path", layout.DatabasePath()).Msg("store attached")
	return nil
}

// Detach closes the database. Detach is idempotent; after it every
// operation returns ErrStoreDetached.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	if b.db != nil {
		// Fold the WAL back into the main file so the database is a single
		// self-contained file at rest.
		if _, err := b.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			b.logger.Warn().Err(err).Msg("wal checkpoint on detach")
		}
		if err := b.db.Close(); err != nil {
			return fmt.Errorf("closing database: %w", err)
		}
		b.db = nil
	}
	return nil
}

// Attached reports whether the database is open.
func (b *Backend) Attached() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.attached
}

// Layout returns the data directory layout of the attached store.
func (b *Backend) Layout() paths.Layout {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.layout
}

// Config returns the configuration the store was attached with, defaults applied.
func (b *Backend) Config() types.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withDB runs fn with the database handle while holding the read lock so
// Detach cannot close it underneath.
func (b *Backend) withDB(fn func(db *sql.DB) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrStoreDetached
	}
	return fn(b.db)
}

// inTx runs fn inside one transaction. Any error from fn rolls back
// everything fn wrote.
func (b *Backend) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return b.withDB(func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return nil
	})
}
