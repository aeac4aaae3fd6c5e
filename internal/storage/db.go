package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	applog "saku/internal/log"
	"saku/internal/models"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// DefaultQueryTimeout bounds each store operation, including the wait for readiness.
const DefaultQueryTimeout = 5 * time.Second

// Options configures a DB.
type Options struct {
	QueryTimeout time.Duration
	Logger       *applog.Logger
	// Now stamps created_at columns. Defaults to time.Now.
	Now func() time.Time
	// Categories seeded by Initialize. Defaults to DefaultCategories.
	Categories []SeedCategory
}

// DB wraps a sql.DB connection. Queries block until Initialize has succeeded.
type DB struct {
	conn       *sql.DB
	path       string
	timeout    time.Duration
	logger     *applog.Logger
	now        func() time.Time
	categories []SeedCategory

	initOnce sync.Once
	initErr  error
	ready    chan struct{}
	failed   chan struct{}
}

// Open opens the database file at path. The schema is not touched until Initialize.
func Open(ctx context.Context, path string, opts Options) (*DB, error) {
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file::memory:") {
		return nil, errors.New("database path must name a file")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	// One writer keeps read-then-write sequences from interleaving.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Categories == nil {
		opts.Categories = DefaultCategories
	}

	return &DB{
		conn:       conn,
		path:       path,
		timeout:    opts.QueryTimeout,
		logger:     opts.Logger.WithComponent(applog.ComponentStorage),
		now:        opts.Now,
		categories: opts.Categories,
		ready:      make(chan struct{}),
		failed:     make(chan struct{}),
	}, nil
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// Initialize applies migrations and seeds the default categories. It runs
// once; later calls return the first outcome. A failure leaves the store
// permanently unavailable.
func (db *DB) Initialize(ctx context.Context) error {
	db.initOnce.Do(func() {
		start := time.Now()
		db.initErr = db.initialize(ctx)
		if db.initErr != nil {
			db.logger.ErrorContext(ctx, "store initialization failed",
				applog.FieldOperation, applog.OpInitialize,
				applog.FieldPath, db.path,
				applog.FieldError, db.initErr)
			close(db.failed)
			return
		}
		db.logger.InfoContext(ctx, "store ready",
			applog.FieldPath, db.path,
			applog.FieldDuration, time.Since(start).Milliseconds())
		close(db.ready)
	})
	if db.initErr != nil {
		return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, db.initErr)
	}
	return nil
}

func (db *DB) initialize(ctx context.Context) error {
	if err := RunMigrations(db.path); err != nil {
		return err
	}
	return seedCategories(ctx, db.conn, db.now().UTC(), db.categories)
}

// Wait blocks until the store is ready, has failed, or ctx is done.
func (db *DB) Wait(ctx context.Context) error {
	select {
	case <-db.ready:
		return nil
	case <-db.failed:
		return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, db.initErr)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, ctx.Err())
	}
}

// Ready is closed once Initialize has completed successfully.
func (db *DB) Ready() <-chan struct{} {
	return db.ready
}

// gate applies the query timeout and waits for readiness.
func (db *DB) gate(ctx context.Context) (context.Context, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, db.timeout)
	if err := db.Wait(ctx); err != nil {
		cancel()
		return nil, nil, err
	}
	return ctx, cancel, nil
}

// WithTx runs fn inside a transaction, rolling back if fn returns an error.
// fn receives the context bounded by the query timeout and must use it.
func (db *DB) WithTx(ctx context.Context, fn func(context.Context, *sql.Tx) error) error {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return withTx(ctx, db.conn, fn)
}

func withTx(ctx context.Context, conn *sql.DB, fn func(context.Context, *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback: %v (original: %w)", rbErr, err)
		}
		return err
	}
	return tx.Commit()
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) stamp() time.Time {
	return db.now().UTC()
}
