// Package sqlite implements the store contracts on an embedded
// single-file engine. Writes are serialized at the connection level (one
// open connection, WAL journal); list/array attributes are stored as
// JSON-encoded text and costs as integer nano-USD, with the converter
// layer normalizing both for callers.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/promptvault/promptvault/internal/config"
	"github.com/promptvault/promptvault/internal/pricing"
	"github.com/promptvault/promptvault/internal/store"
	"github.com/promptvault/promptvault/internal/store/query"
)

const schemaVersion = "1"

func init() {
	store.Register("sqlite", func(ctx context.Context, cfg config.StorageConfig) (store.Backend, error) {
		return New(cfg.Path, pricing.Default())
	})
	store.Register("memory", func(ctx context.Context, cfg config.StorageConfig) (store.Backend, error) {
		return New(":memory:", pricing.Default())
	})
}

// Backend is the embedded engine.
type Backend struct {
	db     *sql.DB
	qb     *query.Builder
	prices *pricing.Table

	initMu      sync.Mutex
	initialized bool
}

var _ store.Backend = (*Backend)(nil)

// New opens or creates the database file at path. ":memory:" gives an
// ephemeral store for tests.
func New(path string, prices *pricing.Table) (*Backend, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite: empty database path")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite: create data dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// Single writer; also keeps :memory: from fanning out into separate
	// databases per pooled connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, store.Unavailablef("sqlite ping", err)
	}

	return &Backend{
		db:     db,
		qb:     query.New(query.SQLiteDialect{}),
		prices: prices,
	}, nil
}

var schema = []string{
	`PRAGMA journal_mode = WAL`,
	`CREATE TABLE IF NOT EXISTS schema_info (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS prompts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT 'general',
		tags TEXT NOT NULL DEFAULT '[]',
		template TEXT NOT NULL,
		variables TEXT NOT NULL DEFAULT '[]',
		version INTEGER NOT NULL DEFAULT 1,
		is_system INTEGER NOT NULL DEFAULT 0,
		is_deleted INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_prompts_slug_active
		ON prompts(slug) WHERE is_deleted = 0`,
	`CREATE INDEX IF NOT EXISTS idx_prompts_created_at ON prompts(created_at)`,
	`CREATE TABLE IF NOT EXISTS prompt_versions (
		id TEXT PRIMARY KEY,
		prompt_id TEXT NOT NULL REFERENCES prompts(id) ON DELETE CASCADE,
		version INTEGER NOT NULL,
		template TEXT NOT NULL,
		variables TEXT NOT NULL DEFAULT '[]',
		change_note TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		UNIQUE(prompt_id, version)
	)`,
	`CREATE TABLE IF NOT EXISTS executions (
		id TEXT PRIMARY KEY,
		prompt_id TEXT,
		prompt_version INTEGER,
		capability TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		cost_usd_nanos INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL DEFAULT 1,
		error_text TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL DEFAULT '',
		session_id TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT '',
		input_preview TEXT NOT NULL DEFAULT '',
		output_preview TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_executions_created_at ON executions(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_executions_provider ON executions(provider)`,
	`CREATE INDEX IF NOT EXISTS idx_executions_prompt ON executions(prompt_id)`,
}

// Initialize creates the schema if absent. Safe to call repeatedly; the
// per-process guard makes repeat calls free.
func (b *Backend) Initialize(ctx context.Context) error {
	b.initMu.Lock()
	defer b.initMu.Unlock()
	if b.initialized {
		return nil
	}

	for _, stmt := range schema {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return store.Unavailablef("sqlite schema bootstrap", err)
		}
	}

	r := b.qb.Upsert("schema_info",
		[]string{"key", "value"}, []string{"key"}, []string{"value"},
		[]any{"schema_version", schemaVersion})
	if _, err := b.db.ExecContext(ctx, r.SQL, r.Args...); err != nil {
		return store.Unavailablef("sqlite schema version", err)
	}

	b.initialized = true
	return nil
}

// UnitOfWork runs fn inside one transaction. Commit on nil return,
// rollback on error or panic; a cancelled context rolls the transaction
// back before the cancellation reaches the caller.
func (b *Backend) UnitOfWork(ctx context.Context, fn func(store.UnitOfWork) error) (err error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Unavailablef("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	uow := &unitOfWork{
		prompts:    &promptRepo{tx: tx, qb: b.qb},
		executions: &executionRepo{tx: tx, qb: b.qb, prices: b.prices},
	}
	if err = fn(uow); err != nil {
		return err
	}

	if cerr := tx.Commit(); cerr != nil {
		err = store.Unavailablef("commit transaction", cerr)
	}
	return err
}

func (b *Backend) Ping(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return store.Unavailablef("sqlite ping", err)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

type unitOfWork struct {
	prompts    *promptRepo
	executions *executionRepo
}

func (u *unitOfWork) Prompts() store.PromptRepository       { return u.prompts }
func (u *unitOfWork) Executions() store.ExecutionRepository { return u.executions }

// isUniqueViolation classifies the driver error raised when the active
// slug index rejects an insert.
func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrConstraint &&
			(serr.ExtendedCode == sqlite3.ErrConstraintUnique || serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
	}
	return false
}
