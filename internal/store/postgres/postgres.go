// Package postgres implements the store contracts on a networked engine
// behind a bounded pgx connection pool. List/array attributes live in
// native JSONB columns, costs in NUMERIC, and per-id write serialization
// rides on the engine's row-level locking.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptvault/promptvault/internal/config"
	"github.com/promptvault/promptvault/internal/pricing"
	"github.com/promptvault/promptvault/internal/store"
	"github.com/promptvault/promptvault/internal/store/query"
)

const (
	schemaVersion         = "1"
	uniqueViolationCode   = "23505"
	defaultAcquireTimeout = 5 * time.Second
)

func init() {
	store.Register("postgres", func(ctx context.Context, cfg config.StorageConfig) (store.Backend, error) {
		return New(ctx, cfg, pricing.Default())
	})
}

// Backend is the networked engine.
type Backend struct {
	pool           *pgxpool.Pool
	qb             *query.Builder
	prices         *pricing.Table
	acquireTimeout time.Duration

	initMu      sync.Mutex
	initialized bool
}

var _ store.Backend = (*Backend)(nil)

// New builds the connection pool and verifies reachability. The pool is
// bounded by cfg.MinConns/MaxConns; acquiring a connection for a unit of
// work waits at most cfg.AcquireTimeout before failing with
// ErrResourceExhausted.
func New(ctx context.Context, cfg config.StorageConfig, prices *pricing.Table) (*Backend, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, store.Unavailablef("postgres ping", err)
	}

	acquireTimeout := cfg.AcquireTimeout
	if acquireTimeout <= 0 {
		acquireTimeout = defaultAcquireTimeout
	}

	return &Backend{
		pool:           pool,
		qb:             query.New(query.PostgresDialect{}),
		prices:         prices,
		acquireTimeout: acquireTimeout,
	}, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS schema_info (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS prompts (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT 'general',
		tags JSONB NOT NULL DEFAULT '[]',
		template TEXT NOT NULL,
		variables JSONB NOT NULL DEFAULT '[]',
		version INTEGER NOT NULL DEFAULT 1,
		is_system BOOLEAN NOT NULL DEFAULT FALSE,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_prompts_slug_active
		ON prompts(slug) WHERE NOT is_deleted`,
	`CREATE INDEX IF NOT EXISTS idx_prompts_created_at ON prompts(created_at)`,
	`CREATE TABLE IF NOT EXISTS prompt_versions (
		id UUID PRIMARY KEY,
		prompt_id UUID NOT NULL REFERENCES prompts(id) ON DELETE CASCADE,
		version INTEGER NOT NULL,
		template TEXT NOT NULL,
		variables JSONB NOT NULL DEFAULT '[]',
		change_note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (prompt_id, version)
	)`,
	`CREATE TABLE IF NOT EXISTS executions (
		id UUID PRIMARY KEY,
		prompt_id UUID,
		prompt_version INTEGER,
		capability TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		cost_usd NUMERIC(16,9) NOT NULL DEFAULT 0,
		latency_ms BIGINT NOT NULL DEFAULT 0,
		success BOOLEAN NOT NULL DEFAULT TRUE,
		error_text TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL DEFAULT '',
		session_id TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT '',
		input_preview TEXT NOT NULL DEFAULT '',
		output_preview TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_executions_created_at ON executions(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_executions_provider ON executions(provider)`,
	`CREATE INDEX IF NOT EXISTS idx_executions_prompt ON executions(prompt_id)`,
}

// Initialize creates the schema if absent. Idempotent, guarded per
// process.
func (b *Backend) Initialize(ctx context.Context) error {
	b.initMu.Lock()
	defer b.initMu.Unlock()
	if b.initialized {
		return nil
	}

	for _, stmt := range schema {
		if _, err := b.pool.Exec(ctx, stmt); err != nil {
			return store.Unavailablef("postgres schema bootstrap", err)
		}
	}

	r := b.qb.Upsert("schema_info",
		[]string{"key", "value"}, []string{"key"}, []string{"value"},
		[]any{"schema_version", schemaVersion})
	if _, err := b.pool.Exec(ctx, r.SQL, r.Args...); err != nil {
		return store.Unavailablef("postgres schema version", err)
	}

	b.initialized = true
	return nil
}

// UnitOfWork checks a connection out of the pool for the duration of the
// scope and returns it on every exit path. Pool exhaustion surfaces as
// ErrResourceExhausted once the acquire timeout elapses.
func (b *Backend) UnitOfWork(ctx context.Context, fn func(store.UnitOfWork) error) (err error) {
	acquireCtx, cancel := context.WithTimeout(ctx, b.acquireTimeout)
	defer cancel()

	conn, err := b.pool.Acquire(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: connection pool acquire timed out after %s", store.ErrResourceExhausted, b.acquireTimeout)
		}
		return store.Unavailablef("acquire connection", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return store.Unavailablef("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	uow := &unitOfWork{
		prompts:    &promptRepo{tx: tx, qb: b.qb},
		executions: &executionRepo{tx: tx, qb: b.qb, prices: b.prices},
	}
	if err = fn(uow); err != nil {
		return err
	}

	if cerr := tx.Commit(ctx); cerr != nil {
		err = store.Unavailablef("commit transaction", cerr)
	}
	return err
}

func (b *Backend) Ping(ctx context.Context) error {
	if err := b.pool.Ping(ctx); err != nil {
		return store.Unavailablef("postgres ping", err)
	}
	return nil
}

func (b *Backend) Close() error {
	b.pool.Close()
	return nil
}

type unitOfWork struct {
	prompts    *promptRepo
	executions *executionRepo
}

func (u *unitOfWork) Prompts() store.PromptRepository       { return u.prompts }
func (u *unitOfWork) Executions() store.ExecutionRepository { return u.executions }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
