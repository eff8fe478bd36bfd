// Package store defines the repository contracts for the prompt and
// execution aggregates, the unit-of-work transaction scope, and the
// backend factory. All persisted state is reached through these
// interfaces; the embedded and networked engines are interchangeable.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/promptvault/promptvault/internal/models"
)

// Pagination bounds. Limits above MaxPageSize are clamped down; negative
// offsets are rejected by validation before any query runs.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page selects a window of a listing.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// PromptFilter narrows prompt listings. The zero value lists all active
// (non-deleted) prompts.
type PromptFilter struct {
	Category       models.Category
	Tag            string
	IsSystem       *bool
	IncludeDeleted bool
}

// ExecutionFilter narrows execution listings.
type ExecutionFilter struct {
	Capability string
	Provider   string
	Model      string
	PromptID   *uuid.UUID
	Success    *bool
	Since      *time.Time
	Until      *time.Time
}

// PromptRepository is the contract for the versioned prompt aggregate.
type PromptRepository interface {
	// Create inserts a prompt at version 1 together with its first
	// version snapshot. Returns ErrDuplicateSlug when the slug is held
	// by a non-deleted prompt.
	Create(ctx context.Context, in models.CreatePrompt) (*models.Prompt, error)

	// Get returns a prompt by id, including soft-deleted ones.
	Get(ctx context.Context, id uuid.UUID) (*models.Prompt, error)

	// GetBySlug returns an active prompt by slug; soft-deleted prompts
	// are not visible here.
	GetBySlug(ctx context.Context, slug string) (*models.Prompt, error)

	// List returns a page of prompts ordered by creation time descending
	// with a stable id tie-break, plus the total count for the filter.
	List(ctx context.Context, f PromptFilter, p Page) ([]*models.Prompt, int64, error)

	// Update applies a sparse partial update. A new version snapshot is
	// written if and only if the template or variable list changed.
	Update(ctx context.Context, id uuid.UUID, u models.UpdatePrompt) (*models.Prompt, error)

	// ListVersions returns all snapshots for a prompt in ascending
	// version order; empty when the prompt does not exist.
	ListVersions(ctx context.Context, id uuid.UUID) ([]*models.PromptVersion, error)

	// GetVersion returns one snapshot.
	GetVersion(ctx context.Context, id uuid.UUID, version int) (*models.PromptVersion, error)

	// Delete soft-deletes a prompt. Deleting an already-deleted prompt
	// succeeds silently.
	Delete(ctx context.Context, id uuid.UUID) error

	// HardDelete physically removes a prompt and its version history.
	// Maintenance tooling only; never exposed over the public API.
	HardDelete(ctx context.Context, id uuid.UUID) error
}

// ExecutionRepository is the contract for the append-only execution log.
type ExecutionRepository interface {
	// Record appends one execution row. Cost is computed here from the
	// pricing table; an unknown model records at cost zero rather than
	// failing, so pricing gaps never block audit logging.
	Record(ctx context.Context, in models.RecordExecution) (*models.Execution, error)

	// Get returns one execution by id.
	Get(ctx context.Context, id uuid.UUID) (*models.Execution, error)

	// List returns a page of executions, newest first.
	List(ctx context.Context, f ExecutionFilter, p Page) ([]*models.Execution, int64, error)

	// UsageStats aggregates the log over an inclusive date range (nil
	// means unbounded) with a single backend-side aggregation query.
	UsageStats(ctx context.Context, start, end *time.Time) (*models.UsageStats, error)
}

// UnitOfWork exposes both repositories bound to one transaction.
type UnitOfWork interface {
	Prompts() PromptRepository
	Executions() ExecutionRepository
}

// Backend owns the connection lifecycle of one storage engine.
type Backend interface {
	// Initialize creates the schema if absent. Idempotent; running it
	// against an already-initialized store is a no-op.
	Initialize(ctx context.Context) error

	// UnitOfWork runs fn inside one transaction. The transaction commits
	// when fn returns nil and rolls back on error, panic, or context
	// cancellation, always before the failure reaches the caller.
	UnitOfWork(ctx context.Context, fn func(UnitOfWork) error) error

	Ping(ctx context.Context) error
	Close() error
}
