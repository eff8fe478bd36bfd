package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Execution is an immutable audit record of one capability invocation.
// Rows are written once at call time and never mutated. CostUSD is always
// recomputed by the store from token counts and the pricing table; values
// supplied by callers are ignored.
type Execution struct {
	ID            uuid.UUID       `json:"id"`
	PromptID      *uuid.UUID      `json:"prompt_id,omitempty"`
	PromptVersion *int            `json:"prompt_version,omitempty"`
	Capability    string          `json:"capability"`
	Provider      string          `json:"provider"`
	Model         string          `json:"model"`
	InputTokens   int             `json:"input_tokens"`
	OutputTokens  int             `json:"output_tokens"`
	CostUSD       decimal.Decimal `json:"cost_usd"`
	LatencyMs     int64           `json:"latency_ms"`
	Success       bool            `json:"success"`
	ErrorText     string          `json:"error,omitempty"`
	UserID        string          `json:"user_id,omitempty"`
	SessionID     string          `json:"session_id,omitempty"`
	RequestID     string          `json:"request_id,omitempty"`
	InputPreview  string          `json:"input_preview,omitempty"`
	OutputPreview string          `json:"output_preview,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RecordExecution is the input to ExecutionRepository.Record. Cost is
// deliberately absent: the store computes it.
type RecordExecution struct {
	PromptID      *uuid.UUID `json:"prompt_id,omitempty"`
	PromptVersion *int       `json:"prompt_version,omitempty"`
	Capability    string     `json:"capability"`
	Provider      string     `json:"provider"`
	Model         string     `json:"model"`
	InputTokens   int        `json:"input_tokens"`
	OutputTokens  int        `json:"output_tokens"`
	LatencyMs     int64      `json:"latency_ms"`
	Success       bool       `json:"success"`
	ErrorText     string     `json:"error,omitempty"`
	UserID        string     `json:"user_id,omitempty"`
	SessionID     string     `json:"session_id,omitempty"`
	RequestID     string     `json:"request_id,omitempty"`
	InputPreview  string     `json:"input_preview,omitempty"`
	OutputPreview string     `json:"output_preview,omitempty"`
}

// ProviderUsage is one slice of the per-provider usage breakdown.
type ProviderUsage struct {
	Provider      string          `json:"provider"`
	TotalRequests int64           `json:"total_requests"`
	TotalTokens   int64           `json:"total_tokens"`
	TotalCostUSD  decimal.Decimal `json:"total_cost_usd"`
}

// UsageStats is a derived aggregate over the execution log. It is computed
// on read by a backend-side aggregation query and never persisted.
type UsageStats struct {
	TotalRequests int64           `json:"total_requests"`
	TotalTokens   int64           `json:"total_tokens"`
	TotalCostUSD  decimal.Decimal `json:"total_cost_usd"`
	ByProvider    []ProviderUsage `json:"by_provider"`
}
