package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/promptvault/promptvault/internal/models"
	"github.com/promptvault/promptvault/internal/pricing"
	"github.com/promptvault/promptvault/internal/store"
	"github.com/promptvault/promptvault/internal/store/convert"
	"github.com/promptvault/promptvault/internal/store/query"
	"github.com/promptvault/promptvault/internal/store/validate"
)

const (
	executionCols  = "id, prompt_id, prompt_version, capability, provider, model, input_tokens, output_tokens, cost_usd_nanos, latency_ms, success, error_text, user_id, session_id, request_id, input_preview, output_preview, created_at"
	executionOrder = "created_at DESC, id DESC"
)

type executionRepo struct {
	tx     *sql.Tx
	qb     *query.Builder
	prices *pricing.Table
}

func (r *executionRepo) Record(ctx context.Context, in models.RecordExecution) (*models.Execution, error) {
	if in.Capability == "" {
		return nil, store.Invalidf("capability is required")
	}

	cost := r.prices.Cost(in.Provider, in.Model, in.InputTokens, in.OutputTokens)
	now := time.Now().UTC()
	e := &models.Execution{
		ID:            uuid.New(),
		PromptID:      in.PromptID,
		PromptVersion: in.PromptVersion,
		Capability:    in.Capability,
		Provider:      in.Provider,
		Model:         in.Model,
		InputTokens:   in.InputTokens,
		OutputTokens:  in.OutputTokens,
		CostUSD:       cost,
		LatencyMs:     in.LatencyMs,
		Success:       in.Success,
		ErrorText:     in.ErrorText,
		UserID:        in.UserID,
		SessionID:     in.SessionID,
		RequestID:     in.RequestID,
		InputPreview:  convert.TruncatePreview(in.InputPreview),
		OutputPreview: convert.TruncatePreview(in.OutputPreview),
		CreatedAt:     now,
	}

	var promptID any
	if e.PromptID != nil {
		promptID = e.PromptID.String()
	}

	_, err := r.tx.ExecContext(ctx,
		`INSERT INTO executions (`+executionCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), promptID, e.PromptVersion, e.Capability, e.Provider, e.Model,
		e.InputTokens, e.OutputTokens, convert.CostToNanos(cost), e.LatencyMs,
		e.Success, e.ErrorText, e.UserID, e.SessionID, e.RequestID,
		e.InputPreview, e.OutputPreview, convert.FormatTime(now),
	)
	if err != nil {
		return nil, store.Unavailablef("insert execution", err)
	}
	return e, nil
}

func (r *executionRepo) Get(ctx context.Context, id uuid.UUID) (*models.Execution, error) {
	row := r.tx.QueryRowContext(ctx,
		`SELECT `+executionCols+` FROM executions WHERE id = ?`, id.String())
	e, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFoundf("execution %s", id)
	}
	return e, err
}

func (r *executionRepo) List(ctx context.Context, f store.ExecutionFilter, p store.Page) ([]*models.Execution, int64, error) {
	page, err := validate.Pagination(p)
	if err != nil {
		return nil, 0, err
	}
	if err := validate.DateRange(f.Since, f.Until); err != nil {
		return nil, 0, err
	}
	conds := query.ExecutionConds(r.qb.Dialect(), f)

	count := r.qb.Count("executions", conds)
	var total int64
	if err := r.tx.QueryRowContext(ctx, count.SQL, count.Args...).Scan(&total); err != nil {
		return nil, 0, store.Unavailablef("count executions", err)
	}

	sel := r.qb.PaginatedSelect("executions", []string{executionCols}, conds, executionOrder, page.Limit, page.Offset)
	rows, err := r.tx.QueryContext(ctx, sel.SQL, sel.Args...)
	if err != nil {
		return nil, 0, store.Unavailablef("list executions", err)
	}
	defer rows.Close()

	var execs []*models.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, 0, err
		}
		execs = append(execs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, store.Unavailablef("list executions", err)
	}
	return execs, total, nil
}

// UsageStats aggregates entirely engine-side: one grouped query whose row
// count is bounded by the number of distinct providers, never by the size
// of the log.
func (r *executionRepo) UsageStats(ctx context.Context, start, end *time.Time) (*models.UsageStats, error) {
	if err := validate.DateRange(start, end); err != nil {
		return nil, err
	}

	conds := query.RangeConds(r.qb.Dialect(), "created_at", start, end)
	sel := r.qb.FilteredSelect("executions",
		[]string{"provider", "COUNT(*)", "COALESCE(SUM(input_tokens + output_tokens), 0)", "COALESCE(SUM(cost_usd_nanos), 0)"},
		conds, "")
	sel.SQL += " GROUP BY provider ORDER BY SUM(cost_usd_nanos) DESC, provider ASC"

	rows, err := r.tx.QueryContext(ctx, sel.SQL, sel.Args...)
	if err != nil {
		return nil, store.Unavailablef("usage stats", err)
	}
	defer rows.Close()

	stats := &models.UsageStats{TotalCostUSD: decimal.Zero}
	for rows.Next() {
		var (
			pu    models.ProviderUsage
			nanos int64
		)
		if err := rows.Scan(&pu.Provider, &pu.TotalRequests, &pu.TotalTokens, &nanos); err != nil {
			return nil, store.Unavailablef("scan usage stats", err)
		}
		pu.TotalCostUSD = convert.CostFromNanos(nanos)

		stats.ByProvider = append(stats.ByProvider, pu)
		stats.TotalRequests += pu.TotalRequests
		stats.TotalTokens += pu.TotalTokens
		stats.TotalCostUSD = stats.TotalCostUSD.Add(pu.TotalCostUSD)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailablef("usage stats", err)
	}
	return stats, nil
}

func scanExecution(s scanner) (*models.Execution, error) {
	var (
		row   convert.ExecutionRow
		nanos int64
	)
	err := s.Scan(&row.ID, &row.PromptID, &row.PromptVersion, &row.Capability,
		&row.Provider, &row.Model, &row.InputTokens, &row.OutputTokens, &nanos,
		&row.LatencyMs, &row.Success, &row.ErrorText, &row.UserID, &row.SessionID,
		&row.RequestID, &row.InputPreview, &row.OutputPreview, &row.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, store.Unavailablef("scan execution", err)
	}
	row.Cost = nanos
	return convert.Execution(row)
}
