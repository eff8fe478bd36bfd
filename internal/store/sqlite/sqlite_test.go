package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptvault/promptvault/internal/models"
	"github.com/promptvault/promptvault/internal/pricing"
	"github.com/promptvault/promptvault/internal/store"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := New(":memory:", testPrices())
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	require.NoError(t, b.Initialize(context.Background()))
	return b
}

// testPrices uses round per-million rates so expected costs are exact
// short decimals.
func testPrices() *pricing.Table {
	return pricing.NewTable(map[string]pricing.Rate{
		"test-model": {
			InputPerMTok:  decimal.NewFromInt(10),
			OutputPerMTok: decimal.NewFromInt(20),
		},
	})
}

func createPrompt(t *testing.T, b *Backend, in models.CreatePrompt) *models.Prompt {
	t.Helper()
	var p *models.Prompt
	err := b.UnitOfWork(context.Background(), func(uow store.UnitOfWork) error {
		var err error
		p, err = uow.Prompts().Create(context.Background(), in)
		return err
	})
	require.NoError(t, err)
	return p
}

func basicCreate(slug string) models.CreatePrompt {
	return models.CreatePrompt{
		Name:     "Test Prompt",
		Slug:     slug,
		Template: "Do something with {{input}}",
		Variables: []models.Variable{
			{Name: "input", Required: true},
		},
	}
}

func TestCreateStartsAtVersionOne(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	p := createPrompt(t, b, basicCreate("test-prompt"))
	assert.Equal(t, 1, p.Version)
	assert.Equal(t, models.CategoryGeneral, p.Category)
	assert.NotEqual(t, uuid.Nil, p.ID)

	err := b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		versions, err := uow.Prompts().ListVersions(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, versions, 1)
		assert.Equal(t, 1, versions[0].Version)
		assert.Equal(t, p.Template, versions[0].Template)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateContentBumpsVersion(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	p := createPrompt(t, b, basicCreate("bump-me"))

	tpl := "A different template with {{input}}"
	err := b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		updated, err := uow.Prompts().Update(ctx, p.ID, models.UpdatePrompt{
			Template:   &tpl,
			ChangeNote: "rewrote the instruction",
		})
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Version)

		versions, err := uow.Prompts().ListVersions(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, 1, versions[0].Version)
		assert.Equal(t, 2, versions[1].Version)
		assert.Equal(t, "rewrote the instruction", versions[1].ChangeNote)
		assert.Equal(t, tpl, versions[1].Template)
		return nil
	})
	require.NoError(t, err)
}

func TestMetadataUpdateKeepsVersion(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	p := createPrompt(t, b, basicCreate("keep-version"))

	name := "Renamed"
	desc := "now with a description"
	tags := []string{"tagged"}
	err := b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		updated, err := uow.Prompts().Update(ctx, p.ID, models.UpdatePrompt{
			Name:        &name,
			Description: &desc,
			Tags:        &tags,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, updated.Version)
		assert.Equal(t, "Renamed", updated.Name)
		// Content fields are untouched by a metadata-only update.
		assert.Equal(t, p.Template, updated.Template)
		assert.Equal(t, p.Variables, updated.Variables)

		versions, err := uow.Prompts().ListVersions(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, versions, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestWhitespaceOnlyEditKeepsVersion(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	p := createPrompt(t, b, basicCreate("whitespace"))

	tpl := "Do something with {{input}}  \r\n"
	err := b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		updated, err := uow.Prompts().Update(ctx, p.ID, models.UpdatePrompt{Template: &tpl})
		require.NoError(t, err)
		assert.Equal(t, 1, updated.Version)

		versions, err := uow.Prompts().ListVersions(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, versions, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestDuplicateSlugRejected(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	createPrompt(t, b, basicCreate("taken"))

	err := b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		_, err := uow.Prompts().Create(ctx, basicCreate("taken"))
		return err
	})
	assert.ErrorIs(t, err, store.ErrDuplicateSlug)
}

func TestSlugReusableAfterSoftDelete(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	p := createPrompt(t, b, basicCreate("recycled"))

	err := b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		return uow.Prompts().Delete(ctx, p.ID)
	})
	require.NoError(t, err)

	// The slug is freed by the soft delete; the old record stays reachable
	// by id.
	p2 := createPrompt(t, b, basicCreate("recycled"))
	assert.NotEqual(t, p.ID, p2.ID)

	err = b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		old, err := uow.Prompts().Get(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, old.IsDeleted)

		bySlug, err := uow.Prompts().GetBySlug(ctx, "recycled")
		require.NoError(t, err)
		assert.Equal(t, p2.ID, bySlug.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestSoftDeleteHidesFromListingAndSlug(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	p := createPrompt(t, b, basicCreate("hide-me"))

	err := b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		return uow.Prompts().Delete(ctx, p.ID)
	})
	require.NoError(t, err)

	err = b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		_, err := uow.Prompts().GetBySlug(ctx, "hide-me")
		assert.ErrorIs(t, err, store.ErrNotFound)

		prompts, total, err := uow.Prompts().List(ctx, store.PromptFilter{}, store.Page{})
		require.NoError(t, err)
		assert.Empty(t, prompts)
		assert.Zero(t, total)

		prompts, total, err = uow.Prompts().List(ctx, store.PromptFilter{IncludeDeleted: true}, store.Page{})
		require.NoError(t, err)
		assert.Len(t, prompts, 1)
		assert.Equal(t, int64(1), total)
		return nil
	})
	require.NoError(t, err)
}

func TestDeleteAlreadyDeletedSucceeds(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	p := createPrompt(t, b, basicCreate("twice"))

	for i := 0; i < 2; i++ {
		err := b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
			return uow.Prompts().Delete(ctx, p.ID)
		})
		require.NoError(t, err)
	}

	err := b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		return uow.Prompts().Delete(ctx, uuid.New())
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSystemPromptImmutable(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	in := basicCreate("builtin-thing")
	in.IsSystem = true
	p := createPrompt(t, b, in)

	name := "tampered"
	err := b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		_, err := uow.Prompts().Update(ctx, p.ID, models.UpdatePrompt{Name: &name})
		return err
	})
	assert.ErrorIs(t, err, store.ErrForbidden)
}

func TestUpdateRollbackLeavesNoPartialState(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	p := createPrompt(t, b, basicCreate("atomic"))

	injected := errors.New("injected failure")
	versionWriteSeam = func() error { return injected }
	defer func() { versionWriteSeam = nil }()

	tpl := "entirely new content {{input}}"
	err := b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		_, err := uow.Prompts().Update(ctx, p.ID, models.UpdatePrompt{Template: &tpl})
		return err
	})
	require.ErrorIs(t, err, injected)

	// The prompt-row write that preceded the failure must have been rolled
	// back with everything else.
	err = b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		cur, err := uow.Prompts().Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, cur.Version)
		assert.Equal(t, p.Template, cur.Template)

		versions, err := uow.Prompts().ListVersions(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, versions, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestGetVersion(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	p := createPrompt(t, b, basicCreate("versioned"))

	tpl := "second take {{input}}"
	err := b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		_, err := uow.Prompts().Update(ctx, p.ID, models.UpdatePrompt{Template: &tpl})
		return err
	})
	require.NoError(t, err)

	err = b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		v1, err := uow.Prompts().GetVersion(ctx, p.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, p.Template, v1.Template)

		v2, err := uow.Prompts().GetVersion(ctx, p.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, tpl, v2.Template)

		_, err = uow.Prompts().GetVersion(ctx, p.ID, 3)
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestHardDeleteRemovesHistory(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	p := createPrompt(t, b, basicCreate("purged"))

	err := b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		return uow.Prompts().HardDelete(ctx, p.ID)
	})
	require.NoError(t, err)

	err = b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		_, err := uow.Prompts().Get(ctx, p.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		versions, err := uow.Prompts().ListVersions(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, versions)

		return uow.Prompts().HardDelete(ctx, p.ID)
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListFiltersAndPagination(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	for _, in := range []models.CreatePrompt{
		{Name: "A", Slug: "cat-a", Category: models.CategorySummarization, Tags: []string{"x"}, Template: "t {{v}}"},
		{Name: "B", Slug: "cat-b", Category: models.CategorySummarization, Tags: []string{"y"}, Template: "t {{v}}"},
		{Name: "C", Slug: "cat-c", Category: models.CategoryExtraction, Tags: []string{"x", "y"}, Template: "t {{v}}"},
	} {
		createPrompt(t, b, in)
		time.Sleep(2 * time.Millisecond) // distinct created_at for ordering
	}

	err := b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		prompts, total, err := uow.Prompts().List(ctx,
			store.PromptFilter{Category: models.CategorySummarization}, store.Page{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, prompts, 2)

		prompts, total, err = uow.Prompts().List(ctx, store.PromptFilter{Tag: "x"}, store.Page{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		slugs := []string{prompts[0].Slug, prompts[1].Slug}
		assert.ElementsMatch(t, []string{"cat-a", "cat-c"}, slugs)

		// Newest first.
		prompts, _, err = uow.Prompts().List(ctx, store.PromptFilter{}, store.Page{})
		require.NoError(t, err)
		require.Len(t, prompts, 3)
		assert.Equal(t, "cat-c", prompts[0].Slug)
		assert.Equal(t, "cat-a", prompts[2].Slug)

		// Paging: total stays the full filter count.
		prompts, total, err = uow.Prompts().List(ctx, store.PromptFilter{}, store.Page{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, prompts, 1)
		assert.Equal(t, "cat-a", prompts[0].Slug)

		// Oversized limits are clamped rather than rejected.
		_, _, err = uow.Prompts().List(ctx, store.PromptFilter{}, store.Page{Limit: 10_000})
		require.NoError(t, err)

		_, _, err = uow.Prompts().List(ctx, store.PromptFilter{}, store.Page{Offset: -1})
		assert.ErrorIs(t, err, store.ErrValidation)
		return nil
	})
	require.NoError(t, err)
}

func TestRecordComputesCost(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	var exec *models.Execution
	err := b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		var err error
		exec, err = uow.Executions().Record(ctx, models.RecordExecution{
			Capability:   "chat",
			Provider:     "test",
			Model:        "test-model",
			InputTokens:  1_000,
			OutputTokens: 500,
			Success:      true,
			LatencyMs:    42,
		})
		return err
	})
	require.NoError(t, err)

	// 1000 * 10/1M + 500 * 20/1M = 0.01 + 0.01 = 0.02
	assert.True(t, exec.CostUSD.Equal(decimal.RequireFromString("0.02")), "got %s", exec.CostUSD)

	err = b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		got, err := uow.Executions().Get(ctx, exec.ID)
		require.NoError(t, err)
		assert.True(t, got.CostUSD.Equal(exec.CostUSD))
		assert.Equal(t, int64(42), got.LatencyMs)
		return nil
	})
	require.NoError(t, err)
}

func TestRecordRequiresCapability(t *testing.T) {
	b := newTestBackend(t)
	err := b.UnitOfWork(context.Background(), func(uow store.UnitOfWork) error {
		_, err := uow.Executions().Record(context.Background(), models.RecordExecution{
			Provider: "test", Model: "test-model",
		})
		return err
	})
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestRecordUnknownModelCostsZero(t *testing.T) {
	b := newTestBackend(t)
	var exec *models.Execution
	err := b.UnitOfWork(context.Background(), func(uow store.UnitOfWork) error {
		var err error
		exec, err = uow.Executions().Record(context.Background(), models.RecordExecution{
			Capability: "chat", Provider: "ollama", Model: "llama3",
			InputTokens: 9999, OutputTokens: 9999, Success: true,
		})
		return err
	})
	require.NoError(t, err)
	assert.True(t, exec.CostUSD.IsZero())
}

func TestRecordTruncatesPreviews(t *testing.T) {
	b := newTestBackend(t)
	long := make([]byte, 20_000)
	for i := range long {
		long[i] = 'a'
	}

	var exec *models.Execution
	err := b.UnitOfWork(context.Background(), func(uow store.UnitOfWork) error {
		var err error
		exec, err = uow.Executions().Record(context.Background(), models.RecordExecution{
			Capability: "chat", Provider: "test", Model: "test-model",
			InputPreview: string(long), OutputPreview: string(long), Success: true,
		})
		return err
	})
	require.NoError(t, err)
	assert.Len(t, exec.InputPreview, 10_000)
	assert.Len(t, exec.OutputPreview, 10_000)
}

func TestUsageStatsExactAggregation(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	// Three costs that are classic float troublemakers: 0.01 + 0.02 + 0.03
	// must sum to exactly 0.06.
	err := b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		for _, inputTokens := range []int{1_000, 2_000, 3_000} {
			_, err := uow.Executions().Record(ctx, models.RecordExecution{
				Capability: "chat", Provider: "test", Model: "test-model",
				InputTokens: inputTokens, Success: true,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		stats, err := uow.Executions().UsageStats(ctx, nil, nil)
		require.NoError(t, err)

		assert.Equal(t, int64(3), stats.TotalRequests)
		assert.Equal(t, int64(6_000), stats.TotalTokens)
		assert.True(t, stats.TotalCostUSD.Equal(decimal.RequireFromString("0.06")),
			"got %s", stats.TotalCostUSD)

		require.Len(t, stats.ByProvider, 1)
		assert.Equal(t, "test", stats.ByProvider[0].Provider)
		assert.Equal(t, int64(3), stats.ByProvider[0].TotalRequests)
		assert.True(t, stats.ByProvider[0].TotalCostUSD.Equal(decimal.RequireFromString("0.06")))
		return nil
	})
	require.NoError(t, err)
}

func TestUsageStatsDateRange(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	err := b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		_, err := uow.Executions().Record(ctx, models.RecordExecution{
			Capability: "chat", Provider: "test", Model: "test-model",
			InputTokens: 1_000, Success: true,
		})
		return err
	})
	require.NoError(t, err)

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)
	longPast := past.Add(-time.Hour)

	err = b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		stats, err := uow.Executions().UsageStats(ctx, &past, &future)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.TotalRequests)

		stats, err = uow.Executions().UsageStats(ctx, &longPast, &past)
		require.NoError(t, err)
		assert.Zero(t, stats.TotalRequests)
		assert.Empty(t, stats.ByProvider)
		assert.True(t, stats.TotalCostUSD.IsZero())

		_, err = uow.Executions().UsageStats(ctx, &future, &past)
		assert.ErrorIs(t, err, store.ErrValidation)
		return nil
	})
	require.NoError(t, err)
}

func TestExecutionListFilters(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	p := createPrompt(t, b, basicCreate("tracked"))
	version := 1

	err := b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		execs := []models.RecordExecution{
			{Capability: "chat", Provider: "test", Model: "test-model", PromptID: &p.ID, PromptVersion: &version, Success: true},
			{Capability: "chat", Provider: "other", Model: "test-model", Success: false, ErrorText: "boom"},
			{Capability: "embed", Provider: "test", Model: "test-model", Success: true},
		}
		for _, e := range execs {
			if _, err := uow.Executions().Record(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		_, total, err := uow.Executions().List(ctx, store.ExecutionFilter{Provider: "test"}, store.Page{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)

		_, total, err = uow.Executions().List(ctx, store.ExecutionFilter{Capability: "embed"}, store.Page{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)

		ok := true
		_, total, err = uow.Executions().List(ctx, store.ExecutionFilter{Success: &ok}, store.Page{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)

		execs, total, err := uow.Executions().List(ctx, store.ExecutionFilter{PromptID: &p.ID}, store.Page{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, execs, 1)
		require.NotNil(t, execs[0].PromptID)
		assert.Equal(t, p.ID, *execs[0].PromptID)
		require.NotNil(t, execs[0].PromptVersion)
		assert.Equal(t, 1, *execs[0].PromptVersion)
		return nil
	})
	require.NoError(t, err)
}

func TestUnitOfWorkRollsBackOnError(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		if _, err := uow.Prompts().Create(ctx, basicCreate("ghost")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = b.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		_, err := uow.Prompts().GetBySlug(ctx, "ghost")
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestInitializeIdempotent(t *testing.T) {
	b, err := New(":memory:", testPrices())
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.Initialize(ctx))
	require.NoError(t, b.Initialize(ctx))
	require.NoError(t, b.Ping(ctx))
}
