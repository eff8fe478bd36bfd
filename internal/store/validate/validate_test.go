package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptvault/promptvault/internal/models"
	"github.com/promptvault/promptvault/internal/store"
)

func strPtr(s string) *string { return &s }

func TestPagination(t *testing.T) {
	p, err := Pagination(store.Page{})
	require.NoError(t, err)
	assert.Equal(t, store.DefaultPageSize, p.Limit)
	assert.Equal(t, 0, p.Offset)

	p, err = Pagination(store.Page{Limit: 55, Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, 55, p.Limit)
	assert.Equal(t, 10, p.Offset)

	p, err = Pagination(store.Page{Limit: store.MaxPageSize + 1})
	require.NoError(t, err)
	assert.Equal(t, store.MaxPageSize, p.Limit)

	_, err = Pagination(store.Page{Offset: -1})
	assert.ErrorIs(t, err, store.ErrValidation)

	_, err = Pagination(store.Page{Limit: -5})
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestPromptCreate(t *testing.T) {
	valid := models.CreatePrompt{
		Name:     "Summarize",
		Slug:     "summarize-text",
		Template: "Summarize {{text}}",
	}
	assert.NoError(t, PromptCreate(valid))

	cases := []struct {
		name   string
		mutate func(*models.CreatePrompt)
	}{
		{"empty name", func(c *models.CreatePrompt) { c.Name = "  " }},
		{"empty slug", func(c *models.CreatePrompt) { c.Slug = "" }},
		{"uppercase slug", func(c *models.CreatePrompt) { c.Slug = "Summarize-Text" }},
		{"trailing hyphen", func(c *models.CreatePrompt) { c.Slug = "summarize-" }},
		{"double hyphen", func(c *models.CreatePrompt) { c.Slug = "summarize--text" }},
		{"spaces in slug", func(c *models.CreatePrompt) { c.Slug = "summarize text" }},
		{"empty template", func(c *models.CreatePrompt) { c.Template = " \n " }},
		{"unnamed variable", func(c *models.CreatePrompt) {
			c.Variables = []models.Variable{{Name: ""}}
		}},
		{"duplicate variable", func(c *models.CreatePrompt) {
			c.Variables = []models.Variable{{Name: "x"}, {Name: "x"}}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			assert.ErrorIs(t, PromptCreate(in), store.ErrValidation)
		})
	}
}

func TestPromptUpdate(t *testing.T) {
	assert.ErrorIs(t, PromptUpdate(models.UpdatePrompt{}), store.ErrValidation)

	assert.NoError(t, PromptUpdate(models.UpdatePrompt{Name: strPtr("New Name")}))
	assert.ErrorIs(t, PromptUpdate(models.UpdatePrompt{Name: strPtr("  ")}), store.ErrValidation)
	assert.ErrorIs(t, PromptUpdate(models.UpdatePrompt{Template: strPtr("")}), store.ErrValidation)

	vars := []models.Variable{{Name: "a"}, {Name: "a"}}
	assert.ErrorIs(t, PromptUpdate(models.UpdatePrompt{Variables: &vars}), store.ErrValidation)
}

func TestDateRange(t *testing.T) {
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, DateRange(nil, nil))
	assert.NoError(t, DateRange(&early, nil))
	assert.NoError(t, DateRange(nil, &late))
	assert.NoError(t, DateRange(&early, &late))
	assert.NoError(t, DateRange(&early, &early))
	assert.ErrorIs(t, DateRange(&late, &early), store.ErrValidation)
}

func TestContentChanged(t *testing.T) {
	cur := &models.Prompt{
		Template:  "Summarize {{text}}\n",
		Variables: []models.Variable{{Name: "text", Required: true}},
	}

	// Whitespace-only edits are not content changes.
	assert.False(t, ContentChanged(cur, "Summarize {{text}}", cur.Variables))
	assert.False(t, ContentChanged(cur, "Summarize {{text}}  \r\n", cur.Variables))
	assert.False(t, ContentChanged(cur, "\nSummarize {{text}}\n\n", cur.Variables))

	assert.True(t, ContentChanged(cur, "Condense {{text}}", cur.Variables))
	assert.True(t, ContentChanged(cur, cur.Template, nil))
	assert.True(t, ContentChanged(cur, cur.Template, []models.Variable{{Name: "text"}}))
	assert.True(t, ContentChanged(cur, cur.Template, []models.Variable{
		{Name: "text", Required: true}, {Name: "extra"},
	}))
}

func TestMergeUpdate(t *testing.T) {
	cur := &models.Prompt{
		Name:        "Old",
		Description: "old description",
		Category:    models.CategoryGeneral,
		Tags:        []string{"one"},
		Template:    "old {{x}}",
		Variables:   []models.Variable{{Name: "x"}},
		Version:     3,
	}

	cat := models.CategorySummarization
	next := MergeUpdate(cur, models.UpdatePrompt{
		Name:     strPtr("New"),
		Category: &cat,
	})

	assert.Equal(t, "New", next.Name)
	assert.Equal(t, models.CategorySummarization, next.Category)
	// Unset fields keep their current values.
	assert.Equal(t, cur.Description, next.Description)
	assert.Equal(t, cur.Tags, next.Tags)
	assert.Equal(t, cur.Template, next.Template)
	assert.Equal(t, cur.Variables, next.Variables)
	assert.Equal(t, cur.Version, next.Version)

	// The source record is never mutated.
	assert.Equal(t, "Old", cur.Name)
	assert.Equal(t, models.CategoryGeneral, cur.Category)
}
