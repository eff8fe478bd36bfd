// Package seed installs the built-in, non-editable prompt definitions at
// startup. Installation is idempotent: slugs that already exist are left
// alone, so re-running against a seeded store is a no-op.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/promptvault/promptvault/internal/models"
	"github.com/promptvault/promptvault/internal/store"
)

// Definitions is the fixed list of system prompts shipped with the
// server. They are created with the system flag set, which makes them
// immutable through the public API.
func Definitions() []models.CreatePrompt {
	return []models.CreatePrompt{
		{
			Name:        "Summarize Text",
			Slug:        "summarize-text",
			Description: "Condense a document into a short summary.",
			Category:    models.CategorySummarization,
			Tags:        []string{"builtin", "text"},
			Template:    "Summarize the following text in at most {{max_sentences}} sentences:\n\n{{text}}",
			Variables: []models.Variable{
				{Name: "text", Description: "The text to summarize", Required: true},
				{Name: "max_sentences", Description: "Upper bound on summary length", Required: false, Type: "number"},
			},
			IsSystem: true,
		},
		{
			Name:        "Extract Entities",
			Slug:        "extract-entities",
			Description: "Pull named entities out of free text as JSON.",
			Category:    models.CategoryExtraction,
			Tags:        []string{"builtin", "structured"},
			Template:    "Extract all named entities from the text below. Respond with a JSON array of {\"name\", \"type\"} objects and nothing else.\n\nText:\n{{text}}",
			Variables: []models.Variable{
				{Name: "text", Description: "The text to analyze", Required: true},
			},
			IsSystem: true,
		},
		{
			Name:        "Classify Sentiment",
			Slug:        "classify-sentiment",
			Description: "Label text as positive, negative or neutral.",
			Category:    models.CategoryClassification,
			Tags:        []string{"builtin", "text"},
			Template:    "Classify the sentiment of the following text as exactly one of: positive, negative, neutral.\n\n{{text}}",
			Variables: []models.Variable{
				{Name: "text", Description: "The text to classify", Required: true},
			},
			IsSystem: true,
		},
	}
}

// Install writes any missing built-in prompts. Each definition is checked
// and created inside one unit of work so a partially seeded store can
// never be observed.
func Install(ctx context.Context, backend store.Backend) error {
	return backend.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		prompts := uow.Prompts()
		for _, def := range Definitions() {
			_, err := prompts.GetBySlug(ctx, def.Slug)
			if err == nil {
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("seed: check %s: %w", def.Slug, err)
			}

			if _, err := prompts.Create(ctx, def); err != nil {
				return fmt.Errorf("seed: create %s: %w", def.Slug, err)
			}
			slog.Info("installed system prompt", "slug", def.Slug)
		}
		return nil
	})
}
