package models

import (
	"time"

	"github.com/google/uuid"
)

// Category tags a prompt with its broad purpose.
type Category string

const (
	CategoryGeneral        Category = "general"
	CategorySummarization  Category = "summarization"
	CategoryExtraction     Category = "extraction"
	CategoryClassification Category = "classification"
	CategoryGeneration     Category = "generation"
)

// Variable declares one template placeholder a prompt expects.
type Variable struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
	Type        string `json:"type,omitempty"` // string, number, boolean; empty means string
}

// Prompt is a named, slugged template whose content is versioned. The
// Template/Variables fields mirror the highest-numbered PromptVersion and
// are rewritten together with it inside one transaction.
type Prompt struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description,omitempty"`
	Category    Category   `json:"category"`
	Tags        []string   `json:"tags,omitempty"`
	Template    string     `json:"template"`
	Variables   []Variable `json:"variables,omitempty"`
	Version     int        `json:"version"`
	IsSystem    bool       `json:"is_system"`
	IsDeleted   bool       `json:"is_deleted"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PromptVersion is an immutable snapshot of a prompt's content at one
// version number. Rows are append-only.
type PromptVersion struct {
	ID         uuid.UUID  `json:"id"`
	PromptID   uuid.UUID  `json:"prompt_id"`
	Version    int        `json:"version"`
	Template   string     `json:"template"`
	Variables  []Variable `json:"variables,omitempty"`
	ChangeNote string     `json:"change_note,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CreatePrompt is the input to PromptRepository.Create.
type CreatePrompt struct {
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	Category    Category   `json:"category"`
	Tags        []string   `json:"tags"`
	Template    string     `json:"template"`
	Variables   []Variable `json:"variables"`
	IsSystem    bool       `json:"-"`
}

// UpdatePrompt carries a sparse partial update. Nil fields are left
// untouched; a version bump happens only when the template or variable
// list actually changes.
type UpdatePrompt struct {
	Name        *string     `json:"name,omitempty"`
	Description *string     `json:"description,omitempty"`
	Category    *Category   `json:"category,omitempty"`
	Tags        *[]string   `json:"tags,omitempty"`
	Template    *string     `json:"template,omitempty"`
	Variables   *[]Variable `json:"variables,omitempty"`
	ChangeNote  string      `json:"change_note,omitempty"`
}

// IsZero reports whether the partial update carries no fields at all.
func (u UpdatePrompt) IsZero() bool {
	return u.Name == nil && u.Description == nil && u.Category == nil &&
		u.Tags == nil && u.Template == nil && u.Variables == nil
}
