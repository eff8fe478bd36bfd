package convert

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/promptvault/promptvault/internal/models"
)

// PromptRow is the raw column tuple of one prompts row. Variant columns
// are typed any because the two engines hand back different driver types;
// the converter normalizes them.
type PromptRow struct {
	ID          any
	Name        string
	Slug        string
	Description string
	Category    string
	Tags        any
	Template    string
	Variables   any
	Version     int
	IsSystem    bool
	IsDeleted   bool
	CreatedAt   any
	UpdatedAt   any
}

// Prompt converts a raw prompts row to the canonical record.
func Prompt(r PromptRow) (*models.Prompt, error) {
	id, err := ParseUUID(r.ID)
	if err != nil {
		return nil, fmt.Errorf("convert: prompt id: %w", err)
	}
	tags, err := DecodeTags(r.Tags)
	if err != nil {
		return nil, err
	}
	vars, err := DecodeVariables(r.Variables)
	if err != nil {
		return nil, err
	}
	createdAt, err := ParseTime(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("convert: prompt created_at: %w", err)
	}
	updatedAt, err := ParseTime(r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("convert: prompt updated_at: %w", err)
	}

	return &models.Prompt{
		ID:          id,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		Category:    models.Category(r.Category),
		Tags:        tags,
		Template:    r.Template,
		Variables:   vars,
		Version:     r.Version,
		IsSystem:    r.IsSystem,
		IsDeleted:   r.IsDeleted,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// PromptVersionRow is the raw column tuple of one prompt_versions row.
type PromptVersionRow struct {
	ID         any
	PromptID   any
	Version    int
	Template   string
	Variables  any
	ChangeNote string
	CreatedAt  any
}

// PromptVersion converts a raw prompt_versions row to the canonical record.
func PromptVersion(r PromptVersionRow) (*models.PromptVersion, error) {
	id, err := ParseUUID(r.ID)
	if err != nil {
		return nil, fmt.Errorf("convert: version id: %w", err)
	}
	promptID, err := ParseUUID(r.PromptID)
	if err != nil {
		return nil, fmt.Errorf("convert: version prompt_id: %w", err)
	}
	vars, err := DecodeVariables(r.Variables)
	if err != nil {
		return nil, err
	}
	createdAt, err := ParseTime(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("convert: version created_at: %w", err)
	}

	return &models.PromptVersion{
		ID:         id,
		PromptID:   promptID,
		Version:    r.Version,
		Template:   r.Template,
		Variables:  vars,
		ChangeNote: r.ChangeNote,
		CreatedAt:  createdAt,
	}, nil
}

// ExecutionRow is the raw column tuple of one executions row. Cost arrives
// as integer nanos from the embedded engine and as NUMERIC text from the
// networked engine.
type ExecutionRow struct {
	ID            any
	PromptID      any
	PromptVersion *int
	Capability    string
	Provider      string
	Model         string
	InputTokens   int
	OutputTokens  int
	Cost          any
	LatencyMs     int64
	Success       bool
	ErrorText     string
	UserID        string
	SessionID     string
	RequestID     string
	InputPreview  string
	OutputPreview string
	CreatedAt     any
}

// Execution converts a raw executions row to the canonical record.
func Execution(r ExecutionRow) (*models.Execution, error) {
	id, err := ParseUUID(r.ID)
	if err != nil {
		return nil, fmt.Errorf("convert: execution id: %w", err)
	}
	createdAt, err := ParseTime(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("convert: execution created_at: %w", err)
	}

	e := &models.Execution{
		ID:            id,
		PromptVersion: r.PromptVersion,
		Capability:    r.Capability,
		Provider:      r.Provider,
		Model:         r.Model,
		InputTokens:   r.InputTokens,
		OutputTokens:  r.OutputTokens,
		LatencyMs:     r.LatencyMs,
		Success:       r.Success,
		ErrorText:     r.ErrorText,
		UserID:        r.UserID,
		SessionID:     r.SessionID,
		RequestID:     r.RequestID,
		InputPreview:  r.InputPreview,
		OutputPreview: r.OutputPreview,
		CreatedAt:     createdAt,
	}

	if r.PromptID != nil {
		pid, err := ParseUUID(r.PromptID)
		if err != nil {
			return nil, fmt.Errorf("convert: execution prompt_id: %w", err)
		}
		if pid != uuid.Nil {
			e.PromptID = &pid
		}
	}

	switch c := r.Cost.(type) {
	case int64:
		e.CostUSD = CostFromNanos(c)
	default:
		d, err := ParseDecimal(c)
		if err != nil {
			return nil, fmt.Errorf("convert: execution cost: %w", err)
		}
		e.CostUSD = d
	}

	return e, nil
}
