package query

import (
	"time"

	"github.com/promptvault/promptvault/internal/store"
)

// PromptConds translates a prompt listing filter into predicate form.
// Both backends build their listing and count queries from this one
// composition so a page and its total never disagree.
func PromptConds(f store.PromptFilter) []Cond {
	var conds []Cond
	if !f.IncludeDeleted {
		conds = append(conds, Cond{Column: "is_deleted", Op: OpEq, Value: false})
	}
	if f.Category != "" {
		conds = append(conds, Cond{Column: "category", Op: OpEq, Value: string(f.Category)})
	}
	if f.Tag != "" {
		conds = append(conds, Cond{Column: "tags", Op: OpJSONHas, Value: f.Tag})
	}
	if f.IsSystem != nil {
		conds = append(conds, Cond{Column: "is_system", Op: OpEq, Value: *f.IsSystem})
	}
	return conds
}

// ExecutionConds translates an execution listing filter.
func ExecutionConds(d Dialect, f store.ExecutionFilter) []Cond {
	var conds []Cond
	if f.Capability != "" {
		conds = append(conds, Cond{Column: "capability", Op: OpEq, Value: f.Capability})
	}
	if f.Provider != "" {
		conds = append(conds, Cond{Column: "provider", Op: OpEq, Value: f.Provider})
	}
	if f.Model != "" {
		conds = append(conds, Cond{Column: "model", Op: OpEq, Value: f.Model})
	}
	if f.PromptID != nil {
		conds = append(conds, Cond{Column: "prompt_id", Op: OpEq, Value: f.PromptID.String()})
	}
	if f.Success != nil {
		conds = append(conds, Cond{Column: "success", Op: OpEq, Value: *f.Success})
	}
	return append(conds, RangeConds(d, "created_at", f.Since, f.Until)...)
}

// RangeConds builds the inclusive date-range predicates shared by
// listings and the usage aggregation.
func RangeConds(d Dialect, column string, start, end *time.Time) []Cond {
	var conds []Cond
	if start != nil {
		conds = append(conds, Cond{Column: column, Op: OpGte, Value: d.TimeArg(*start)})
	}
	if end != nil {
		conds = append(conds, Cond{Column: column, Op: OpLte, Value: d.TimeArg(*end)})
	}
	return conds
}
