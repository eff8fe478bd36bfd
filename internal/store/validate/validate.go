// Package validate holds the stateless precondition checks shared by both
// backends. Everything here runs before any I/O, so malformed input never
// puts partial state at risk.
package validate

import (
	"regexp"
	"strings"
	"time"

	"github.com/promptvault/promptvault/internal/models"
	"github.com/promptvault/promptvault/internal/store"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Pagination clamps an oversized page size down to the maximum, applies
// the default for a missing limit, and rejects negative offsets.
func Pagination(p store.Page) (store.Page, error) {
	if p.Offset < 0 {
		return store.Page{}, store.Invalidf("offset must not be negative, got %d", p.Offset)
	}
	if p.Limit < 0 {
		return store.Page{}, store.Invalidf("limit must not be negative, got %d", p.Limit)
	}
	if p.Limit == 0 {
		p.Limit = store.DefaultPageSize
	}
	if p.Limit > store.MaxPageSize {
		p.Limit = store.MaxPageSize
	}
	return p, nil
}

// PromptCreate checks a create input field by field.
func PromptCreate(in models.CreatePrompt) error {
	if strings.TrimSpace(in.Name) == "" {
		return store.Invalidf("name is required")
	}
	if in.Slug == "" {
		return store.Invalidf("slug is required")
	}
	if !slugPattern.MatchString(in.Slug) {
		return store.Invalidf("slug %q must be lowercase letters, digits and hyphens", in.Slug)
	}
	if strings.TrimSpace(in.Template) == "" {
		return store.Invalidf("template is required")
	}
	return variables(in.Variables)
}

// PromptUpdate checks a sparse partial update. Unset fields are skipped.
func PromptUpdate(u models.UpdatePrompt) error {
	if u.IsZero() {
		return store.Invalidf("update carries no fields")
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return store.Invalidf("name must not be empty")
	}
	if u.Template != nil && strings.TrimSpace(*u.Template) == "" {
		return store.Invalidf("template must not be empty")
	}
	if u.Variables != nil {
		return variables(*u.Variables)
	}
	return nil
}

func variables(vars []models.Variable) error {
	seen := make(map[string]bool, len(vars))
	for i, v := range vars {
		if strings.TrimSpace(v.Name) == "" {
			return store.Invalidf("variable %d has an empty name", i)
		}
		if seen[v.Name] {
			return store.Invalidf("duplicate variable name %q", v.Name)
		}
		seen[v.Name] = true
	}
	return nil
}

// DateRange rejects an inverted start/end pair.
func DateRange(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return store.Invalidf("end date %s is before start date %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return nil
}

// ContentChanged decides whether an update warrants a version bump.
// Template text is compared after whitespace normalization; the variable
// list is compared by canonical field values.
func ContentChanged(cur *models.Prompt, template string, vars []models.Variable) bool {
	if normalizeTemplate(template) != normalizeTemplate(cur.Template) {
		return true
	}
	return !variablesEqual(cur.Variables, vars)
}

func normalizeTemplate(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func variablesEqual(a, b []models.Variable) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MergeUpdate applies the set fields of a partial update onto a copy of
// the current record, leaving everything else untouched. The version
// number and timestamps are the backend's to manage.
func MergeUpdate(cur *models.Prompt, u models.UpdatePrompt) *models.Prompt {
	next := *cur
	if u.Name != nil {
		next.Name = *u.Name
	}
	if u.Description != nil {
		next.Description = *u.Description
	}
	if u.Category != nil {
		next.Category = *u.Category
	}
	if u.Tags != nil {
		next.Tags = *u.Tags
	}
	if u.Template != nil {
		next.Template = *u.Template
	}
	if u.Variables != nil {
		next.Variables = *u.Variables
	}
	return &next
}
