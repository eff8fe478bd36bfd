package query

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/promptvault/promptvault/internal/store/convert"
)

// SQLiteDialect targets the embedded engine: ? placeholders, JSON stored
// as encoded text and probed with json_each, standard LIMIT/OFFSET.
type SQLiteDialect struct{}

func (SQLiteDialect) Name() string { return "sqlite" }

func (SQLiteDialect) Placeholder(int) string { return "?" }

func (SQLiteDialect) JSONHas(column, placeholder string) string {
	return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value = %s)", column, placeholder)
}

func (SQLiteDialect) JSONHasArg(value any) any { return value }

func (SQLiteDialect) TimeArg(t time.Time) any { return convert.FormatTime(t) }

func (SQLiteDialect) Paging(limitPH, offsetPH string) string {
	return fmt.Sprintf("LIMIT %s OFFSET %s", limitPH, offsetPH)
}

// PostgresDialect targets the networked engine: $n placeholders, native
// JSONB with the containment operator, standard LIMIT/OFFSET.
type PostgresDialect struct{}

func (PostgresDialect) Name() string { return "postgres" }

func (PostgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (PostgresDialect) JSONHas(column, placeholder string) string {
	return fmt.Sprintf("%s @> %s::jsonb", column, placeholder)
}

// JSONHasArg wraps the scalar in a one-element JSON array so the
// containment operator can test membership.
func (PostgresDialect) JSONHasArg(value any) any {
	b, err := json.Marshal([]any{value})
	if err != nil {
		return value
	}
	return string(b)
}

func (PostgresDialect) TimeArg(t time.Time) any { return t.UTC() }

func (PostgresDialect) Paging(limitPH, offsetPH string) string {
	return fmt.Sprintf("LIMIT %s OFFSET %s", limitPH, offsetPH)
}
