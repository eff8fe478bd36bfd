// Package query generates engine-specific SQL text and parameters for the
// repository layer. Filter composition, pagination and upsert shapes live
// in the shared builder; a Dialect contributes only placeholder syntax,
// JSON membership operators and the paging clause. Values are always
// parameterized, never interpolated.
package query

import (
	"fmt"
	"strings"
	"time"
)

// Result pairs query text with its positional parameters.
type Result struct {
	SQL  string
	Args []any
}

// Op is a filter predicate operator.
type Op int

const (
	// OpEq is column = value.
	OpEq Op = iota
	// OpGte is column >= value.
	OpGte
	// OpLte is column <= value.
	OpLte
	// OpJSONHas tests membership of value in a JSON array column.
	OpJSONHas
)

// Cond is one AND-combined predicate.
type Cond struct {
	Column string
	Op     Op
	Value  any
}

// Dialect is the part of SQL generation that differs between engines.
type Dialect interface {
	// Name of the engine, for diagnostics.
	Name() string
	// Placeholder for the n-th parameter (1-based).
	Placeholder(n int) string
	// JSONHas renders a membership test for a JSON array column against
	// the given placeholder.
	JSONHas(column, placeholder string) string
	// JSONHasArg shapes the bound value for a JSONHas predicate (the
	// containment operator wants a JSON document, json_each wants the
	// bare scalar).
	JSONHasArg(value any) any
	// TimeArg shapes a timestamp for binding (text for the embedded
	// engine, native for the networked one).
	TimeArg(t time.Time) any
	// Paging renders the LIMIT/OFFSET clause given two placeholders.
	Paging(limitPH, offsetPH string) string
}

// Builder composes filters and pagination into engine SQL.
type Builder struct {
	d Dialect
}

// New returns a builder for the given dialect.
func New(d Dialect) *Builder {
	return &Builder{d: d}
}

// Dialect exposes the builder's dialect.
func (b *Builder) Dialect() Dialect { return b.d }

// FilteredSelect builds SELECT columns FROM table with AND-combined
// predicates and a caller-supplied ORDER BY. Every listing query passes
// an order with a deterministic tie-break column.
func (b *Builder) FilteredSelect(table string, columns []string, conds []Cond, orderBy string) Result {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(table)

	args := b.writeWhere(&sb, conds, 0)

	if orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(orderBy)
	}
	return Result{SQL: sb.String(), Args: args}
}

// PaginatedSelect is FilteredSelect plus the engine's paging clause.
func (b *Builder) PaginatedSelect(table string, columns []string, conds []Cond, orderBy string, limit, offset int) Result {
	r := b.FilteredSelect(table, columns, conds, orderBy)
	n := len(r.Args)
	r.SQL += " " + b.d.Paging(b.d.Placeholder(n+1), b.d.Placeholder(n+2))
	r.Args = append(r.Args, limit, offset)
	return r
}

// Count builds SELECT COUNT(*) with the same predicate composition as the
// matching select, so a listing and its total always agree.
func (b *Builder) Count(table string, conds []Cond) Result {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(table)
	args := b.writeWhere(&sb, conds, 0)
	return Result{SQL: sb.String(), Args: args}
}

// Upsert builds INSERT ... ON CONFLICT. With no update columns the
// conflicting insert becomes a no-op (DO NOTHING), which the seed loader
// relies on for idempotent installs.
func (b *Builder) Upsert(table string, columns, conflict, update []string, values []any) Result {
	if len(columns) != len(values) {
		panic(fmt.Sprintf("query: upsert %s: %d columns with %d values", table, len(columns), len(values)))
	}

	phs := make([]string, len(columns))
	for i := range columns {
		phs[i] = b.d.Placeholder(i + 1)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO ",
		table, strings.Join(columns, ", "), strings.Join(phs, ", "), strings.Join(conflict, ", "))

	if len(update) == 0 {
		sb.WriteString("NOTHING")
		return Result{SQL: sb.String(), Args: values}
	}

	sets := make([]string, len(update))
	for i, col := range update {
		sets[i] = fmt.Sprintf("%s = excluded.%s", col, col)
	}
	sb.WriteString("UPDATE SET ")
	sb.WriteString(strings.Join(sets, ", "))
	return Result{SQL: sb.String(), Args: values}
}

func (b *Builder) writeWhere(sb *strings.Builder, conds []Cond, offset int) []any {
	if len(conds) == 0 {
		return nil
	}
	args := make([]any, 0, len(conds))
	parts := make([]string, 0, len(conds))
	for i, c := range conds {
		ph := b.d.Placeholder(offset + i + 1)
		switch c.Op {
		case OpEq:
			parts = append(parts, fmt.Sprintf("%s = %s", c.Column, ph))
		case OpGte:
			parts = append(parts, fmt.Sprintf("%s >= %s", c.Column, ph))
		case OpLte:
			parts = append(parts, fmt.Sprintf("%s <= %s", c.Column, ph))
		case OpJSONHas:
			parts = append(parts, b.d.JSONHas(c.Column, ph))
		default:
			panic(fmt.Sprintf("query: unknown op %d", c.Op))
		}
		if c.Op == OpJSONHas {
			args = append(args, b.d.JSONHasArg(c.Value))
		} else {
			args = append(args, c.Value)
		}
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(parts, " AND "))
	return args
}
