// Package convert holds the pure translation layer between raw persisted
// column values and the in-memory record types. The embedded engine hands
// back text timestamps, JSON-encoded lists and integer nano-USD costs; the
// networked engine hands back native temporal, JSONB and NUMERIC values.
// Everything above the backends sees only the canonical types.
package convert

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/promptvault/promptvault/internal/models"
)

// TimeFormat is the canonical text encoding for timestamps in the
// embedded engine. Fixed-width fractional seconds keep lexicographic and
// chronological order identical, which the stable list ordering relies on.
const TimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// nanosPerUSD is the scale of the embedded engine's integer cost column.
var nanosPerUSD = decimal.New(1, 9)

// MaxPreviewBytes bounds the stored input/output content of an execution.
// Previews exist for debugging, not as a transcript store.
const MaxPreviewBytes = 10_000

// TruncatePreview bounds debug content to MaxPreviewBytes.
func TruncatePreview(s string) string {
	if len(s) <= MaxPreviewBytes {
		return s
	}
	return s[:MaxPreviewBytes]
}

// FormatTime encodes a timestamp for the embedded engine.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime accepts a native time.Time, a text timestamp, or nil.
func ParseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseTimeString(t)
	case []byte:
		return parseTimeString(string(t))
	default:
		return time.Time{}, fmt.Errorf("convert: unsupported time type %T", v)
	}
}

func parseTimeString(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{TimeFormat, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("convert: unparseable timestamp %q", s)
}

// ParseUUID accepts a string, raw 16-byte, uuid.UUID or nil form.
func ParseUUID(v any) (uuid.UUID, error) {
	switch id := v.(type) {
	case nil:
		return uuid.Nil, nil
	case uuid.UUID:
		return id, nil
	case [16]byte:
		return uuid.UUID(id), nil
	case string:
		return uuid.Parse(id)
	case []byte:
		if len(id) == 16 {
			return uuid.FromBytes(id)
		}
		return uuid.Parse(string(id))
	default:
		return uuid.Nil, fmt.Errorf("convert: unsupported uuid type %T", v)
	}
}

// ParseDecimal parses a decimal value from its text form without passing
// through float64. Integer inputs are taken at face value.
func ParseDecimal(v any) (decimal.Decimal, error) {
	switch d := v.(type) {
	case nil:
		return decimal.Zero, nil
	case string:
		if d == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(d)
	case []byte:
		return ParseDecimal(string(d))
	case int64:
		return decimal.NewFromInt(d), nil
	case decimal.Decimal:
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("convert: unsupported decimal type %T", v)
	}
}

// CostToNanos converts a USD cost to the embedded engine's integer
// column. Costs are produced by the pricing table and never need more
// than nine fractional digits; anything finer is rounded half-up.
func CostToNanos(d decimal.Decimal) int64 {
	return d.Mul(nanosPerUSD).Round(0).IntPart()
}

// CostFromNanos is the inverse of CostToNanos.
func CostFromNanos(n int64) decimal.Decimal {
	return decimal.NewFromInt(n).Div(nanosPerUSD)
}

// EncodeVariables serializes a variable list to its canonical JSON text.
func EncodeVariables(vars []models.Variable) (string, error) {
	if len(vars) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("convert: encode variables: %w", err)
	}
	return string(b), nil
}

// DecodeVariables parses the JSON text or JSONB form of a variable list.
func DecodeVariables(v any) ([]models.Variable, error) {
	raw, err := rawJSON(v)
	if err != nil || len(raw) == 0 {
		return nil, err
	}
	var vars []models.Variable
	if err := json.Unmarshal(raw, &vars); err != nil {
		return nil, fmt.Errorf("convert: decode variables: %w", err)
	}
	if len(vars) == 0 {
		return nil, nil
	}
	return vars, nil
}

// EncodeTags serializes a tag list to its canonical JSON text.
func EncodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("convert: encode tags: %w", err)
	}
	return string(b), nil
}

// DecodeTags parses the JSON text or JSONB form of a tag list.
func DecodeTags(v any) ([]string, error) {
	raw, err := rawJSON(v)
	if err != nil || len(raw) == 0 {
		return nil, err
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, fmt.Errorf("convert: decode tags: %w", err)
	}
	if len(tags) == 0 {
		return nil, nil
	}
	return tags, nil
}

func rawJSON(v any) ([]byte, error) {
	switch j := v.(type) {
	case nil:
		return nil, nil
	case string:
		if j == "" || j == "null" {
			return nil, nil
		}
		return []byte(j), nil
	case []byte:
		if len(j) == 0 || string(j) == "null" {
			return nil, nil
		}
		return j, nil
	default:
		return nil, fmt.Errorf("convert: unsupported json column type %T", v)
	}
}
