// Package pricing holds the per-million-token rate table the store uses
// to compute execution cost. The store is the sole authority for cost;
// caller-supplied numbers are never trusted.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Rate is a USD price pair per one million tokens.
type Rate struct {
	InputPerMTok  decimal.Decimal
	OutputPerMTok decimal.Decimal
}

// Table resolves model names to rates. Lookup order is deterministic: a
// provider-qualified key ("provider/model") wins over the bare model
// name; a model found in neither prices as zero. Unknown and local models
// are free rather than an error, so pricing gaps never block audit
// logging.
type Table struct {
	rates map[string]Rate
}

func usd(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func rate(in, out string) Rate {
	return Rate{InputPerMTok: usd(in), OutputPerMTok: usd(out)}
}

// Default returns the built-in reference table.
func Default() *Table {
	return &Table{rates: map[string]Rate{
		// OpenAI
		"gpt-4":         rate("30", "60"),
		"gpt-4-turbo":   rate("10", "30"),
		"gpt-4o":        rate("2.50", "10"),
		"gpt-4o-mini":   rate("0.15", "0.60"),
		"gpt-3.5-turbo": rate("0.50", "1.50"),

		// Anthropic
		"claude-3-opus-20240229":   rate("15", "75"),
		"claude-3-haiku-20240307":  rate("0.25", "1.25"),
		"claude-sonnet-4-20250514": rate("3", "15"),
		"claude-opus-4-20250514":   rate("15", "75"),
	}}
}

// NewTable builds a table from explicit rates, for tests and overrides.
func NewTable(rates map[string]Rate) *Table {
	cp := make(map[string]Rate, len(rates))
	for k, v := range rates {
		cp[k] = v
	}
	return &Table{rates: cp}
}

// Lookup resolves the rate for a provider/model pair.
func (t *Table) Lookup(provider, model string) (Rate, bool) {
	if provider != "" {
		if r, ok := t.rates[provider+"/"+model]; ok {
			return r, true
		}
	}
	r, ok := t.rates[model]
	return r, ok
}

var mTok = decimal.NewFromInt(1_000_000)

// Cost computes the USD cost of one call. Unknown models cost zero.
func (t *Table) Cost(provider, model string, inputTokens, outputTokens int) decimal.Decimal {
	r, ok := t.Lookup(provider, model)
	if !ok {
		return decimal.Zero
	}
	in := r.InputPerMTok.Mul(decimal.NewFromInt(int64(inputTokens))).Div(mTok)
	out := r.OutputPerMTok.Mul(decimal.NewFromInt(int64(outputTokens))).Div(mTok)
	return in.Add(out)
}
