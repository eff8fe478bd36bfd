package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostExactDecimal(t *testing.T) {
	table := Default()

	// One million input tokens on gpt-4o must price at exactly 2.50 USD,
	// with no float drift anywhere in the path.
	cost := table.Cost("openai", "gpt-4o", 1_000_000, 0)
	assert.True(t, cost.Equal(decimal.RequireFromString("2.50")), "got %s", cost)

	// Mixed input and output.
	cost = table.Cost("openai", "gpt-4o", 1_000, 2_000)
	want := decimal.RequireFromString("0.0225") // 0.0025 + 0.02
	assert.True(t, cost.Equal(want), "got %s", cost)
}

func TestCostUnknownModelIsZero(t *testing.T) {
	table := Default()
	cost := table.Cost("ollama", "llama3", 50_000, 50_000)
	assert.True(t, cost.IsZero())
}

func TestCostZeroTokens(t *testing.T) {
	table := Default()
	assert.True(t, table.Cost("openai", "gpt-4", 0, 0).IsZero())
}

func TestProviderQualifiedKeyWins(t *testing.T) {
	table := NewTable(map[string]Rate{
		"shared-model":        {InputPerMTok: decimal.NewFromInt(1), OutputPerMTok: decimal.NewFromInt(2)},
		"acme/shared-model":   {InputPerMTok: decimal.NewFromInt(10), OutputPerMTok: decimal.NewFromInt(20)},
		"other/another-model": {InputPerMTok: decimal.NewFromInt(5), OutputPerMTok: decimal.NewFromInt(5)},
	})

	r, ok := table.Lookup("acme", "shared-model")
	require.True(t, ok)
	assert.True(t, r.InputPerMTok.Equal(decimal.NewFromInt(10)))

	// A provider with no qualified entry falls back to the bare name.
	r, ok = table.Lookup("someone-else", "shared-model")
	require.True(t, ok)
	assert.True(t, r.InputPerMTok.Equal(decimal.NewFromInt(1)))

	_, ok = table.Lookup("acme", "missing")
	assert.False(t, ok)
}

func TestDefaultCoversRegisteredProviders(t *testing.T) {
	table := Default()
	for _, model := range []string{"gpt-4o-mini", "gpt-3.5-turbo", "claude-3-haiku-20240307"} {
		_, ok := table.Lookup("", model)
		assert.True(t, ok, "missing rate for %s", model)
	}
}
