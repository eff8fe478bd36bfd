package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptvault/promptvault/internal/models"
	"github.com/promptvault/promptvault/internal/store"
)

func TestRenderSubstitutes(t *testing.T) {
	out, err := Render("Summarize {{text}} in {{n}} sentences",
		[]models.Variable{{Name: "text", Required: true}, {Name: "n"}},
		map[string]string{"text": "the article", "n": "3"})
	require.NoError(t, err)
	assert.Equal(t, "Summarize the article in 3 sentences", out)
}

func TestRenderMissingRequired(t *testing.T) {
	_, err := Render("{{text}}",
		[]models.Variable{{Name: "text", Required: true}},
		nil)
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	out, err := Render("{{known}} and {{unknown}}",
		[]models.Variable{{Name: "known"}},
		map[string]string{"known": "value"})
	require.NoError(t, err)
	assert.Equal(t, "value and {{unknown}}", out)
}

func TestRenderOptionalAbsent(t *testing.T) {
	out, err := Render("text {{opt}}",
		[]models.Variable{{Name: "opt", Required: false}},
		map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "text {{opt}}", out)
}

func TestExtractVariables(t *testing.T) {
	names := ExtractVariables("{{a}} {{b}} {{a}} plain {{c_d}}")
	assert.Equal(t, []string{"a", "b", "c_d"}, names)

	assert.Nil(t, ExtractVariables("no placeholders here"))
}
