package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	assert.Equal(t, 1, Estimate(""))
	assert.Equal(t, 1, Estimate("hi"))
	assert.Equal(t, 4, Estimate("one two three"))
	assert.Equal(t, 8, Estimate("a b c d e f"))
}

func TestEstimateMessages(t *testing.T) {
	got := EstimateMessages([]string{"one two three", "hi"})
	assert.Equal(t, 5, got)

	assert.Zero(t, EstimateMessages(nil))
}
