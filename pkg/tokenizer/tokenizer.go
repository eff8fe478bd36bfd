// Package tokenizer estimates token counts for providers that do not
// report usage themselves (local models). Estimates only feed cost
// accounting for models that price as zero anyway, so rough is fine.
package tokenizer

import (
	"strings"
)

// Estimate returns a rough token count for English-like text.
func Estimate(text string) int {
	words := strings.Fields(text)
	return max(len(words)*4/3, 1)
}

// EstimateMessages sums the estimate over a conversation's contents.
func EstimateMessages(contents []string) int {
	total := 0
	for _, c := range contents {
		total += Estimate(c)
	}
	return total
}
