package domain

import (
	"math"
	"strings"
)

const (
	wordsPerToken = 0.75 // tokens ≈ ceil(words × 0.75)
	charsPerToken = 4.0  // fallback for text without whitespace
)

// EstimateTokens approximates the token count of text using the word-count
// heuristic, falling back to character count for unspaced text. Used when a
// provider does not report exact counts; results are flagged via
// TokenCount.IsEstimated.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	words := len(strings.Fields(text))
	if words == 0 {
		return int(math.Ceil(float64(len(text)) / charsPerToken))
	}

	return int(math.Ceil(float64(words) * wordsPerToken))
}

// EstimateUsage builds an estimated TokenCount from prompt and completion text.
func EstimateUsage(prompt, completion string) TokenCount {
	promptTokens := EstimateTokens(prompt)
	completionTokens := EstimateTokens(completion)

	return TokenCount{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		IsEstimated:      true,
	}
}
