package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/domain"
)

func TestEstimateTokens(t *testing.T) {
	t.Run("should return zero for empty text", func(t *testing.T) {
		require.Zero(t, domain.EstimateTokens(""))
	})

	t.Run("should round word estimate up", func(t *testing.T) {
		// 5 words -> ceil(5 * 0.75) = 4
		require.Equal(t, 4, domain.EstimateTokens("the quick brown fox jumps"))

		// 4 words -> ceil(4 * 0.75) = 3
		require.Equal(t, 3, domain.EstimateTokens("one two three four"))

		// 1 word -> ceil(0.75) = 1
		require.Equal(t, 1, domain.EstimateTokens("hello"))
	})

	t.Run("should fall back to character count without whitespace", func(t *testing.T) {
		// 8 chars -> ceil(8 / 4) = 2, but "abcdefgh" is one word -> 1.
		// The character fallback only applies when Fields finds no words.
		require.Equal(t, 1, domain.EstimateTokens("abcdefgh"))
	})

	t.Run("should scale with text length", func(t *testing.T) {
		short := domain.EstimateTokens("a few words here")
		long := domain.EstimateTokens(strings.Repeat("a few words here ", 50))
		require.Greater(t, long, short)
	})
}

func TestEstimateUsage(t *testing.T) {
	usage := domain.EstimateUsage("one two three four", "five six")

	require.Equal(t, 3, usage.PromptTokens)
	require.Equal(t, 2, usage.CompletionTokens)
	require.Equal(t, 5, usage.TotalTokens)
	require.True(t, usage.IsEstimated)
}
