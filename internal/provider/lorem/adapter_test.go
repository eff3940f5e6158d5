package lorem_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/domain"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/provider/lorem"
)

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	adapter := lorem.NewAdapter()

	t.Run("should echo the prompt at temperature zero", func(t *testing.T) {
		req := &domain.GenerationRequest{Prompt: "the quick brown fox", Temperature: 0}

		first, err := adapter.Generate(ctx, req)
		require.NoError(t, err)
		second, err := adapter.Generate(ctx, req)
		require.NoError(t, err)

		require.Equal(t, "the quick brown fox", first.Text)
		require.Equal(t, first.Text, second.Text)
		require.Equal(t, domain.FinishStop, first.FinishReason)
		require.Equal(t, "lorem", first.Provider)
		require.Equal(t, "lorem-1", first.Model)
	})

	t.Run("should truncate to max tokens", func(t *testing.T) {
		resp, err := adapter.Generate(ctx, &domain.GenerationRequest{
			Prompt:      "one two three four five six",
			Temperature: 0,
			MaxTokens:   3,
		})

		require.NoError(t, err)
		require.Equal(t, "one two three", resp.Text)
		require.Equal(t, domain.FinishMaxTokens, resp.FinishReason)
	})

	t.Run("should generate lorem text above temperature zero", func(t *testing.T) {
		resp, err := adapter.Generate(ctx, &domain.GenerationRequest{
			Prompt:      "ignored",
			Temperature: 0.7,
			MaxTokens:   20,
		})

		require.NoError(t, err)
		require.NotEmpty(t, resp.Text)
		require.LessOrEqual(t, len(strings.Fields(resp.Text)), 20)
	})

	t.Run("should flag usage as estimated", func(t *testing.T) {
		resp, err := adapter.Generate(ctx, &domain.GenerationRequest{Prompt: "hello there", Temperature: 0})

		require.NoError(t, err)
		require.True(t, resp.Usage.IsEstimated)
		require.Positive(t, resp.Usage.TotalTokens)
	})

	t.Run("should reject nil requests", func(t *testing.T) {
		_, err := adapter.Generate(ctx, nil)
		require.Error(t, err)
	})

	t.Run("should respect a cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := adapter.Generate(cancelled, &domain.GenerationRequest{Prompt: "hi"})
		require.Error(t, err)
	})
}

func TestGenerateStream(t *testing.T) {
	ctx := context.Background()
	adapter := lorem.NewAdapter()

	t.Run("should stream the same text the blocking call returns", func(t *testing.T) {
		req := &domain.GenerationRequest{Prompt: "alpha beta gamma delta", Temperature: 0}

		blocking, err := adapter.Generate(ctx, req)
		require.NoError(t, err)

		stream, err := adapter.GenerateStream(ctx, req)
		require.NoError(t, err)

		var (
			text     string
			terminal *domain.ProviderChunk
		)
		for chunk := range stream {
			require.NoError(t, chunk.Err)
			if chunk.Done {
				c := chunk
				terminal = &c
				continue
			}
			text += chunk.Text
		}

		require.Equal(t, blocking.Text, text)
		require.NotNil(t, terminal)
		require.Equal(t, domain.FinishStop, terminal.FinishReason)
		require.NotNil(t, terminal.Usage)
		require.True(t, terminal.Usage.IsEstimated)
	})

	t.Run("should stop streaming on context cancellation", func(t *testing.T) {
		streamCtx, cancel := context.WithCancel(ctx)

		stream, err := adapter.GenerateStream(streamCtx, &domain.GenerationRequest{
			Prompt:      "ignored",
			Temperature: 0.7,
			MaxTokens:   500,
		})
		require.NoError(t, err)

		<-stream
		cancel()

		// Give the producer time to observe the cancellation while nobody
		// is receiving, then drain what was already in flight.
		time.Sleep(50 * time.Millisecond)

		sawDone := false
		for chunk := range stream {
			if chunk.Done {
				sawDone = true
			}
		}
		require.False(t, sawDone)
	})
}

func TestClassifyError(t *testing.T) {
	adapter := lorem.NewAdapter()

	pe := adapter.ClassifyError(context.DeadlineExceeded)
	require.Equal(t, domain.ErrCodeNetworkError, pe.Code)
	require.Equal(t, "lorem", pe.Provider)
}
