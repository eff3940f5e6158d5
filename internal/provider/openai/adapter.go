// Package openai provides an adapter for the OpenAI API using the official
// SDK. It implements the domain.Provider interface and handles conversion
// between the normalized gateway types and SDK types, including finish-reason
// normalization and token-count fallback estimation.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/domain"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/observability"
)

const providerName = "openai"

// Adapter implements the domain.Provider interface for OpenAI.
type Adapter struct {
	client openai.Client
	model  string
	name   string
}

// NewAdapter creates a new OpenAI adapter.
func NewAdapter(config Config) (*Adapter, error) {
	if config.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(config.Timeout)*time.Second))
	}

	if config.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(config.MaxRetries))
	}

	return &Adapter{
		client: openai.NewClient(opts...),
		model:  config.Model,
		name:   providerName,
	}, nil
}

// Name returns the provider identifier.
func (a *Adapter) Name() string {
	return a.name
}

// Generate sends a generation request and returns the normalized response.
func (a *Adapter) Generate(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI API")

	params := a.toSDKParams(req)

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		logger.Error("OpenAI API call failed", observability.Error(err))
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}

	logger.Debug("OpenAI API call succeeded",
		observability.Int("prompt_tokens", int(resp.Usage.PromptTokens)),
		observability.Int("completion_tokens", int(resp.Usage.CompletionTokens)),
	)

	return a.toDomainResponse(req, resp), nil
}

// GenerateStream sends a generation request and returns a stream of raw
// partial-text events with an explicit terminal Done event.
func (a *Adapter) GenerateStream(ctx context.Context, req *domain.GenerationRequest) (<-chan domain.ProviderChunk, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI streaming API")

	params := a.toSDKParams(req)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	stream := a.client.Chat.Completions.NewStreaming(ctx, params)

	chunks := make(chan domain.ProviderChunk)

	go func() {
		defer close(chunks)
		defer logger.Debug("OpenAI stream completed")

		finishReason := domain.FinishOther
		var usage *domain.TokenCount

		for stream.Next() {
			chunk := stream.Current()

			// The usage-only final frame has no choices.
			if chunk.Usage.TotalTokens > 0 {
				usage = &domain.TokenCount{
					PromptTokens:     int(chunk.Usage.PromptTokens),
					CompletionTokens: int(chunk.Usage.CompletionTokens),
					TotalTokens:      int(chunk.Usage.TotalTokens),
				}
			}

			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]

			if choice.FinishReason != "" {
				finishReason = mapFinishReason(choice.FinishReason)
			}

			if choice.Delta.Content == "" {
				continue
			}

			select {
			case chunks <- domain.ProviderChunk{Text: choice.Delta.Content}:
			case <-ctx.Done():
				return
			}
		}

		if err := stream.Err(); err != nil && !errors.Is(err, io.EOF) {
			select {
			case chunks <- domain.ProviderChunk{Err: fmt.Errorf("OpenAI stream error: %w", err)}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case chunks <- domain.ProviderChunk{Done: true, FinishReason: finishReason, Usage: usage}:
		case <-ctx.Done():
		}
	}()

	return chunks, nil
}

// toSDKParams converts a generation request to SDK ChatCompletionNewParams.
// Optional grounding context becomes the system message.
func (a *Adapter) toSDKParams(req *domain.GenerationRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.Context != "" {
		messages = append(messages, openai.SystemMessage(req.Context))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(a.model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}

	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	return params
}

// toDomainResponse converts an SDK response to the normalized response.
func (a *Adapter) toDomainResponse(req *domain.GenerationRequest, resp *openai.ChatCompletion) *domain.GenerationResponse {
	content := ""
	finishReason := domain.FinishOther
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		finishReason = mapFinishReason(resp.Choices[0].FinishReason)
	}

	usage := domain.TokenCount{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	if usage.TotalTokens == 0 {
		usage = domain.EstimateUsage(req.Context+req.Prompt, content)
	}

	return &domain.GenerationResponse{
		Text:         content,
		FinishReason: finishReason,
		Usage:        usage,
		Model:        string(resp.Model),
		Provider:     a.name,
		Timestamp:    time.Now(),
	}
}

// mapFinishReason normalizes OpenAI completion reasons into the shared enum.
// Unmapped values default to OTHER.
func mapFinishReason(reason string) domain.FinishReason {
	switch reason {
	case "stop":
		return domain.FinishStop
	case "length":
		return domain.FinishMaxTokens
	case "content_filter":
		return domain.FinishSafety
	default:
		return domain.FinishOther
	}
}
