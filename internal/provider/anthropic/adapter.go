// Package anthropic provides an adapter for the Anthropic Messages API using
// the official SDK. It implements the domain.Provider interface, normalizing
// stop reasons and token usage into the shared gateway types.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/domain"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/observability"
)

const providerName = "anthropic"

// Adapter implements the domain.Provider interface for Anthropic.
type Adapter struct {
	client *anthropic.Client
	model  string
	name   string
}

// NewAdapter creates a new Anthropic adapter.
func NewAdapter(config Config) (*Adapter, error) {
	if config.APIKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}

	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(config.Timeout)*time.Second))
	}

	if config.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(config.MaxRetries))
	}

	client := anthropic.NewClient(opts...)

	return &Adapter{
		client: &client,
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
	logger.Debug("calling Anthropic API")

	params := a.toSDKParams(req)

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		logger.Error("Anthropic API call failed", observability.Error(err))
		return nil, fmt.Errorf("Anthropic API call failed: %w", err)
	}

	logger.Debug("Anthropic API call succeeded",
		observability.Int64("input_tokens", message.Usage.InputTokens),
		observability.Int64("output_tokens", message.Usage.OutputTokens),
	)

	return a.toDomainResponse(req, message), nil
}

// GenerateStream sends a generation request and returns a stream of raw
// partial-text events with an explicit terminal Done event. The SDK's
// accumulator collects the final usage and stop reason delivered alongside
// the deltas.
func (a *Adapter) GenerateStream(ctx context.Context, req *domain.GenerationRequest) (<-chan domain.ProviderChunk, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling Anthropic streaming API")

	params := a.toSDKParams(req)

	chunks := make(chan domain.ProviderChunk)

	go func() {
		defer close(chunks)
		defer logger.Debug("Anthropic stream completed")

		stream := a.client.Messages.NewStreaming(ctx, params)
		message := anthropic.Message{}

		for stream.Next() {
			event := stream.Current()

			if err := message.Accumulate(event); err != nil {
				select {
				case chunks <- domain.ProviderChunk{Err: fmt.Errorf("failed to accumulate message: %w", err)}:
				case <-ctx.Done():
				}
				return
			}

			deltaEvent, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok || deltaEvent.Delta.Type != "text_delta" {
				continue
			}

			select {
			case chunks <- domain.ProviderChunk{Text: deltaEvent.Delta.Text}:
			case <-ctx.Done():
				return
			}
		}

		if err := stream.Err(); err != nil {
			select {
			case chunks <- domain.ProviderChunk{Err: fmt.Errorf("Anthropic stream error: %w", err)}:
			case <-ctx.Done():
			}
			return
		}

		usage := &domain.TokenCount{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		}

		select {
		case chunks <- domain.ProviderChunk{
			Done:         true,
			FinishReason: mapStopReason(string(message.StopReason)),
			Usage:        usage,
		}:
		case <-ctx.Done():
		}
	}()

	return chunks, nil
}

// toSDKParams converts a generation request to SDK MessageNewParams.
// Optional grounding context becomes the system prompt.
func (a *Adapter) toSDKParams(req *domain.GenerationRequest) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(req.Temperature),
	}

	if req.Context != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.Context},
		}
	}

	return params
}

// toDomainResponse converts an SDK message to the normalized response.
func (a *Adapter) toDomainResponse(req *domain.GenerationRequest, message *anthropic.Message) *domain.GenerationResponse {
	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	content := sb.String()

	usage := domain.TokenCount{
		PromptTokens:     int(message.Usage.InputTokens),
		CompletionTokens: int(message.Usage.OutputTokens),
		TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
	}
	if usage.TotalTokens == 0 {
		usage = domain.EstimateUsage(req.Context+req.Prompt, content)
	}

	return &domain.GenerationResponse{
		Text:         content,
		FinishReason: mapStopReason(string(message.StopReason)),
		Usage:        usage,
		Model:        string(message.Model),
		Provider:     a.name,
		Timestamp:    time.Now(),
	}
}

// mapStopReason normalizes Anthropic stop reasons into the shared enum.
// Unmapped values default to OTHER.
func mapStopReason(reason string) domain.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return domain.FinishStop
	case "max_tokens":
		return domain.FinishMaxTokens
	case "refusal":
		return domain.FinishSafety
	default:
		return domain.FinishOther
	}
}
