// Package lorem provides a mock provider that generates text locally.
// It implements the domain.Provider interface without external API calls, for
// development, health checks without credentials, and deterministic tests.
package lorem

import (
	"context"
	"errors"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/domain"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/observability"
)

const (
	providerName = "lorem"
	modelName    = "lorem-1"
	chunkDelay   = 5 * time.Millisecond
)

// Adapter implements the domain.Provider interface with locally generated text.
// At temperature zero it echoes the prompt, so identical requests always yield
// identical output; above zero it produces lorem ipsum sized by MaxTokens.
type Adapter struct {
	name      string
	generator *loremgen.Lorem
}

// NewAdapter creates a new lorem adapter. No configuration is required.
func NewAdapter() *Adapter {
	return &Adapter{
		name:      providerName,
		generator: loremgen.New(),
	}
}

// Name returns the provider identifier.
func (a *Adapter) Name() string {
	return a.name
}

// Generate returns the full locally generated response.
func (a *Adapter) Generate(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResponse, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := observability.FromContext(ctx)
	logger.Debug("generating local response")

	text, finishReason := a.completionFor(req)
	usage := domain.EstimateUsage(req.Context+req.Prompt, text)

	return &domain.GenerationResponse{
		Text:         text,
		FinishReason: finishReason,
		Usage:        usage,
		Model:        modelName,
		Provider:     a.name,
		Timestamp:    time.Now(),
	}, nil
}

// GenerateStream streams the same completion word by word, terminated by an
// explicit Done event carrying the finish reason and estimated usage.
func (a *Adapter) GenerateStream(ctx context.Context, req *domain.GenerationRequest) (<-chan domain.ProviderChunk, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	text, finishReason := a.completionFor(req)
	usage := domain.EstimateUsage(req.Context+req.Prompt, text)

	chunks := make(chan domain.ProviderChunk)

	go func() {
		defer close(chunks)

		words := strings.Fields(text)
		for i, word := range words {
			delta := word
			if i < len(words)-1 {
				delta += " "
			}

			select {
			case <-ctx.Done():
				return
			case chunks <- domain.ProviderChunk{Text: delta}:
				time.Sleep(chunkDelay)
			}
		}

		select {
		case <-ctx.Done():
		case chunks <- domain.ProviderChunk{
			Done:         true,
			FinishReason: finishReason,
			Usage:        &usage,
		}:
		}
	}()

	return chunks, nil
}

// ClassifyError maps errors into the shared taxonomy. The adapter has no
// vendor-specific failure shapes, so the generic rules apply.
func (a *Adapter) ClassifyError(err error) *domain.ProviderError {
	return domain.Classify(err, a.name)
}

// completionFor computes the full completion text and finish reason for a
// request. Deterministic for temperature zero.
func (a *Adapter) completionFor(req *domain.GenerationRequest) (string, domain.FinishReason) {
	var text string
	if req.Temperature == 0 {
		text = req.Prompt
	} else {
		text = a.generateWords(req.MaxTokens)
	}

	words := strings.Fields(text)
	if req.MaxTokens > 0 && len(words) > req.MaxTokens {
		return strings.Join(words[:req.MaxTokens], " "), domain.FinishMaxTokens
	}

	return text, domain.FinishStop
}

// generateWords produces roughly targetWords words of lorem ipsum.
func (a *Adapter) generateWords(targetWords int) string {
	if targetWords <= 0 {
		targetWords = 64
	}

	var sb strings.Builder
	wordCount := 0
	for wordCount < targetWords {
		sentence := a.generator.Sentence(5, 15)
		sb.WriteString(sentence)
		sb.WriteString(" ")
		wordCount += len(strings.Fields(sentence))
	}

	return strings.TrimSpace(sb.String())
}
