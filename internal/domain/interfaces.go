package domain

import (
	"context"
	"time"
)

// Provider represents any LLM text generation backend.
type Provider interface {
	// Generate sends a generation request and returns the full response.
	// Failures are vendor-raw; callers classify them via ClassifyError.
	Generate(ctx context.Context, req *GenerationRequest) (*GenerationResponse, error)

	// GenerateStream sends a generation request and returns a stream of raw
	// partial-text events, terminated by an explicit Done event.
	GenerateStream(ctx context.Context, req *GenerationRequest) (<-chan ProviderChunk, error)

	// ClassifyError maps a vendor-raw error into the shared taxonomy.
	// Total: never panics, unrecognized shapes map to UnknownError.
	ClassifyError(err error) *ProviderError

	// Name returns the provider identifier.
	Name() string
}

// ProviderRegistry manages available providers. The active provider is
// resolved once at startup, not per call.
type ProviderRegistry interface {
	// Register adds a provider to the registry.
	Register(ctx context.Context, provider Provider) error

	// Get retrieves a provider by name.
	Get(ctx context.Context, providerName string) (Provider, error)

	// List returns all available provider names.
	List(ctx context.Context) ([]string, error)
}

// RateLimiter performs per-key admission control before any provider call.
type RateLimiter interface {
	// Consume takes one point from the key's bucket. It returns a
	// RateLimitExceeded ProviderError carrying a retry hint when the bucket
	// is exhausted. Safe under concurrent calls for the same key.
	Consume(ctx context.Context, key string) error

	// Status reports the current bucket for a key. Unknown keys report a
	// full bucket.
	Status(ctx context.Context, key string) (*RateLimitStatus, error)
}

// MetricsRecorder keeps a bounded log of per-call outcomes.
type MetricsRecorder interface {
	// Track appends a metric, evicting the oldest entry past capacity.
	Track(metric RequestMetric)

	// Summarize aggregates metrics within the trailing window.
	// A zero window covers everything retained.
	Summarize(window time.Duration) *UsageMetrics
}

// SessionManager owns concurrent streaming sessions.
type SessionManager interface {
	// Start registers a session and begins asynchronous generation,
	// rate-limit-checked against the request's key.
	Start(ctx context.Context, req *GenerationRequest) (*SessionHandle, error)

	// Stop cancels an active session. Idempotent: the first call cancels and
	// returns true, later calls on an inactive session return false.
	Stop(ctx context.Context, sessionID string) bool

	// Get returns a snapshot of a session, or false when absent.
	Get(ctx context.Context, sessionID string) (*SessionSnapshot, bool)
}

// EventPublisher publishes events for observability.
type EventPublisher interface {
	// Publish publishes an event with the given type and data.
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}

// CostCalculator calculates cost based on token usage.
type CostCalculator interface {
	// Calculate returns the total cost for a given model and usage.
	Calculate(ctx context.Context, model string, usage TokenCount) (float64, error)
}

// PricingRegistry maintains pricing information for models.
type PricingRegistry interface {
	// GetPricing returns pricing config for a model.
	GetPricing(ctx context.Context, model string) (PricingConfig, error)

	// RegisterPricing adds pricing for a model.
	RegisterPricing(ctx context.Context, model string, config PricingConfig) error
}
