package domain

import (
	"context"
	"errors"
	"time"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/observability"
)

// Endpoint names used for request metrics.
const (
	EndpointGenerate    = "generateText"
	EndpointStream      = "generateStreamingText"
	EndpointHealthCheck = "healthCheck"
)

const healthCheckMaxTokens = 8

// GatewayOptions carries the facade-level configuration.
type GatewayOptions struct {
	StreamingEnabled   bool
	DefaultRateKey     string // bucket for requests without a session ID
	DefaultMaxTokens   int
	DefaultTemperature float64
}

// Gateway is the single entry point composing rate limiting, the provider
// adapter, error classification, metrics and streaming sessions. Each
// instance owns its own state; multiple isolated gateways can coexist.
type Gateway struct {
	provider Provider
	limiter  RateLimiter
	metrics  MetricsRecorder
	sessions SessionManager
	events   EventPublisher
	opts     GatewayOptions
}

// NewGateway creates a new gateway facade (DI constructor).
func NewGateway(
	provider Provider,
	limiter RateLimiter,
	metrics MetricsRecorder,
	sessions SessionManager,
	events EventPublisher,
	opts GatewayOptions,
) *Gateway {
	return &Gateway{
		provider: provider,
		limiter:  limiter,
		metrics:  metrics,
		sessions: sessions,
		events:   events,
		opts:     opts,
	}
}

// RateLimitKey resolves the admission-control key for a request: the
// caller-supplied session ID when present, otherwise the configured shared
// default bucket.
func (g *Gateway) RateLimitKey(req *GenerationRequest) string {
	if req != nil && req.SessionID != "" {
		return req.SessionID
	}
	return g.opts.DefaultRateKey
}

// ApplyDefaults fills in unset generation parameters from configuration.
func (g *Gateway) ApplyDefaults(req *GenerationRequest) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = g.opts.DefaultMaxTokens
	}
	if req.Temperature < 0 {
		req.Temperature = g.opts.DefaultTemperature
	}
}

// GenerateText performs a rate-limit check, calls the provider, records the
// outcome and returns the normalized response. Failures are classified into
// the shared taxonomy and propagated; the gateway never retries.
func (g *Gateway) GenerateText(ctx context.Context, req *GenerationRequest) (*GenerationResponse, error) {
	if req == nil {
		return nil, NewProviderError(ErrCodeInvalidRequest, g.provider.Name(), "request cannot be nil")
	}
	if req.Prompt == "" {
		return nil, NewProviderError(ErrCodeInvalidRequest, g.provider.Name(), "prompt cannot be empty")
	}

	g.ApplyDefaults(req)

	requestID := observability.GetRequestID(ctx)
	if requestID == "" {
		requestID = observability.GenerateRequestID()
	}

	logger := observability.FromContext(ctx)

	if err := g.limiter.Consume(ctx, g.RateLimitKey(req)); err != nil {
		pe := Classify(err, g.provider.Name())
		g.metrics.Track(RequestMetric{
			RequestID: requestID,
			Endpoint:  EndpointGenerate,
			Success:   false,
			ErrorCode: pe.Code,
			Timestamp: time.Now(),
			SessionID: req.SessionID,
		})
		logger.Warn("request rate limited",
			observability.String("key", g.RateLimitKey(req)),
			observability.Int("retry_after_seconds", pe.RetryAfterSeconds))
		return nil, pe
	}

	g.events.Publish(ctx, observability.EventRequestStarted, map[string]interface{}{
		"request_id": requestID,
		"endpoint":   EndpointGenerate,
		"provider":   g.provider.Name(),
	})

	start := time.Now()
	resp, err := g.provider.Generate(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		pe := g.provider.ClassifyError(err)
		g.metrics.Track(RequestMetric{
			RequestID:      requestID,
			Endpoint:       EndpointGenerate,
			ResponseTimeMs: elapsed.Milliseconds(),
			Success:        false,
			ErrorCode:      pe.Code,
			Timestamp:      time.Now(),
			SessionID:      req.SessionID,
		})
		g.events.Publish(ctx, observability.EventError, map[string]interface{}{
			"request_id": requestID,
			"code":       string(pe.Code),
		})
		logger.Error("generation failed", observability.Error(pe))
		return nil, pe
	}

	g.metrics.Track(RequestMetric{
		RequestID:      requestID,
		Endpoint:       EndpointGenerate,
		Model:          resp.Model,
		PromptTokens:   resp.Usage.PromptTokens,
		ResponseTokens: resp.Usage.CompletionTokens,
		TotalTokens:    resp.Usage.TotalTokens,
		ResponseTimeMs: elapsed.Milliseconds(),
		Success:        true,
		Timestamp:      time.Now(),
		SessionID:      req.SessionID,
	})
	g.events.Publish(ctx, observability.EventResponseReceived, map[string]interface{}{
		"request_id":       requestID,
		"total_tokens":     resp.Usage.TotalTokens,
		"response_time_ms": elapsed.Milliseconds(),
	})

	return resp, nil
}

// GenerateStreamingText starts a streaming generation and returns its session
// handle. Fails with InvalidRequest when streaming is disabled.
func (g *Gateway) GenerateStreamingText(ctx context.Context, req *GenerationRequest) (*SessionHandle, error) {
	if req == nil {
		return nil, NewProviderError(ErrCodeInvalidRequest, g.provider.Name(), "request cannot be nil")
	}
	if !g.opts.StreamingEnabled {
		return nil, NewProviderError(ErrCodeInvalidRequest, g.provider.Name(), "streaming is disabled")
	}
	if req.Prompt == "" {
		return nil, NewProviderError(ErrCodeInvalidRequest, g.provider.Name(), "prompt cannot be empty")
	}

	g.ApplyDefaults(req)

	return g.sessions.Start(ctx, req)
}

// StopStreaming cancels an active streaming session. Returns true only for
// the call that performed the cancellation.
func (g *Gateway) StopStreaming(ctx context.Context, sessionID string) bool {
	return g.sessions.Stop(ctx, sessionID)
}

// GetSession returns a snapshot of a streaming session.
func (g *Gateway) GetSession(ctx context.Context, sessionID string) (*SessionSnapshot, bool) {
	return g.sessions.Get(ctx, sessionID)
}

// GetRateLimitStatus reports the bucket for a key. An empty key reports the
// shared default bucket.
func (g *Gateway) GetRateLimitStatus(ctx context.Context, key string) (*RateLimitStatus, error) {
	if key == "" {
		key = g.opts.DefaultRateKey
	}
	return g.limiter.Status(ctx, key)
}

// GetUsageMetrics returns aggregate usage for the trailing window.
// A zero window covers all retained metrics.
func (g *Gateway) GetUsageMetrics(_ context.Context, window time.Duration) *UsageMetrics {
	return g.metrics.Summarize(window)
}

// HealthCheck issues a minimal synthetic generation against the provider and
// reports the result. The probe bypasses rate limiting and metrics.
func (g *Gateway) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()

	resp, err := g.provider.Generate(ctx, &GenerationRequest{
		Prompt:    "ping",
		MaxTokens: healthCheckMaxTokens,
	})
	if err != nil {
		pe := g.provider.ClassifyError(err)
		return &HealthStatus{
			Status: HealthUnhealthy,
			Details: map[string]interface{}{
				"provider": g.provider.Name(),
				"code":     string(pe.Code),
				"message":  pe.Message,
			},
		}
	}

	return &HealthStatus{
		Status: HealthHealthy,
		Details: map[string]interface{}{
			"provider":   g.provider.Name(),
			"model":      resp.Model,
			"latency_ms": time.Since(start).Milliseconds(),
		},
	}
}

// IsProviderError reports whether err carries the classified taxonomy.
func IsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
