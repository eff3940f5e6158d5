package domain

import "time"

// FinishReason describes why a generation stopped, normalized across providers.
type FinishReason string

const (
	FinishStop      FinishReason = "STOP"
	FinishMaxTokens FinishReason = "MAX_TOKENS"
	FinishSafety    FinishReason = "SAFETY"
	FinishOther     FinishReason = "OTHER"
)

// GenerationRequest represents a unified text generation request.
type GenerationRequest struct {
	Prompt      string  `json:"prompt"`
	Context     string  `json:"context,omitempty"` // prepended grounding text
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	SessionID   string  `json:"session_id,omitempty"` // rate-limit and correlation key
}

// SafetyRating is a provider-reported content safety signal.
type SafetyRating struct {
	Category    string `json:"category"`
	Probability string `json:"probability"`
}

// TokenCount tracks token consumption for one generation.
// IsEstimated marks counts derived from the word-count heuristic rather than
// reported by the provider.
type TokenCount struct {
	PromptTokens     int  `json:"prompt_tokens"`
	CompletionTokens int  `json:"completion_tokens"`
	TotalTokens      int  `json:"total_tokens"`
	IsEstimated      bool `json:"is_estimated"`
}

// GenerationResponse represents a unified generation response.
// Immutable once produced.
type GenerationResponse struct {
	Text          string         `json:"text"`
	FinishReason  FinishReason   `json:"finish_reason"`
	SafetyRatings []SafetyRating `json:"safety_ratings,omitempty"`
	Usage         TokenCount     `json:"usage"`
	Model         string         `json:"model"`
	Provider      string         `json:"provider"`
	Timestamp     time.Time      `json:"timestamp"`
}

// StreamingChunk is one fragment of a streaming generation, ordered within a
// session. The terminal chunk carries IsComplete plus the finish reason and,
// when the provider reports it, the exact token count.
type StreamingChunk struct {
	Text         string       `json:"text"`
	IsComplete   bool         `json:"is_complete"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
	Usage        *TokenCount  `json:"usage,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}

// ProviderChunk is a raw partial-text event emitted by a provider adapter
// before session bookkeeping. Done marks the explicit end-of-stream event,
// distinct from any partial chunk.
type ProviderChunk struct {
	Text         string
	Done         bool
	FinishReason FinishReason
	Usage        *TokenCount
	Err          error // vendor-raw, classified by the consumer
}

// StreamEvent is what a streaming session delivers on its channel.
// Exactly one of the three kinds is set: a chunk, a terminal error, or the
// terminal done marker. Cancellation is signalled by closing the channel
// without a terminal event.
type StreamEvent struct {
	Chunk *StreamingChunk `json:"chunk,omitempty"`
	Err   *ProviderError  `json:"error,omitempty"`
	Done  bool            `json:"done,omitempty"`
}

// SessionState is the lifecycle state of a streaming session.
type SessionState string

const (
	SessionCreated   SessionState = "created"
	SessionActive    SessionState = "active"
	SessionCompleted SessionState = "completed"
	SessionErrored   SessionState = "errored"
	SessionCancelled SessionState = "cancelled"
)

// Terminal reports whether the state is absorbing.
func (s SessionState) Terminal() bool {
	return s == SessionCompleted || s == SessionErrored || s == SessionCancelled
}

// SessionHandle is what callers receive when starting a streaming generation.
// The session itself is owned by the session manager; callers consume events
// from the channel and may stop the session by ID.
type SessionHandle struct {
	ID     string
	Events <-chan StreamEvent
}

// SessionSnapshot is a point-in-time copy of a streaming session.
type SessionSnapshot struct {
	ID          string           `json:"id"`
	State       SessionState     `json:"state"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time,omitzero"`
	TotalTokens int              `json:"total_tokens"`
	Chunks      []StreamingChunk `json:"chunks"`
}

// RequestMetric is one per-call outcome record. Append-only.
type RequestMetric struct {
	RequestID      string    `json:"request_id"`
	Endpoint       string    `json:"endpoint"`
	Model          string    `json:"model,omitempty"`
	PromptTokens   int       `json:"prompt_tokens"`
	ResponseTokens int       `json:"response_tokens"`
	TotalTokens    int       `json:"total_tokens"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	Success        bool      `json:"success"`
	ErrorCode      ErrorCode `json:"error_code,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	SessionID      string    `json:"session_id,omitempty"`
}

// EndpointCount pairs an endpoint name with its request count.
type EndpointCount struct {
	Endpoint string `json:"endpoint"`
	Count    int    `json:"count"`
}

// UsageMetrics is the aggregate view derived from tracked request metrics.
type UsageMetrics struct {
	TotalRequests         int             `json:"total_requests"`
	TotalTokens           int             `json:"total_tokens"`
	AverageResponseTimeMs float64         `json:"average_response_time_ms"`
	ErrorRate             float64         `json:"error_rate"`
	RateLimitHits         int             `json:"rate_limit_hits"`
	TopEndpoints          []EndpointCount `json:"top_endpoints"`
	EstimatedCost         float64         `json:"estimated_cost"`
	PeriodStart           time.Time       `json:"period_start,omitzero"`
	PeriodEnd             time.Time       `json:"period_end"`
}

// RateLimitStatus describes the current bucket for one key.
type RateLimitStatus struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"reset_time"`
	IsBlocked bool      `json:"is_blocked"`
}

// Health states reported by the gateway health check.
const (
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
)

// HealthStatus is the result of a gateway health check.
type HealthStatus struct {
	Status  string                 `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
}
