package session

import (
	"context"
	"sync"
	"time"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/domain"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/observability"
)

const eventBuffer = 16

// Options configures session lifecycle management.
type Options struct {
	// MaxAge is how long a terminal session is retained before the sweep
	// removes it.
	MaxAge time.Duration

	// SweepInterval is the period of the background cleanup task.
	SweepInterval time.Duration

	// DefaultRateKey is the bucket used for requests without a session ID.
	DefaultRateKey string
}

// Manager implements domain.SessionManager. It registers sessions, drives the
// provider stream for each one, enforces the session state machine, and
// periodically sweeps terminal sessions past their maximum age.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	provider domain.Provider
	limiter  domain.RateLimiter
	metrics  domain.MetricsRecorder
	events   domain.EventPublisher

	opts      Options
	done      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a session manager and starts its background sweep.
// Close stops the sweep; it must be called at shutdown.
func NewManager(
	provider domain.Provider,
	limiter domain.RateLimiter,
	metrics domain.MetricsRecorder,
	events domain.EventPublisher,
	opts Options,
) *Manager {
	if opts.MaxAge <= 0 {
		opts.MaxAge = 30 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	if opts.DefaultRateKey == "" {
		opts.DefaultRateKey = "anonymous"
	}

	m := &Manager{
		sessions: make(map[string]*Session),
		provider: provider,
		limiter:  limiter,
		metrics:  metrics,
		events:   events,
		opts:     opts,
		done:     make(chan struct{}),
	}

	go m.sweepLoop()

	return m
}

// Close stops the background sweep. Idempotent.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
}

// Start registers a session and begins asynchronous generation. The request
// is rate-limit-checked against its key before any provider cost is incurred.
func (m *Manager) Start(ctx context.Context, req *domain.GenerationRequest) (*domain.SessionHandle, error) {
	key := req.SessionID
	if key == "" {
		key = m.opts.DefaultRateKey
	}

	if err := m.limiter.Consume(ctx, key); err != nil {
		pe := domain.Classify(err, m.provider.Name())
		m.metrics.Track(domain.RequestMetric{
			RequestID: observability.GenerateRequestID(),
			Endpoint:  domain.EndpointStream,
			Success:   false,
			ErrorCode: pe.Code,
			Timestamp: time.Now(),
			SessionID: req.SessionID,
		})
		return nil, pe
	}

	id := observability.GenerateSessionID()

	// Generation outlives the caller's request context; only Stop or
	// completion ends it.
	genCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	genCtx = observability.WithSessionID(genCtx, id)

	s := newSession(id, cancel, eventBuffer)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.events.Publish(genCtx, observability.EventStreamingStarted, map[string]interface{}{
		"session_id": id,
		"provider":   m.provider.Name(),
	})

	go m.consume(genCtx, s, req)

	return &domain.SessionHandle{ID: id, Events: s.events}, nil
}

// Stop cancels an active session. The first call performs the cancellation
// and returns true; later calls on an inactive or unknown session return
// false. The in-flight read loop observes the cancellation at its next
// suspension point; the channel is closed by that loop, not here.
func (m *Manager) Stop(ctx context.Context, sessionID string) bool {
	m.mu.RLock()
	s, exists := m.sessions[sessionID]
	m.mu.RUnlock()

	if !exists {
		return false
	}

	if !s.transition(domain.SessionCancelled) {
		return false
	}

	s.cancel()

	m.events.Publish(ctx, observability.EventStreamingStopped, map[string]interface{}{
		"session_id": sessionID,
	})

	return true
}

// Get returns a snapshot of a session.
func (m *Manager) Get(_ context.Context, sessionID string) (*domain.SessionSnapshot, bool) {
	m.mu.RLock()
	s, exists := m.sessions[sessionID]
	m.mu.RUnlock()

	if !exists {
		return nil, false
	}
	return s.snapshot(), true
}

// ActiveCount returns the number of non-terminal sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, s := range m.sessions {
		if !s.currentState().Terminal() {
			count++
		}
	}
	return count
}

// consume drives the provider stream for one session. It is the only sender
// on and the only closer of the session's event channel.
func (m *Manager) consume(ctx context.Context, s *Session, req *domain.GenerationRequest) {
	defer close(s.events)
	defer s.cancel()

	logger := observability.FromContext(ctx)
	start := time.Now()

	stream, err := m.provider.GenerateStream(ctx, req)
	if err != nil {
		m.fail(ctx, s, req, m.provider.ClassifyError(err), start)
		return
	}

	s.markActive()

	var providerUsage *domain.TokenCount

	for chunk := range stream {
		if ctx.Err() != nil {
			// Cancelled: abandon further provider consumption. The channel
			// close below is the cancellation signal to subscribers.
			logger.Info("stream consumption abandoned after cancellation")
			m.finishCancelled(ctx, s, req, start)
			return
		}

		if chunk.Err != nil {
			m.fail(ctx, s, req, m.provider.ClassifyError(chunk.Err), start)
			return
		}

		event := domain.StreamEvent{Chunk: &domain.StreamingChunk{
			Text:         chunk.Text,
			IsComplete:   chunk.Done,
			FinishReason: chunk.FinishReason,
			Usage:        chunk.Usage,
			Timestamp:    time.Now(),
		}}

		s.appendChunk(*event.Chunk)

		select {
		case s.events <- event:
		case <-ctx.Done():
			m.finishCancelled(ctx, s, req, start)
			return
		}

		if chunk.Done {
			providerUsage = chunk.Usage
			break
		}

		m.events.Publish(ctx, observability.EventStreamingChunk, map[string]interface{}{
			"session_id": s.id,
			"bytes":      len(chunk.Text),
		})
	}

	if ctx.Err() != nil {
		m.finishCancelled(ctx, s, req, start)
		return
	}

	m.complete(ctx, s, req, providerUsage, start)
}

// complete finishes a session on the provider's natural terminal chunk.
// Provider-reported usage wins over the summed per-chunk estimate.
func (m *Manager) complete(
	ctx context.Context,
	s *Session,
	req *domain.GenerationRequest,
	providerUsage *domain.TokenCount,
	start time.Time,
) {
	if !s.transition(domain.SessionCompleted) {
		return
	}

	usage := domain.EstimateUsage(req.Context+req.Prompt, s.fullText())
	if providerUsage != nil && providerUsage.TotalTokens > 0 {
		usage = *providerUsage
	}
	s.setUsage(usage)

	// Terminal done signal; the channel still holds any buffered chunks.
	select {
	case s.events <- domain.StreamEvent{Done: true}:
	case <-ctx.Done():
	}

	m.metrics.Track(domain.RequestMetric{
		RequestID:      observability.GenerateRequestID(),
		Endpoint:       domain.EndpointStream,
		PromptTokens:   usage.PromptTokens,
		ResponseTokens: usage.CompletionTokens,
		TotalTokens:    usage.TotalTokens,
		ResponseTimeMs: time.Since(start).Milliseconds(),
		Success:        true,
		Timestamp:      time.Now(),
		SessionID:      req.SessionID,
	})

	m.events.Publish(ctx, observability.EventStreamingCompleted, map[string]interface{}{
		"session_id":   s.id,
		"total_tokens": usage.TotalTokens,
		"is_estimated": usage.IsEstimated,
	})
}

// fail finishes a session on a mid-stream or startup provider failure. The
// error cannot be returned synchronously, so it is delivered as the terminal
// error event on the session channel.
func (m *Manager) fail(
	ctx context.Context,
	s *Session,
	req *domain.GenerationRequest,
	pe *domain.ProviderError,
	start time.Time,
) {
	if !s.transition(domain.SessionErrored) {
		return
	}

	select {
	case s.events <- domain.StreamEvent{Err: pe}:
	case <-ctx.Done():
	}

	m.metrics.Track(domain.RequestMetric{
		RequestID:      observability.GenerateRequestID(),
		Endpoint:       domain.EndpointStream,
		ResponseTimeMs: time.Since(start).Milliseconds(),
		Success:        false,
		ErrorCode:      pe.Code,
		Timestamp:      time.Now(),
		SessionID:      req.SessionID,
	})

	m.events.Publish(ctx, observability.EventStreamingError, map[string]interface{}{
		"session_id": s.id,
		"code":       string(pe.Code),
	})
}

// finishCancelled records the outcome of a session stopped by the caller.
// The Cancelled transition already happened in Stop.
func (m *Manager) finishCancelled(_ context.Context, s *Session, req *domain.GenerationRequest, start time.Time) {
	usage := domain.EstimateUsage(req.Context+req.Prompt, s.fullText())
	s.setUsage(usage)

	m.metrics.Track(domain.RequestMetric{
		RequestID:      observability.GenerateRequestID(),
		Endpoint:       domain.EndpointStream,
		PromptTokens:   usage.PromptTokens,
		ResponseTokens: usage.CompletionTokens,
		TotalTokens:    usage.TotalTokens,
		ResponseTimeMs: time.Since(start).Milliseconds(),
		Success:        true,
		Timestamp:      time.Now(),
		SessionID:      req.SessionID,
	})
}

// sweepLoop periodically removes terminal sessions older than MaxAge.
// Active sessions are never removed, regardless of age.
func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	now := time.Now()
	ctx := context.Background()

	m.mu.Lock()
	var cleaned []string
	for id, s := range m.sessions {
		endedAt, terminal := s.terminalSince()
		if terminal && now.Sub(endedAt) > m.opts.MaxAge {
			delete(m.sessions, id)
			cleaned = append(cleaned, id)
		}
	}
	m.mu.Unlock()

	for _, id := range cleaned {
		m.events.Publish(ctx, observability.EventSessionCleaned, map[string]interface{}{
			"session_id": id,
		})
	}
}

