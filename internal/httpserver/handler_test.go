package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/domain"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/httpserver"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/metrics"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/observability"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/provider/lorem"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/ratelimit"
)

// fakeSessions is a canned SessionManager for handler tests.
type fakeSessions struct {
	handle     *domain.SessionHandle
	stopResult bool
	snapshot   *domain.SessionSnapshot
}

func (f *fakeSessions) Start(_ context.Context, _ *domain.GenerationRequest) (*domain.SessionHandle, error) {
	return f.handle, nil
}

func (f *fakeSessions) Stop(_ context.Context, _ string) bool {
	return f.stopResult
}

func (f *fakeSessions) Get(_ context.Context, _ string) (*domain.SessionSnapshot, bool) {
	if f.snapshot == nil {
		return nil, false
	}
	return f.snapshot, true
}

// failingProvider always fails, for unhealthy paths.
type failingProvider struct{}

func (failingProvider) Generate(_ context.Context, _ *domain.GenerationRequest) (*domain.GenerationResponse, error) {
	return nil, errors.New("connection refused")
}

func (failingProvider) GenerateStream(_ context.Context, _ *domain.GenerationRequest) (<-chan domain.ProviderChunk, error) {
	return nil, errors.New("connection refused")
}

func (failingProvider) ClassifyError(err error) *domain.ProviderError {
	return domain.Classify(err, "failing")
}

func (failingProvider) Name() string {
	return "failing"
}

func newTestHandler(provider domain.Provider, limiter domain.RateLimiter, sessions domain.SessionManager) *httpserver.Handler {
	events := observability.NewEventBus(zap.NewNop())
	recorder := metrics.NewRecorder(100, nil)

	gateway := domain.NewGateway(provider, limiter, recorder, sessions, events, domain.GatewayOptions{
		StreamingEnabled:   true,
		DefaultRateKey:     "anonymous",
		DefaultMaxTokens:   1024,
		DefaultTemperature: 0.7,
	})

	return httpserver.NewHandler(gateway)
}

func defaultTestHandler() *httpserver.Handler {
	return newTestHandler(lorem.NewAdapter(), ratelimit.NewLimiter(100, time.Minute), &fakeSessions{})
}

func TestHandleGenerate(t *testing.T) {
	t.Run("should return the generated response", func(t *testing.T) {
		handler := defaultTestHandler()

		body, _ := json.Marshal(domain.GenerationRequest{Prompt: "hello world", Temperature: 0})
		req := httptest.NewRequest(http.MethodPost, "/v1/generate", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.HandleGenerate(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var resp domain.GenerationResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Equal(t, "hello world", resp.Text)
		require.Equal(t, domain.FinishStop, resp.FinishReason)
		require.Equal(t, "lorem", resp.Provider)
	})

	t.Run("should reject malformed bodies", func(t *testing.T) {
		handler := defaultTestHandler()

		req := httptest.NewRequest(http.MethodPost, "/v1/generate", bytes.NewReader([]byte("{not json")))
		w := httptest.NewRecorder()

		handler.HandleGenerate(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should reject empty prompts with the taxonomy error body", func(t *testing.T) {
		handler := defaultTestHandler()

		req := httptest.NewRequest(http.MethodPost, "/v1/generate", bytes.NewReader([]byte("{}")))
		w := httptest.NewRecorder()

		handler.HandleGenerate(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)

		var body map[string]map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		require.Equal(t, string(domain.ErrCodeInvalidRequest), body["error"]["code"])
	})

	t.Run("should surface rate limiting with a retry hint", func(t *testing.T) {
		handler := newTestHandler(lorem.NewAdapter(), ratelimit.NewLimiter(1, time.Minute), &fakeSessions{})

		body, _ := json.Marshal(domain.GenerationRequest{Prompt: "hi", Temperature: 0})

		w := httptest.NewRecorder()
		handler.HandleGenerate(w, httptest.NewRequest(http.MethodPost, "/v1/generate", bytes.NewReader(body)))
		require.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		handler.HandleGenerate(w, httptest.NewRequest(http.MethodPost, "/v1/generate", bytes.NewReader(body)))

		require.Equal(t, http.StatusTooManyRequests, w.Code)
		require.NotEmpty(t, w.Header().Get("Retry-After"))

		var errBody map[string]map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&errBody))
		require.Equal(t, string(domain.ErrCodeRateLimitExceeded), errBody["error"]["code"])
	})
}

func TestHandleGenerateStream(t *testing.T) {
	t.Run("should relay chunks and the done event over SSE", func(t *testing.T) {
		events := make(chan domain.StreamEvent, 4)
		events <- domain.StreamEvent{Chunk: &domain.StreamingChunk{Text: "Hel"}}
		events <- domain.StreamEvent{Chunk: &domain.StreamingChunk{Text: "lo"}}
		events <- domain.StreamEvent{Done: true}
		close(events)

		sessions := &fakeSessions{handle: &domain.SessionHandle{ID: "sess-1", Events: events}}
		handler := newTestHandler(lorem.NewAdapter(), ratelimit.NewLimiter(100, time.Minute), sessions)

		body, _ := json.Marshal(domain.GenerationRequest{Prompt: "hi"})
		req := httptest.NewRequest(http.MethodPost, "/v1/generate/stream", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.HandleGenerateStream(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
		require.Equal(t, "sess-1", w.Header().Get("X-Session-Id"))

		output := w.Body.String()
		require.Contains(t, output, `data: {"text":"Hel"`)
		require.Contains(t, output, `data: {"text":"lo"`)
		require.Contains(t, output, "event: done")
	})

	t.Run("should relay a terminal error event", func(t *testing.T) {
		events := make(chan domain.StreamEvent, 1)
		events <- domain.StreamEvent{Err: domain.NewProviderError(domain.ErrCodeModelOverloaded, "test", "overloaded")}
		close(events)

		sessions := &fakeSessions{handle: &domain.SessionHandle{ID: "sess-2", Events: events}}
		handler := newTestHandler(lorem.NewAdapter(), ratelimit.NewLimiter(100, time.Minute), sessions)

		body, _ := json.Marshal(domain.GenerationRequest{Prompt: "hi"})
		w := httptest.NewRecorder()

		handler.HandleGenerateStream(w, httptest.NewRequest(http.MethodPost, "/v1/generate/stream", bytes.NewReader(body)))

		output := w.Body.String()
		require.Contains(t, output, "event: error")
		require.Contains(t, output, string(domain.ErrCodeModelOverloaded))
	})

	t.Run("should signal cancellation when the channel closes early", func(t *testing.T) {
		events := make(chan domain.StreamEvent, 1)
		events <- domain.StreamEvent{Chunk: &domain.StreamingChunk{Text: "par"}}
		close(events)

		sessions := &fakeSessions{handle: &domain.SessionHandle{ID: "sess-3", Events: events}}
		handler := newTestHandler(lorem.NewAdapter(), ratelimit.NewLimiter(100, time.Minute), sessions)

		body, _ := json.Marshal(domain.GenerationRequest{Prompt: "hi"})
		w := httptest.NewRecorder()

		handler.HandleGenerateStream(w, httptest.NewRequest(http.MethodPost, "/v1/generate/stream", bytes.NewReader(body)))

		require.Contains(t, w.Body.String(), "event: cancelled")
	})
}

func TestHandleSessions(t *testing.T) {
	t.Run("should return a session snapshot", func(t *testing.T) {
		sessions := &fakeSessions{snapshot: &domain.SessionSnapshot{
			ID:          "sess-1",
			State:       domain.SessionCompleted,
			TotalTokens: 30,
		}}
		handler := newTestHandler(lorem.NewAdapter(), ratelimit.NewLimiter(100, time.Minute), sessions)

		req := httptest.NewRequest(http.MethodGet, "/v1/sessions/sess-1", nil)
		req.SetPathValue("id", "sess-1")
		w := httptest.NewRecorder()

		handler.HandleGetSession(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var snapshot domain.SessionSnapshot
		require.NoError(t, json.NewDecoder(w.Body).Decode(&snapshot))
		require.Equal(t, "sess-1", snapshot.ID)
		require.Equal(t, domain.SessionCompleted, snapshot.State)
	})

	t.Run("should return 404 for unknown sessions", func(t *testing.T) {
		handler := defaultTestHandler()

		req := httptest.NewRequest(http.MethodGet, "/v1/sessions/missing", nil)
		req.SetPathValue("id", "missing")
		w := httptest.NewRecorder()

		handler.HandleGetSession(w, req)

		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("should report the stop outcome", func(t *testing.T) {
		sessions := &fakeSessions{stopResult: true}
		handler := newTestHandler(lorem.NewAdapter(), ratelimit.NewLimiter(100, time.Minute), sessions)

		req := httptest.NewRequest(http.MethodDelete, "/v1/sessions/sess-1", nil)
		req.SetPathValue("id", "sess-1")
		w := httptest.NewRecorder()

		handler.HandleStopSession(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		require.Equal(t, true, body["stopped"])
		require.Equal(t, "sess-1", body["session_id"])
	})
}

func TestHandleRateLimitStatus(t *testing.T) {
	handler := defaultTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/v1/ratelimit?key=user-1", nil)
	w := httptest.NewRecorder()

	handler.HandleRateLimitStatus(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var status domain.RateLimitStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	require.Equal(t, 100, status.Limit)
	require.Equal(t, 100, status.Remaining)
}

func TestHandleMetrics(t *testing.T) {
	t.Run("should summarize tracked usage", func(t *testing.T) {
		handler := defaultTestHandler()

		body, _ := json.Marshal(domain.GenerationRequest{Prompt: "hello", Temperature: 0})
		w := httptest.NewRecorder()
		handler.HandleGenerate(w, httptest.NewRequest(http.MethodPost, "/v1/generate", bytes.NewReader(body)))
		require.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		handler.HandleMetrics(w, httptest.NewRequest(http.MethodGet, "/v1/metrics?minutes=60", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var summary domain.UsageMetrics
		require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
		require.Equal(t, 1, summary.TotalRequests)
	})

	t.Run("should reject invalid windows", func(t *testing.T) {
		handler := defaultTestHandler()

		w := httptest.NewRecorder()
		handler.HandleMetrics(w, httptest.NewRequest(http.MethodGet, "/v1/metrics?minutes=soon", nil))

		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleHealth(t *testing.T) {
	t.Run("should report healthy", func(t *testing.T) {
		handler := defaultTestHandler()

		w := httptest.NewRecorder()
		handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var health domain.HealthStatus
		require.NoError(t, json.NewDecoder(w.Body).Decode(&health))
		require.Equal(t, domain.HealthHealthy, health.Status)
		require.Equal(t, "lorem", health.Details["provider"])
	})

	t.Run("should report unhealthy with 503", func(t *testing.T) {
		handler := newTestHandler(failingProvider{}, ratelimit.NewLimiter(100, time.Minute), &fakeSessions{})

		w := httptest.NewRecorder()
		handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var health domain.HealthStatus
		require.NoError(t, json.NewDecoder(w.Body).Decode(&health))
		require.Equal(t, domain.HealthUnhealthy, health.Status)
		require.Equal(t, string(domain.ErrCodeNetworkError), health.Details["code"])
	})
}
