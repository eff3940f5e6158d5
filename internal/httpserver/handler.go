package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/domain"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/observability"
)

// Handler handles HTTP requests.
type Handler struct {
	gateway *domain.Gateway
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(gateway *domain.Gateway) *Handler {
	return &Handler{
		gateway: gateway,
	}
}

type errorBody struct {
	Code              string `json:"code"`
	Message           string `json:"message"`
	Provider          string `json:"provider,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

// writeError maps an error onto an HTTP response. Provider errors carry their
// own status; connectivity failures without a provider status become 502.
func (h *Handler) writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	pe, ok := domain.IsProviderError(err)
	if !ok {
		logger.Error("unclassified error", observability.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	status := pe.HTTPStatus
	if status == 0 {
		status = http.StatusBadGateway
	}

	if pe.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(pe.RetryAfterSeconds))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]errorBody{"error": {
		Code:              string(pe.Code),
		Message:           pe.Message,
		Provider:          pe.Provider,
		RetryAfterSeconds: pe.RetryAfterSeconds,
	}})
}

// HandleGenerate processes non-streaming generation requests.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	var req domain.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	response, err := h.gateway.GenerateText(ctx, &req)
	if err != nil {
		logger.Error("generation failed", observability.Error(err))
		h.writeError(w, logger, err)
		return
	}

	logger.Info("generation succeeded",
		observability.Int("tokens", response.Usage.TotalTokens),
		observability.String("finish_reason", string(response.FinishReason)),
	)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed to encode response", observability.Error(err))
	}
}

// HandleGenerateStream processes streaming generation requests over SSE.
// Chunks arrive as data events; a terminal "done" or "error" event follows.
// A client disconnect stops the underlying session.
func (h *Handler) HandleGenerateStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	var req domain.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	handle, err := h.gateway.GenerateStreamingText(ctx, &req)
	if err != nil {
		logger.Error("stream start failed", observability.Error(err))
		h.writeError(w, logger, err)
		return
	}

	logger.Info("stream started", observability.String("session_id", handle.ID))

	// Lift the server write deadline for this response; slow generations
	// outlive the global timeout that bounds the JSON endpoints.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Session-Id", handle.ID)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			// Client went away; the session must not keep consuming quota.
			h.gateway.StopStreaming(ctx, handle.ID)
			return

		case event, open := <-handle.Events:
			if !open {
				// Closed without a terminal event means cancellation.
				fmt.Fprint(w, "event: cancelled\ndata: {}\n\n")
				flusher.Flush()
				return
			}

			if event.Err != nil {
				logger.Error("stream session error", observability.Error(event.Err))
				data, _ := json.Marshal(errorBody{
					Code:     string(event.Err.Code),
					Message:  event.Err.Message,
					Provider: event.Err.Provider,
				})
				fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
				flusher.Flush()
				return
			}

			if event.Done {
				logger.Info("stream completed", observability.String("session_id", handle.ID))
				fmt.Fprint(w, "event: done\ndata: {}\n\n")
				flusher.Flush()
				return
			}

			data, _ := json.Marshal(event.Chunk)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// HandleGetSession returns a snapshot of a streaming session.
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := r.PathValue("id")
	snapshot, exists := h.gateway.GetSession(ctx, id)
	if !exists {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snapshot)
}

// HandleStopSession cancels a streaming session. The response reports whether
// this call performed the cancellation; repeating it reports false.
func (h *Handler) HandleStopSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := r.PathValue("id")
	stopped := h.gateway.StopStreaming(ctx, id)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"session_id": id,
		"stopped":    stopped,
	})
}

// HandleRateLimitStatus reports the rate limit bucket state for a key without
// consuming from it.
func (h *Handler) HandleRateLimitStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	status, err := h.gateway.GetRateLimitStatus(ctx, r.URL.Query().Get("key"))
	if err != nil {
		logger.Error("rate limit status failed", observability.Error(err))
		h.writeError(w, logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

// HandleMetrics returns aggregated usage metrics. The minutes query parameter
// bounds the window; zero or absent means the whole retained history.
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	minutes := 0
	if raw := r.URL.Query().Get("minutes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid minutes parameter", http.StatusBadRequest)
			return
		}
		minutes = parsed
	}

	metrics := h.gateway.GetUsageMetrics(ctx, time.Duration(minutes)*time.Minute)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(metrics)
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	health := h.gateway.HealthCheck(ctx)

	status := http.StatusOK
	if health.Status != domain.HealthHealthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(health)
}
