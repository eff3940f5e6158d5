package observability

import (
	"context"

	"go.uber.org/zap"
)

// Lifecycle and request events emitted by the gateway. Consumers subscribe
// through the logging pipeline; the event type is the log message.
const (
	EventInitialized        = "initialized"
	EventShutdown           = "shutdown"
	EventRequestStarted     = "request-started"
	EventResponseReceived   = "response-received"
	EventError              = "error"
	EventStreamingStarted   = "streaming-started"
	EventStreamingChunk     = "streaming-chunk"
	EventStreamingCompleted = "streaming-completed"
	EventStreamingError     = "streaming-error"
	EventStreamingStopped   = "streaming-stopped"
	EventSessionCleaned     = "session-cleaned"
)

// EventBus publishes gateway events to the structured log stream.
type EventBus struct {
	logger *zap.Logger
}

// NewEventBus creates a new event bus.
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		logger: logger,
	}
}

// Publish publishes an event with the given type and data.
func (e *EventBus) Publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if e.logger == nil {
		return
	}

	fields := make([]zap.Field, 0, len(data)+1)
	fields = append(fields, zap.String("event", eventType))
	for k, v := range data {
		fields = append(fields, zap.Any(k, v))
	}

	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}

	e.logger.Info(eventType, fields...)
}
