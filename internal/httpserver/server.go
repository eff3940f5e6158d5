// Package httpserver exposes the gateway over HTTP: JSON endpoints for
// generation, session control, rate limit inspection and usage metrics, plus
// an SSE endpoint for streaming generation.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/config"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/httpserver/middleware"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/observability"
)

// Server represents the HTTP server.
type Server struct {
	config      config.ServerConfig
	handler     *Handler
	middlewares middleware.Middleware
	srv         *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg *config.ServerConfig,
	handler *Handler,
	middlewares middleware.Middleware,
) *Server {
	return &Server{
		config:      *cfg,
		handler:     handler,
		middlewares: middlewares,
		srv:         nil,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("POST /v1/generate", s.handler.HandleGenerate)
	mux.HandleFunc("POST /v1/generate/stream", s.handler.HandleGenerateStream)
	mux.HandleFunc("GET /v1/sessions/{id}", s.handler.HandleGetSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", s.handler.HandleStopSession)
	mux.HandleFunc("GET /v1/ratelimit", s.handler.HandleRateLimitStatus)
	mux.HandleFunc("GET /v1/metrics", s.handler.HandleMetrics)
	mux.HandleFunc("GET /health", s.handler.HandleHealth)

	// Apply middleware chain.
	handlerWithMiddleware := s.middlewares(mux)

	// Create server with timeouts. The SSE handler lifts the write deadline
	// for its own response; the global timeout still bounds the JSON
	// endpoints.
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      handlerWithMiddleware,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
	}

	ctx := context.Background()
	observability.FromContext(ctx).Info("starting HTTP server", observability.Int("port", s.config.Port))

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	observability.FromContext(ctx).Info("shutting down HTTP server")

	if s.srv == nil {
		return nil
	}

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
