package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/config"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/domain"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/httpserver"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/httpserver/middleware"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/metrics"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/observability"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/provider/anthropic"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/provider/lorem"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/provider/openai"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/provider/registry"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/ratelimit"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/session"
)

// ErrProviderNotConfigured indicates that a provider is not configured and should be skipped.
var ErrProviderNotConfigured = errors.New("provider not configured")

const shutdownTimeout = 10 * time.Second

func main() {
	container := buildContainer()

	err := container.Invoke(func(
		server *httpserver.Server,
		manager *session.Manager,
		events domain.EventPublisher,
		logger *zap.Logger,
	) {
		ctx := context.Background()
		events.Publish(ctx, observability.EventInitialized, nil)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			if err != nil {
				log.Fatalf("Server failed to start: %v", err)
			}
		case sig := <-quit:
			logger.Info("shutdown signal received", observability.String("signal", sig.String()))
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", observability.Error(err))
		}
		manager.Close()
		events.Publish(ctx, observability.EventShutdown, nil)
	})
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(func(logger *zap.Logger) domain.EventPublisher {
		return observability.NewEventBus(logger)
	}); err != nil {
		log.Fatalf("Failed to provide event bus: %v", err)
	}

	// Provider Registry
	if err := container.Provide(func() domain.ProviderRegistry {
		return registry.NewRegistry()
	}); err != nil {
		log.Fatalf("Failed to provide registry: %v", err)
	}

	// Lorem Provider (always available, used for local development and tests)
	if err := container.Provide(lorem.NewAdapter); err != nil {
		log.Fatalf("Failed to provide lorem provider: %v", err)
	}

	// OpenAI Provider
	if err := container.Provide(func(cfg *openai.Config) (*openai.Adapter, error) {
		if cfg.APIKey == "" {
			return nil, ErrProviderNotConfigured
		}
		return openai.NewAdapter(*cfg)
	}); err != nil {
		log.Fatalf("Failed to provide OpenAI provider: %v", err)
	}

	// Anthropic Provider
	if err := container.Provide(func(cfg *anthropic.Config) (*anthropic.Adapter, error) {
		if cfg.APIKey == "" {
			return nil, ErrProviderNotConfigured
		}
		return anthropic.NewAdapter(*cfg)
	}); err != nil {
		log.Fatalf("Failed to provide Anthropic provider: %v", err)
	}

	// Register providers with registry (invoked for side effects). Optional
	// providers are registered one Invoke each so a missing API key skips
	// just that provider.
	if err := container.Invoke(func(reg domain.ProviderRegistry, p *lorem.Adapter) error {
		return reg.Register(context.Background(), p)
	}); err != nil {
		log.Fatalf("Failed to register lorem provider: %v", err)
	}
	if err := container.Invoke(func(reg domain.ProviderRegistry, p *openai.Adapter) error {
		return reg.Register(context.Background(), p)
	}); err != nil && !errors.Is(err, ErrProviderNotConfigured) {
		log.Fatalf("Failed to register OpenAI provider: %v", err)
	}
	if err := container.Invoke(func(reg domain.ProviderRegistry, p *anthropic.Adapter) error {
		return reg.Register(context.Background(), p)
	}); err != nil && !errors.Is(err, ErrProviderNotConfigured) {
		log.Fatalf("Failed to register Anthropic provider: %v", err)
	}

	// Active provider, resolved once at startup.
	if err := container.Provide(func(cfg *config.GatewayConfig, reg domain.ProviderRegistry) (domain.Provider, error) {
		provider, err := reg.Get(context.Background(), cfg.Provider)
		if err != nil {
			return nil, fmt.Errorf("active provider %q not available: %w", cfg.Provider, err)
		}
		return provider, nil
	}); err != nil {
		log.Fatalf("Failed to provide active provider: %v", err)
	}

	// Rate Limiter
	if err := container.Provide(func(cfg *config.RateLimitConfig) domain.RateLimiter {
		window := time.Duration(cfg.WindowMs) * time.Millisecond
		if cfg.RedisAddr != "" {
			client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			return ratelimit.NewRedisLimiter(client, cfg.MaxRequests, window)
		}
		return ratelimit.NewLimiter(cfg.MaxRequests, window)
	}); err != nil {
		log.Fatalf("Failed to provide rate limiter: %v", err)
	}

	// Pricing and Cost
	if err := container.Provide(func() domain.PricingRegistry {
		return domain.NewInMemoryPricingRegistry()
	}); err != nil {
		log.Fatalf("Failed to provide pricing registry: %v", err)
	}
	if err := container.Invoke(func(reg domain.PricingRegistry) error {
		ctx := context.Background()
		if err := lorem.RegisterPricing(ctx, reg); err != nil {
			return err
		}
		if err := openai.RegisterPricing(ctx, reg); err != nil {
			return err
		}
		return anthropic.RegisterPricing(ctx, reg)
	}); err != nil {
		log.Fatalf("Failed to register pricing: %v", err)
	}
	if err := container.Provide(func(reg domain.PricingRegistry) domain.CostCalculator {
		return domain.NewStandardCostCalculator(reg)
	}); err != nil {
		log.Fatalf("Failed to provide cost calculator: %v", err)
	}

	// Metrics
	if err := container.Provide(func(cfg *config.MetricsConfig, costs domain.CostCalculator) domain.MetricsRecorder {
		return metrics.NewRecorder(cfg.Capacity, costs)
	}); err != nil {
		log.Fatalf("Failed to provide metrics recorder: %v", err)
	}

	// Streaming Sessions
	if err := container.Provide(func(
		provider domain.Provider,
		limiter domain.RateLimiter,
		recorder domain.MetricsRecorder,
		events domain.EventPublisher,
		streamCfg *config.StreamingConfig,
		rateCfg *config.RateLimitConfig,
	) *session.Manager {
		return session.NewManager(provider, limiter, recorder, events, session.Options{
			MaxAge:         time.Duration(streamCfg.SessionMaxAgeSec) * time.Second,
			SweepInterval:  time.Duration(streamCfg.SweepIntervalSec) * time.Second,
			DefaultRateKey: rateCfg.DefaultKey,
		})
	}); err != nil {
		log.Fatalf("Failed to provide session manager: %v", err)
	}
	if err := container.Provide(func(m *session.Manager) domain.SessionManager {
		return m
	}); err != nil {
		log.Fatalf("Failed to provide session manager interface: %v", err)
	}

	// Domain Services
	if err := container.Provide(func(
		provider domain.Provider,
		limiter domain.RateLimiter,
		recorder domain.MetricsRecorder,
		sessions domain.SessionManager,
		events domain.EventPublisher,
		gatewayCfg *config.GatewayConfig,
		rateCfg *config.RateLimitConfig,
		streamCfg *config.StreamingConfig,
	) *domain.Gateway {
		return domain.NewGateway(provider, limiter, recorder, sessions, events, domain.GatewayOptions{
			StreamingEnabled:   streamCfg.Enabled,
			DefaultRateKey:     rateCfg.DefaultKey,
			DefaultMaxTokens:   gatewayCfg.DefaultMaxTokens,
			DefaultTemperature: gatewayCfg.DefaultTemperature,
		})
	}); err != nil {
		log.Fatalf("Failed to provide gateway: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(httpserver.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(func(corsCfg *config.CORSConfig) middleware.Middleware {
		return middleware.BuildMiddlewareChain(corsCfg)
	}); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(httpserver.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}
