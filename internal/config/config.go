package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/provider/anthropic"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/provider/openai"
)

// Config represents the gateway configuration.
type Config struct {
	Server    ServerConfig
	CORS      CORSConfig
	Gateway   GatewayConfig
	RateLimit RateLimitConfig
	Streaming StreamingConfig
	Metrics   MetricsConfig
	OpenAI    openai.Config
	Anthropic anthropic.Config
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"30"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// GatewayConfig selects the active provider and request defaults.
type GatewayConfig struct {
	Provider           string  `env:"GATEWAY_PROVIDER"            envDefault:"lorem"`
	DefaultMaxTokens   int     `env:"GATEWAY_DEFAULT_MAX_TOKENS"  envDefault:"1024"`
	DefaultTemperature float64 `env:"GATEWAY_DEFAULT_TEMPERATURE" envDefault:"0.7"`
}

// RateLimitConfig contains fixed-window rate limiter settings. When RedisAddr
// is set the limiter state is shared across instances via Redis.
type RateLimitConfig struct {
	MaxRequests int    `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"60"`
	WindowMs    int    `env:"RATE_LIMIT_WINDOW_MS"    envDefault:"60000"`
	DefaultKey  string `env:"RATE_LIMIT_DEFAULT_KEY"  envDefault:"anonymous"`
	RedisAddr   string `env:"RATE_LIMIT_REDIS_ADDR"`
}

// StreamingConfig contains streaming session settings.
type StreamingConfig struct {
	Enabled          bool `env:"STREAMING_ENABLED"            envDefault:"true"`
	SessionMaxAgeSec int  `env:"STREAMING_SESSION_MAX_AGE"    envDefault:"1800"`
	SweepIntervalSec int  `env:"STREAMING_SWEEP_INTERVAL"     envDefault:"60"`
}

// MetricsConfig contains usage metrics settings.
type MetricsConfig struct {
	Capacity int `env:"METRICS_CAPACITY" envDefault:"1000"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*GatewayConfig
	*RateLimitConfig
	*StreamingConfig
	*MetricsConfig
	OpenAI    *openai.Config
	Anthropic *anthropic.Config
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.Gateway,
		&cfg.RateLimit,
		&cfg.Streaming,
		&cfg.Metrics,
		&cfg.OpenAI,
		&cfg.Anthropic,
	}
}
