package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the manimatic service
type Config struct {
	// Server configuration
	HTTPPort int    `env:"MANIMATIC_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"MANIMATIC_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	WebDir   string `env:"WEB_DIR" envDefault:"web"`

	// Redis configuration
	Redis RedisConfig

	// LLM configuration
	LLM LLMConfig

	// Renderer configuration
	Render RenderConfig

	// Storage configuration
	Storage StorageConfig

	// Worker configuration
	Workers WorkerConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// LLMConfig holds configuration for the LLM backends
type LLMConfig struct {
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GroqAPIKey      string `env:"GROQ_API_KEY"`

	AnthropicModel string `env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-sonnet-20241022"`
	GroqModel      string `env:"GROQ_MODEL" envDefault:"meta-llama/llama-4-maverick-17b-128e-instruct"`

	Temperature        float64       `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	CodeMaxTokens      int           `env:"LLM_CODE_MAX_TOKENS" envDefault:"8000"`
	NarrationMaxTokens int           `env:"LLM_NARRATION_MAX_TOKENS" envDefault:"4000"`
	EnhanceMaxTokens   int           `env:"LLM_ENHANCE_MAX_TOKENS" envDefault:"1500"`
	RequestTimeout     time.Duration `env:"LLM_REQUEST_TIMEOUT" envDefault:"120s"`

	// Optional YAML file with extra animation patterns appended to the
	// code-generation system prompt.
	PatternsFile string `env:"ANIMATION_PATTERNS_FILE"`
}

// RenderConfig holds configuration for the external Manim renderer
type RenderConfig struct {
	Binary      string        `env:"MANIM_BINARY" envDefault:"manim"`
	Quality     string        `env:"MANIM_QUALITY" envDefault:"m"`
	MaxAttempts int           `env:"RENDER_MAX_ATTEMPTS" envDefault:"3"`
	Timeout     time.Duration `env:"RENDER_TIMEOUT" envDefault:"10m"`
	OutputsDir  string        `env:"OUTPUTS_DIR" envDefault:"outputs"`
}

// StorageConfig holds state storage and catalog configuration
type StorageConfig struct {
	StateTTL    time.Duration `env:"STATE_TTL" envDefault:"24h"`
	CatalogPath string        `env:"CATALOG_DB_PATH" envDefault:"manimatic.db"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	PoolSize            int           `env:"WORKER_POOL_SIZE" envDefault:"2"`
	HealthCheckInterval time.Duration `env:"WORKER_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	GenerationTimeout time.Duration `env:"TIMEOUT_GENERATION" envDefault:"1800s"`
	ShutdownTimeout   time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	// At least one LLM backend must be usable
	if c.LLM.AnthropicAPIKey == "" && c.LLM.GroqAPIKey == "" {
		return fmt.Errorf("at least one of ANTHROPIC_API_KEY or GROQ_API_KEY is required")
	}

	if c.Render.MaxAttempts < 1 {
		return fmt.Errorf("render max attempts must be at least 1")
	}
	if c.Render.Binary == "" {
		return fmt.Errorf("manim binary is required")
	}
	if c.Render.OutputsDir == "" {
		return fmt.Errorf("outputs directory is required")
	}

	if c.Workers.PoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
