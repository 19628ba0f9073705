// Package config provides configuration management for the webhook gateway.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like GATEWAY_SERVER_PORT, GATEWAY_LOG_LEVEL)
// 3. Default values
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Security SecurityConfig `mapstructure:"security"`
	Log      LogConfig      `mapstructure:"log"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// CORS settings for the admin surface.
	AllowedOrigins        []string `mapstructure:"allowed_origins"`
	AllowCredentials      bool     `mapstructure:"allow_credentials"`
	UnsafeAllowAllOrigins bool     `mapstructure:"unsafe_allow_all_origins"`
}

// EngineConfig contains storage engine settings.
type EngineConfig struct {
	// Path is the engine's on-disk file. ":memory:" opens an ephemeral
	// in-process database.
	Path string `mapstructure:"path"`

	// ReconcileInterval is how often the reconciler sweeps engine objects
	// for orphans not backed by a catalog row.
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
}

// DispatchConfig contains outbound webhook-delivery settings.
type DispatchConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxResponseBodyBytes int64        `mapstructure:"max_response_body_bytes"`
}

// SecurityConfig contains admin-surface authentication settings.
type SecurityConfig struct {
	// APIKey is the shared secret required in the X-API-Key header for
	// every admin route. It must be supplied by the operator; the
	// gateway never auto-generates one.
	APIKey string `mapstructure:"api_key"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// WorkerConfig contains worker pool settings for the reconciler.
type WorkerConfig struct {
	PoolSize int `mapstructure:"pool_size"`
}

// Load reads configuration from file and environment variables.
// Environment variables carry the GATEWAY_ prefix (GATEWAY_SERVER_PORT,
// GATEWAY_LOG_LEVEL, etc). Maps nested config: engine.path → GATEWAY_ENGINE_PATH.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/webhook-gateway")

	v.SetEnvPrefix("gateway")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyLegacyAliases(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// applyLegacyAliases fills fields from environment variable names outside the
// viper key mapping: GATEWAY_API_KEY, then WEBHOOK_GATEWAY_API_KEY, for the
// API key, and DUCKDB_PATH for the engine path (an older deployment
// generation named the engine after its original analytical backend).
func applyLegacyAliases(cfg *Config) {
	if cfg.Security.APIKey == "" {
		if alias := firstEnv("GATEWAY_API_KEY", "WEBHOOK_GATEWAY_API_KEY"); alias != "" {
			cfg.Security.APIKey = alias
		}
	}
	if cfg.Engine.Path == "" || cfg.Engine.Path == defaultEnginePath {
		if alias := firstEnv("DUCKDB_PATH"); alias != "" {
			cfg.Engine.Path = alias
		}
	}
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c.Security.APIKey == "" {
		return fmt.Errorf("security.api_key must not be empty: set GATEWAY_API_KEY or WEBHOOK_GATEWAY_API_KEY")
	}
	if len(c.Security.APIKey) < 16 {
		return fmt.Errorf("security.api_key must be at least 16 characters")
	}
	if c.Engine.Path == "" {
		return fmt.Errorf("engine.path must not be empty")
	}
	return nil
}

const defaultEnginePath = "webhookgw.db"

// firstEnv returns the first non-empty value among the given environment
// variable names.
func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.allow_credentials", true)
	v.SetDefault("server.unsafe_allow_all_origins", false)

	// Engine
	v.SetDefault("engine.path", defaultEnginePath)
	v.SetDefault("engine.reconcile_interval", "10m")

	// Dispatch
	v.SetDefault("dispatch.timeout", "10s")
	v.SetDefault("dispatch.max_response_body_bytes", 65536)

	// Security — no default api_key; the operator must supply one.
	v.SetDefault("security.api_key", "")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Worker
	v.SetDefault("worker.pool_size", 10)
}
