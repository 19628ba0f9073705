package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("GATEWAY_SERVER_PORT")
	os.Unsetenv("GATEWAY_ENGINE_PATH")
	os.Unsetenv("DUCKDB_PATH")
	os.Unsetenv("WEBHOOK_GATEWAY_API_KEY")
	t.Setenv("GATEWAY_API_KEY", "a-test-key-of-16-chars-or-more")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if !cfg.Server.AllowCredentials {
		t.Errorf("Server.AllowCredentials = %v, want true", cfg.Server.AllowCredentials)
	}
	if cfg.Server.UnsafeAllowAllOrigins {
		t.Errorf("Server.UnsafeAllowAllOrigins = %v, want false", cfg.Server.UnsafeAllowAllOrigins)
	}

	if cfg.Engine.Path != defaultEnginePath {
		t.Errorf("Engine.Path = %q, want %q", cfg.Engine.Path, defaultEnginePath)
	}
	if cfg.Engine.ReconcileInterval != 10*time.Minute {
		t.Errorf("Engine.ReconcileInterval = %v, want 10m", cfg.Engine.ReconcileInterval)
	}

	if cfg.Dispatch.Timeout != 10*time.Second {
		t.Errorf("Dispatch.Timeout = %v, want 10s", cfg.Dispatch.Timeout)
	}
	if cfg.Dispatch.MaxResponseBodyBytes != 65536 {
		t.Errorf("Dispatch.MaxResponseBodyBytes = %d, want 65536", cfg.Dispatch.MaxResponseBodyBytes)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}

	if cfg.Worker.PoolSize != 10 {
		t.Errorf("Worker.PoolSize = %d, want 10", cfg.Worker.PoolSize)
	}
}

func TestLoad_MissingAPIKey(t *testing.T) {
	os.Unsetenv("GATEWAY_API_KEY")
	os.Unsetenv("WEBHOOK_GATEWAY_API_KEY")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for missing api key, got nil")
	}
}

func TestLoad_LegacyAPIKeyAlias(t *testing.T) {
	os.Unsetenv("GATEWAY_API_KEY")
	t.Setenv("WEBHOOK_GATEWAY_API_KEY", "a-legacy-key-of-16-chars-or-more")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Security.APIKey != "a-legacy-key-of-16-chars-or-more" {
		t.Errorf("Security.APIKey = %q, want the legacy alias value", cfg.Security.APIKey)
	}
}

func TestLoad_EnginePathFromEnv(t *testing.T) {
	t.Setenv("GATEWAY_API_KEY", "a-test-key-of-16-chars-or-more")
	t.Setenv("GATEWAY_ENGINE_PATH", "/tmp/custom.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.Path != "/tmp/custom.db" {
		t.Errorf("Engine.Path = %q, want /tmp/custom.db", cfg.Engine.Path)
	}
}

func TestLoad_EnginePathFromDuckDBAlias(t *testing.T) {
	os.Unsetenv("GATEWAY_ENGINE_PATH")
	t.Setenv("GATEWAY_API_KEY", "a-test-key-of-16-chars-or-more")
	t.Setenv("DUCKDB_PATH", "/tmp/alias.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.Path != "/tmp/alias.db" {
		t.Errorf("Engine.Path = %q, want /tmp/alias.db", cfg.Engine.Path)
	}
}

func TestConfigValidate_RejectsShortAPIKey(t *testing.T) {
	cfg := &Config{
		Security: SecurityConfig{APIKey: "short"},
		Engine:   EngineConfig{Path: defaultEnginePath},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for short api key, got nil")
	}
}

func TestLoad_ServerCORSFlagsFromEnv(t *testing.T) {
	t.Setenv("GATEWAY_API_KEY", "a-test-key-of-16-chars-or-more")
	t.Setenv("GATEWAY_SERVER_ALLOWED_ORIGINS", "https://example.com")
	t.Setenv("GATEWAY_SERVER_ALLOW_CREDENTIALS", "false")
	t.Setenv("GATEWAY_SERVER_UNSAFE_ALLOW_ALL_ORIGINS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := len(cfg.Server.AllowedOrigins); got != 1 {
		t.Fatalf("len(Server.AllowedOrigins) = %d, want 1", got)
	}
	if got := cfg.Server.AllowedOrigins[0]; got != "https://example.com" {
		t.Fatalf("Server.AllowedOrigins[0] = %q, want %q", got, "https://example.com")
	}
	if cfg.Server.AllowCredentials {
		t.Fatalf("Server.AllowCredentials = %v, want false", cfg.Server.AllowCredentials)
	}
	if !cfg.Server.UnsafeAllowAllOrigins {
		t.Fatalf("Server.UnsafeAllowAllOrigins = %v, want true", cfg.Server.UnsafeAllowAllOrigins)
	}
}

func TestConfigValidate_RejectsEmptyEnginePath(t *testing.T) {
	cfg := &Config{
		Security: SecurityConfig{APIKey: "a-test-key-of-16-chars-or-more"},
		Engine:   EngineConfig{Path: ""},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for empty engine path, got nil")
	}
}
