package config

import (
	"os"
	"testing"
)

func withAuthSecret() func() {
	os.Setenv("TELEMETRY_AUTH_SECRET", "a-test-signing-secret-that-is-at-least-32-bytes-long")
	return func() { os.Unsetenv("TELEMETRY_AUTH_SECRET") }
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	defer withAuthSecret()()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg == nil {
		t.Fatal("Config should not be nil")
	}

	if cfg.Port != 8090 {
		t.Errorf("Expected default port 8090, got %d", cfg.Port)
	}
	if cfg.DatabaseDriver != "sqlite" {
		t.Errorf("Expected default driver 'sqlite', got %s", cfg.DatabaseDriver)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level 'info', got %s", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("Expected default log format 'json', got %s", cfg.LogFormat)
	}
	if cfg.IngestBufferCapacity != 10000 {
		t.Errorf("Expected default buffer capacity 10000, got %d", cfg.IngestBufferCapacity)
	}
	if cfg.AnalysisZThreshold != 2.5 {
		t.Errorf("Expected default z threshold 2.5, got %v", cfg.AnalysisZThreshold)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	defer withAuthSecret()()
	os.Setenv("TELEMETRY_PORT", "9000")
	os.Setenv("TELEMETRY_DATABASE_DSN", "/tmp/test.db")
	os.Setenv("TELEMETRY_LOG_LEVEL", "debug")
	defer func() {
		os.Unsetenv("TELEMETRY_PORT")
		os.Unsetenv("TELEMETRY_DATABASE_DSN")
		os.Unsetenv("TELEMETRY_LOG_LEVEL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Expected port 9000 from env, got %d", cfg.Port)
	}
	if cfg.DatabaseDSN != "/tmp/test.db" {
		t.Errorf("Expected database dsn '/tmp/test.db' from env, got %s", cfg.DatabaseDSN)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug' from env, got %s", cfg.LogLevel)
	}
}

func TestLoad_AllowedOriginsCommaSeparated(t *testing.T) {
	os.Clearenv()
	defer withAuthSecret()()
	os.Setenv("TELEMETRY_ALLOWED_ORIGINS", "http://localhost:3000,https://example.com,http://localhost:5173")
	defer os.Unsetenv("TELEMETRY_ALLOWED_ORIGINS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if len(cfg.AllowedOrigins) != 3 {
		t.Errorf("Expected 3 allowed origins, got %d: %v", len(cfg.AllowedOrigins), cfg.AllowedOrigins)
	}
}

func TestLoad_AllowedOriginsCommaSeparatedWithWhitespace(t *testing.T) {
	os.Clearenv()
	defer withAuthSecret()()
	os.Setenv("TELEMETRY_ALLOWED_ORIGINS", " http://localhost:3000 , https://example.com ")
	defer os.Unsetenv("TELEMETRY_ALLOWED_ORIGINS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	for _, origin := range cfg.AllowedOrigins {
		if origin == " http://localhost:3000" || origin == "http://localhost:3000 " {
			t.Errorf("Origin has unexpected whitespace: %q", origin)
		}
	}
}

func TestLoad_MissingAuthSecret(t *testing.T) {
	os.Clearenv()
	if _, err := Load(); err == nil {
		t.Error("expected Load to fail when auth_secret is unset")
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	os.Clearenv()
	defer withAuthSecret()()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load should not error when config file is missing: %v", err)
	}
	if cfg == nil {
		t.Fatal("Config should not be nil even without config file")
	}
}
