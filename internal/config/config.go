package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port           int      `mapstructure:"port"`
	DatabaseDriver string   `mapstructure:"database_driver"` // postgres | sqlite
	DatabaseDSN    string   `mapstructure:"database_dsn"`
	LogLevel       string   `mapstructure:"log_level"`  // debug | info | warn | error
	LogFormat      string   `mapstructure:"log_format"` // json | text
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	RequestTimeoutSec  int `mapstructure:"request_timeout_sec"`
	ShutdownTimeoutSec int `mapstructure:"shutdown_timeout_sec"`

	// MQTT ingestion transport.
	MQTTBrokerURL     string   `mapstructure:"mqtt_broker_url"`
	MQTTTopics        []string `mapstructure:"mqtt_topics"`
	MQTTClientID      string   `mapstructure:"mqtt_client_id"`
	MQTTUsername      string   `mapstructure:"mqtt_username"`
	MQTTPassword      string   `mapstructure:"mqtt_password"`
	MQTTCleanSession  bool     `mapstructure:"mqtt_clean_session"`
	MQTTAutoReconnect bool     `mapstructure:"mqtt_auto_reconnect"`
	MQTTKeepaliveSec  int      `mapstructure:"mqtt_keepalive_s"`

	// Ingestion pipeline.
	IngestBufferCapacity int `mapstructure:"ingest_buffer_capacity"`
	IngestBatchMax       int `mapstructure:"ingest_batch_max"`
	IngestBatchLingerMs  int `mapstructure:"ingest_batch_linger_ms"`

	// Analysis engine.
	AnalysisZThreshold float64 `mapstructure:"analysis_z_threshold"`
	AnalysisMinPoints  int     `mapstructure:"analysis_min_points"`
	AnalysisTempWarn   float64 `mapstructure:"analysis_temp_warn"`
	AnalysisTempCrit   float64 `mapstructure:"analysis_temp_crit"`
	AnalysisVibWarn    float64 `mapstructure:"analysis_vib_warn"`
	AnalysisVibCrit    float64 `mapstructure:"analysis_vib_crit"`

	// Auth boundary.
	AuthTokenTTLMs int    `mapstructure:"auth_token_ttl_ms"`
	AuthSecret     string `mapstructure:"auth_secret"`

	// Retention & compression (store contract, §6).
	RetentionDays    int `mapstructure:"retention_days"`
	CompressionAgeDays int `mapstructure:"compression_age_days"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/telemetry/")
	viper.AddConfigPath("$HOME/.telemetry")
	viper.AddConfigPath(".")

	viper.SetDefault("port", 8090)
	viper.SetDefault("database_driver", "sqlite")
	viper.SetDefault("database_dsn", "./telemetry.db")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "json")
	viper.SetDefault("allowed_origins", []string{"http://localhost:5173", "http://localhost:8090"})

	viper.SetDefault("request_timeout_sec", 10)
	viper.SetDefault("shutdown_timeout_sec", 30)

	viper.SetDefault("mqtt_broker_url", "tcp://localhost:1883")
	viper.SetDefault("mqtt_topics", []string{"machine/+/data"})
	viper.SetDefault("mqtt_client_id", "telemetry-ingest")
	viper.SetDefault("mqtt_username", "")
	viper.SetDefault("mqtt_password", "")
	viper.SetDefault("mqtt_clean_session", true)
	viper.SetDefault("mqtt_auto_reconnect", true)
	viper.SetDefault("mqtt_keepalive_s", 60)

	viper.SetDefault("ingest_buffer_capacity", 10000)
	viper.SetDefault("ingest_batch_max", 500)
	viper.SetDefault("ingest_batch_linger_ms", 250)

	viper.SetDefault("analysis_z_threshold", 2.5)
	viper.SetDefault("analysis_min_points", 10)
	viper.SetDefault("analysis_temp_warn", 90.0)
	viper.SetDefault("analysis_temp_crit", 100.0)
	viper.SetDefault("analysis_vib_warn", 0.7)
	viper.SetDefault("analysis_vib_crit", 0.8)

	viper.SetDefault("auth_token_ttl_ms", 86_400_000)
	viper.SetDefault("auth_secret", "")

	viper.SetDefault("retention_days", 365)
	viper.SetDefault("compression_age_days", 30)

	viper.SetEnvPrefix("TELEMETRY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// TELEMETRY_MQTT_TOPICS / TELEMETRY_ALLOWED_ORIGINS are often comma-separated
	// when set as a single environment variable; split and trim either form.
	cfg.AllowedOrigins = splitAndTrim(cfg.AllowedOrigins)
	cfg.MQTTTopics = splitAndTrim(cfg.MQTTTopics)

	if cfg.AuthSecret == "" {
		return nil, fmt.Errorf("config: auth_secret is required")
	}
	if len(cfg.AuthSecret) < 32 {
		return nil, fmt.Errorf("config: auth_secret must be at least 256 bits (32 bytes)")
	}

	return &cfg, nil
}

func splitAndTrim(values []string) []string {
	if len(values) == 1 && strings.Contains(values[0], ",") {
		parts := strings.Split(values[0], ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if v := strings.TrimSpace(p); v != "" {
				out = append(out, v)
			}
		}
		return out
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
