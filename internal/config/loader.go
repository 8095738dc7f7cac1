package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "focustodo.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	path := DefaultConfigFile
	if p := os.Getenv("FOCUSTODO_CONFIG"); p != "" {
		path = p
	}
	return LoadFrom(path)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "FOCUSTODO_PORT")
	setString(&cfg.Server.CORSOrigin, "FOCUSTODO_CORS_ORIGIN")
	setString(&cfg.Server.Timezone, "FOCUSTODO_TZ")
	setString(&cfg.Logging.Level, "FOCUSTODO_LOG_LEVEL")
	setString(&cfg.Logging.Service, "FOCUSTODO_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "FOCUSTODO_LOG_ASYNC")
	setInt(&cfg.Logging.Buffer, "FOCUSTODO_LOG_BUFFER")

	// Storage
	setString(&cfg.Storage.Backend, "FOCUSTODO_STORAGE")
	setString(&cfg.Storage.DataDir, "FOCUSTODO_DATA_DIR")
	setInt64(&cfg.Storage.L1SizeMB, "FOCUSTODO_L1_SIZE_MB")
	setDuration(&cfg.Storage.L1TTL, "FOCUSTODO_L1_TTL")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "FOCUSTODO_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "FOCUSTODO_PG_MIN_CONNS")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Bucket, "FOCUSTODO_NATS_BUCKET")

	// AI
	setString(&cfg.AI.CloudBaseURL, "FOCUSTODO_CLOUD_BASE_URL")
	setString(&cfg.AI.Model, "FOCUSTODO_MODEL")
	setString(&cfg.AI.ReasoningEffort, "FOCUSTODO_REASONING_EFFORT")
	setString(&cfg.AI.DefaultLocalModel, "FOCUSTODO_LOCAL_MODEL")
	setDuration(&cfg.AI.ProbeTimeout, "FOCUSTODO_PROBE_TIMEOUT")
	setDuration(&cfg.AI.TestTimeout, "FOCUSTODO_TEST_TIMEOUT")
	setDuration(&cfg.AI.RefreshTimeout, "FOCUSTODO_REFRESH_TIMEOUT")
	setInt(&cfg.Breaker.MaxFailures, "FOCUSTODO_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "FOCUSTODO_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "FOCUSTODO_RATE_RPS")
	setInt(&cfg.Rate.Burst, "FOCUSTODO_RATE_BURST")

	// Telemetry
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTEL.Insecure, "FOCUSTODO_OTEL_INSECURE")
	setFloat64(&cfg.OTEL.SampleRate, "FOCUSTODO_OTEL_SAMPLE_RATE")

	// MCP
	setBool(&cfg.MCP.Enabled, "FOCUSTODO_MCP_ENABLED")
	setString(&cfg.MCP.APIKey, "FOCUSTODO_MCP_API_KEY")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if _, err := cfg.Server.Location(); err != nil {
		return err
	}
	switch cfg.Storage.Backend {
	case BackendFile:
		if cfg.Storage.DataDir == "" {
			return errors.New("storage.data_dir is required for the file backend")
		}
	case BackendPostgres:
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for the postgres backend")
		}
		if cfg.Postgres.MaxConns < 1 {
			return errors.New("postgres.max_conns must be >= 1")
		}
	case BackendNATS:
		if cfg.NATS.URL == "" || cfg.NATS.Bucket == "" {
			return errors.New("nats.url and nats.bucket are required for the nats backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of file, postgres, nats", cfg.Storage.Backend)
	}
	if cfg.AI.Model == "" {
		return errors.New("ai.model is required")
	}
	if cfg.AI.ProbeTimeout <= 0 || cfg.AI.TestTimeout <= 0 || cfg.AI.RefreshTimeout <= 0 {
		return errors.New("ai probe, test and refresh timeouts must be > 0")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.MCP.Enabled && cfg.MCP.APIKey == "" {
		return errors.New("mcp.api_key is required when mcp is enabled")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
