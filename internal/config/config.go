// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/riceadvisor/riceadvisor/internal/database"
)

// History stores.
const (
	HistoryStoreMemory   = "memory"
	HistoryStorePostgres = "postgres"
)

// Advisor backends.
const (
	AdvisorBackendNone   = "none"
	AdvisorBackendRemote = "remote"
	AdvisorBackendGemini = "gemini"
)

// Config is the configuration shared by the API server and the worker.
type Config struct {
	Port        string
	Environment string

	Telemetry TelemetryConfig
	Database  database.Config

	// HistoryStore selects the history repository: memory or postgres.
	// Feature flags follow the same choice.
	HistoryStore string

	PubSub  PubSubConfig
	Advisor AdvisorConfig
	Gemini  GeminiConfig

	// YieldTablesPath overrides the embedded scoring tables. Optional.
	YieldTablesPath string

	JWTSigningKey string
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
}

// PubSubConfig configures history event publishing. Publishing is off
// unless ProjectID is set.
type PubSubConfig struct {
	ProjectID    string
	Topic        string
	Subscription string
}

// Enabled reports whether history events go through Pub/Sub.
func (c PubSubConfig) Enabled() bool {
	return c.ProjectID != ""
}

// AdvisorConfig configures the statistical model and advisory backend.
type AdvisorConfig struct {
	Backend  string
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// GeminiConfig configures the in-process Gemini advisor.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// DefaultJWTSigningKey is used outside production when JWT_SIGNING_KEY is unset.
const DefaultJWTSigningKey = "local-dev-signing-key-change-in-production"

// Load reads the given .env files (default ".env") if they exist, then
// builds the configuration from the environment. Existing environment
// variables are never overridden by the files.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables.
func FromEnv() (Config, error) {
	var errs []error

	db, err := database.ConfigFromEnv()
	if err != nil {
		errs = append(errs, err)
	}

	cfg := Config{
		Port:        get("APP_PORT", "8080"),
		Environment: get("APP_ENV", "development"),
		Telemetry: TelemetryConfig{
			Enabled:      get("OTEL_ENABLED", "false") == "true",
			OTLPEndpoint: get("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		},
		Database:     db,
		HistoryStore: strings.ToLower(get("HISTORY_STORE", HistoryStoreMemory)),
		PubSub: PubSubConfig{
			ProjectID:    get("PUBSUB_PROJECT_ID", ""),
			Topic:        get("PUBSUB_HISTORY_TOPIC", "prediction-history"),
			Subscription: get("PUBSUB_HISTORY_SUBSCRIPTION", "prediction-history-worker"),
		},
		Advisor: AdvisorConfig{
			Backend: strings.ToLower(get("ADVISOR_BACKEND", AdvisorBackendRemote)),
			BaseURL: get("ADVISOR_BASE_URL", "http://127.0.0.1:5000"),
		},
		Gemini: GeminiConfig{
			APIKey: firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY")),
			Model:  get("GEMINI_MODEL", "gemini-1.5-flash-8b"),
		},
		YieldTablesPath: get("YIELD_TABLES_PATH", ""),
		JWTSigningKey:   get("JWT_SIGNING_KEY", ""),
	}

	cfg.Advisor.Timeout, err = time.ParseDuration(get("ADVISOR_TIMEOUT", "30s"))
	if err != nil {
		errs = append(errs, fmt.Errorf("ADVISOR_TIMEOUT: %w", err))
	}
	cfg.Advisor.CacheTTL, err = time.ParseDuration(get("ADVISOR_CACHE_TTL", "1h"))
	if err != nil {
		errs = append(errs, fmt.Errorf("ADVISOR_CACHE_TTL: %w", err))
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		errs = append(errs, fmt.Errorf("APP_PORT: %w", err))
	}

	if cfg.JWTSigningKey == "" && !cfg.IsProduction() {
		cfg.JWTSigningKey = DefaultJWTSigningKey
	}

	errs = append(errs, cfg.validate()...)
	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) validate() []error {
	var errs []error
	switch c.HistoryStore {
	case HistoryStoreMemory, HistoryStorePostgres:
	default:
		errs = append(errs, fmt.Errorf("HISTORY_STORE: unknown store %q", c.HistoryStore))
	}
	switch c.Advisor.Backend {
	case AdvisorBackendNone, AdvisorBackendRemote:
	case AdvisorBackendGemini:
		if c.Gemini.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini advisor backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("ADVISOR_BACKEND: unknown backend %q", c.Advisor.Backend))
	}
	if c.JWTSigningKey == "" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY is required in production"))
	}
	return errs
}

func get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
