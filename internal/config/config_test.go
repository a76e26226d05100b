package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riceadvisor/riceadvisor/internal/config"
)

var envKeys = []string{
	"APP_PORT", "APP_ENV", "OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "HISTORY_STORE",
	"PUBSUB_PROJECT_ID", "PUBSUB_HISTORY_TOPIC", "PUBSUB_HISTORY_SUBSCRIPTION",
	"ADVISOR_BACKEND", "ADVISOR_BASE_URL", "ADVISOR_TIMEOUT", "ADVISOR_CACHE_TTL",
	"GEMINI_API_KEY", "GOOGLE_API_KEY", "GEMINI_MODEL", "YIELD_TABLES_PATH", "JWT_SIGNING_KEY",
	"DB_PORT", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, config.HistoryStoreMemory, cfg.HistoryStore)
	assert.False(t, cfg.PubSub.Enabled())
	assert.Equal(t, config.AdvisorBackendRemote, cfg.Advisor.Backend)
	assert.Equal(t, "http://127.0.0.1:5000", cfg.Advisor.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Advisor.Timeout)
	assert.Equal(t, time.Hour, cfg.Advisor.CacheTTL)
	assert.Equal(t, "gemini-1.5-flash-8b", cfg.Gemini.Model)
	assert.Equal(t, config.DefaultJWTSigningKey, cfg.JWTSigningKey)
	assert.Equal(t, "riceadvisor", cfg.Database.Database)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("HISTORY_STORE", "Postgres")
	t.Setenv("PUBSUB_PROJECT_ID", "rice-prod")
	t.Setenv("ADVISOR_BACKEND", "gemini")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("ADVISOR_CACHE_TTL", "15m")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, config.HistoryStorePostgres, cfg.HistoryStore)
	assert.True(t, cfg.PubSub.Enabled())
	assert.Equal(t, "prediction-history", cfg.PubSub.Topic)
	assert.Equal(t, config.AdvisorBackendGemini, cfg.Advisor.Backend)
	assert.Equal(t, "g-key", cfg.Gemini.APIKey)
	assert.Equal(t, 15*time.Minute, cfg.Advisor.CacheTTL)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"unknown history store", map[string]string{"HISTORY_STORE": "redis"}, "HISTORY_STORE"},
		{"unknown backend", map[string]string{"ADVISOR_BACKEND": "openai"}, "ADVISOR_BACKEND"},
		{"gemini without key", map[string]string{"ADVISOR_BACKEND": "gemini"}, "GEMINI_API_KEY"},
		{"bad timeout", map[string]string{"ADVISOR_TIMEOUT": "soon"}, "ADVISOR_TIMEOUT"},
		{"bad port", map[string]string{"APP_PORT": "http"}, "APP_PORT"},
		{"bad db port", map[string]string{"DB_PORT": "x"}, "DB_PORT"},
		{"production without signing key", map[string]string{"APP_ENV": "production"}, "JWT_SIGNING_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	// Set explicitly so the file does not override it.
	t.Setenv("APP_ENV", "staging")

	const key = "YIELD_TABLES_PATH_FROM_FILE_TEST"
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("APP_ENV=production\nGEMINI_MODEL=gemini-2.0-flash\n"+key+"=/etc/rice/tables.yaml\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv(key)
		_ = os.Unsetenv("GEMINI_MODEL")
	})
	// GEMINI_MODEL is cleared to "" by clearEnv, which counts as set; unset it so the file applies.
	require.NoError(t, os.Unsetenv("GEMINI_MODEL"))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, "/etc/rice/tables.yaml", os.Getenv(key))
}

func TestLoad_MissingFileIgnored(t *testing.T) {
	clearEnv(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}
