package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riceadvisor/riceadvisor/internal/yield"
)

func newSmokeServer(t *testing.T, readyStatus int) *httptest.Server {
	t.Helper()
	ok := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK"}`))
	}

	r := chi.NewRouter()
	r.Get("/v1/ops/health", ok)
	r.Get("/v1/ops/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(readyStatus)
		_, _ = w.Write([]byte(`{"status":"FAIL"}`))
	})
	r.Get("/v1/metadata/options", ok)
	r.Post("/v1/predictions", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		ok(w, r)
	})
	r.Get("/v1/ops/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		ok(w, r)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestSmokeChecks(t *testing.T) {
	tests := []struct {
		name  string
		token string
		chat  bool
		want  []string
	}{
		{"default", "", false, []string{"health", "readiness", "form options", "prediction"}},
		{"with token", "t", false, []string{"health", "readiness", "form options", "prediction", "system status"}},
		{"with chat", "", true, []string{"health", "readiness", "form options", "prediction", "chat session"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var names []string
			for _, c := range smokeChecks(tt.token, tt.chat) {
				names = append(names, c.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestRunChecks_AllPass(t *testing.T) {
	srv := newSmokeServer(t, http.StatusOK)

	results := runChecks(context.Background(), srv.Client(), srv.URL+"/", smokeChecks("secret", false))

	require.Len(t, results, 5)
	for _, r := range results {
		assert.Empty(t, r.Error, r.Name)
		assert.Equal(t, http.StatusOK, r.Status, r.Name)
	}
}

func TestRunChecks_ReportsFailures(t *testing.T) {
	srv := newSmokeServer(t, http.StatusServiceUnavailable)

	results := runChecks(context.Background(), srv.Client(), srv.URL, smokeChecks("wrong", true))

	byName := make(map[string]checkResult, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}

	assert.Empty(t, byName["health"].Error)
	assert.Equal(t, http.StatusServiceUnavailable, byName["readiness"].Status)
	assert.Contains(t, byName["readiness"].Error, "FAIL")
	assert.Equal(t, http.StatusUnauthorized, byName["system status"].Status)
	assert.Equal(t, http.StatusNotFound, byName["chat session"].Status)
}

func TestRunChecks_Unreachable(t *testing.T) {
	srv := newSmokeServer(t, http.StatusOK)
	url := srv.URL
	srv.Close()

	client := &http.Client{Timeout: time.Second}
	results := runChecks(context.Background(), client, url, smokeChecks("", false))

	for _, r := range results {
		assert.NotEmpty(t, r.Error, r.Name)
		assert.Zero(t, r.Status)
	}
}

func TestPredictCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"predict", "--json",
		"--soil", "Loam", "--terrain", "Flat", "--irrigation", "Drip",
		"--fertilizer", "NPK", "--seed", "Hybrid", "--previous-crop", "Vegetables",
		"--area", "2", "--factor", "1",
	})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		jsonOutput = false
	})

	require.NoError(t, rootCmd.Execute())

	var p yield.Prediction
	require.NoError(t, json.Unmarshal(out.Bytes(), &p))
	assert.InDelta(t, 12.03, p.PredictedYield, 0.011)
	assert.Equal(t, 100.0, p.Efficiency)
	assert.Equal(t, 1.0, p.VariabilityFactor)
}

func TestTimelineCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"timeline", "--planted", "2024-01-01", "--as-of", "2024-01-21"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	text := out.String()
	assert.Contains(t, text, "seedling")
	assert.Contains(t, text, "2024-04-20")
	assert.Equal(t, 6, strings.Count(text, " day "))
}
