package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentChecks bounds parallel requests against the API.
const maxConcurrentChecks = 4

var healthcheckOpts struct {
	baseURL string
	token   string
	chat    bool
}

// healthcheckCmd smoke-tests a running API
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Smoke-test a running API",
	Long: `Run smoke checks against a running API and report each result.

Checks health, form options and a local prediction. With --token the
operator status endpoint is checked too; with --chat a chat session is
opened, which calls the advisor backend.`,
	RunE: runHealthcheck,
}

func init() {
	f := healthcheckCmd.Flags()
	f.StringVar(&healthcheckOpts.baseURL, "base-url", "http://localhost:8080", "API base URL")
	f.StringVar(&healthcheckOpts.token, "token", "", "Operator bearer token for /v1/ops/status")
	f.BoolVar(&healthcheckOpts.chat, "chat", false, "Also open a chat session")
}

type check struct {
	Name       string `json:"name"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	WantStatus int    `json:"-"`

	body  any
	token string
}

type checkResult struct {
	Name     string        `json:"name"`
	Status   int           `json:"status"`
	Duration time.Duration `json:"durationNs"`
	Error    string        `json:"error,omitempty"`
}

// ErrChecksFailed is returned when at least one smoke check fails.
var ErrChecksFailed = errors.New("smoke checks failed")

func smokeChecks(token string, chat bool) []check {
	checks := []check{
		{Name: "health", Method: http.MethodGet, Path: "/v1/ops/health", WantStatus: http.StatusOK},
		{Name: "readiness", Method: http.MethodGet, Path: "/v1/ops/ready", WantStatus: http.StatusOK},
		{Name: "form options", Method: http.MethodGet, Path: "/v1/metadata/options", WantStatus: http.StatusOK},
		{
			Name:       "prediction",
			Method:     http.MethodPost,
			Path:       "/v1/predictions",
			WantStatus: http.StatusOK,
			body: map[string]any{
				"soilType":         "Loam",
				"terrainType":      "Flat",
				"irrigationMethod": "Drip",
				"fertilizerType":   "NPK",
				"seedType":         "Hybrid",
				"previousCrop":     "Vegetables",
				"landArea":         1,
			},
		},
	}
	if token != "" {
		checks = append(checks, check{
			Name: "system status", Method: http.MethodGet, Path: "/v1/ops/status",
			WantStatus: http.StatusOK, token: token,
		})
	}
	if chat {
		checks = append(checks, check{
			Name: "chat session", Method: http.MethodPost, Path: "/v1/chat/sessions",
			WantStatus: http.StatusCreated,
		})
	}
	return checks
}

// runChecks runs checks concurrently against baseURL. Every check runs to
// completion; results are returned in the order of checks.
func runChecks(ctx context.Context, client *http.Client, baseURL string, checks []check) []checkResult {
	baseURL = strings.TrimRight(baseURL, "/")
	results := make([]checkResult, len(checks))

	var g errgroup.Group
	g.SetLimit(maxConcurrentChecks)
	for i, c := range checks {
		g.Go(func() error {
			results[i] = runCheck(ctx, client, baseURL, c)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // checks report failures in their results

	return results
}

func runCheck(ctx context.Context, client *http.Client, baseURL string, c check) (res checkResult) {
	res.Name = c.Name
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	var body io.Reader = http.NoBody
	if c.body != nil {
		data, err := json.Marshal(c.body)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, c.Method, baseURL+c.Path, body)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	req.Header.Set("Accept", "application/json")
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := client.Do(req)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	if resp.StatusCode != c.WantStatus {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // best-effort detail
		res.Error = fmt.Sprintf("want status %d: %s", c.WantStatus, strings.TrimSpace(string(detail)))
	}
	return res
}

func runHealthcheck(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	client := &http.Client{Timeout: timeout}
	results := runChecks(ctx, client, healthcheckOpts.baseURL, smokeChecks(healthcheckOpts.token, healthcheckOpts.chat))

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}

	w := cmd.OutOrStdout()
	if jsonOutput {
		if err := printJSON(w, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			mark := "ok  "
			if r.Error != "" {
				mark = "FAIL"
			}
			fmt.Fprintf(w, "%s %-14s %3d %8s %s\n", mark, r.Name, r.Status, r.Duration.Round(time.Millisecond), r.Error)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrChecksFailed, failed, len(results))
	}
	return nil
}
