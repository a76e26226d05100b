// Package handler provides HTTP handlers for the rice advisor API.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/riceadvisor/riceadvisor/internal/api/models"
	"github.com/riceadvisor/riceadvisor/internal/api/response"
	"github.com/riceadvisor/riceadvisor/internal/featureflags"
	"github.com/riceadvisor/riceadvisor/internal/provider/resilience"
)

// readinessTimeout bounds dependency checks of the readiness probe.
const readinessTimeout = 2 * time.Second

// Pinger checks a dependency is reachable. *pgxpool.Pool implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FlagReader lists feature flags. *featureflags.Service implements it.
type FlagReader interface {
	GetAllFlags(ctx context.Context) map[string]*featureflags.Flag
}

// OpsConfig holds the dependencies reported by the ops endpoints. Every
// dependency is optional.
type OpsConfig struct {
	Version   string
	BuildTime string

	Database     Pinger
	HistoryStore string
	Registry     *resilience.Registry
	Flags        FlagReader

	// CachedModels and ActiveSessions report advisor cache and chat usage.
	CachedModels   func() int
	ActiveSessions func() int
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. The service is
// not ready while the database is unreachable.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	if err := h.pingDatabase(r.Context()); err != nil {
		health.Status = models.HealthStatusFail
		health.Details = map[string]interface{}{"database": err.Error()}
		response.JSON(w, r, http.StatusServiceUnavailable, health)
		return
	}
	response.JSON(w, r, http.StatusOK, health)
}

func (h *OpsHandler) pingDatabase(ctx context.Context) error {
	if h.cfg.Database == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	return h.cfg.Database.Ping(ctx)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: h.subsystems(r.Context()),
		Providers:  h.providers(),
	}
	status.ActiveDegradationFlags = h.activeFlags(r.Context())

	for _, s := range status.Subsystems {
		status.Status = worst(status.Status, s.Status)
	}
	for _, p := range status.Providers {
		status.Status = worst(status.Status, degradeOnly(p.Status))
	}
	if len(status.ActiveDegradationFlags) > 0 {
		status.Status = worst(status.Status, models.HealthStatusDegraded)
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) subsystems(ctx context.Context) []models.SubsystemStatus {
	var out []models.SubsystemStatus

	if h.cfg.Database != nil {
		s := models.SubsystemStatus{Name: "database", Status: models.HealthStatusOK}
		if err := h.pingDatabase(ctx); err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		out = append(out, s)
	}

	if h.cfg.HistoryStore != "" {
		detail := h.cfg.HistoryStore
		out = append(out, models.SubsystemStatus{Name: "history", Status: models.HealthStatusOK, Detail: &detail})
	}

	if h.cfg.CachedModels != nil || h.cfg.ActiveSessions != nil {
		var cached, sessions int
		if h.cfg.CachedModels != nil {
			cached = h.cfg.CachedModels()
		}
		if h.cfg.ActiveSessions != nil {
			sessions = h.cfg.ActiveSessions()
		}
		detail := fmt.Sprintf("%d cached models, %d active chat sessions", cached, sessions)
		out = append(out, models.SubsystemStatus{Name: "advisor", Status: models.HealthStatusOK, Detail: &detail})
	}

	return out
}

func (h *OpsHandler) providers() []models.ProviderStatus {
	if h.cfg.Registry == nil {
		return []models.ProviderStatus{}
	}

	health := h.cfg.Registry.GetAllHealth()
	sort.Slice(health, func(i, j int) bool { return health[i].Name < health[j].Name })

	out := make([]models.ProviderStatus, 0, len(health))
	for _, p := range health {
		s := models.ProviderStatus{
			Provider:            p.Name,
			Status:              models.HealthStatusOK,
			CircuitState:        p.CircuitState.String(),
			ConsecutiveFailures: p.Counts.ConsecutiveFailures,
			LastSuccessAt:       models.TimestampPtr(p.LastSuccessAt),
			LastFailureAt:       models.TimestampPtr(p.LastFailureAt),
		}
		switch {
		case p.IsUnhealthy():
			s.Status = models.HealthStatusFail
		case p.IsDegraded():
			s.Status = models.HealthStatusDegraded
		}
		if p.LastError != "" {
			msg := p.LastError
			s.Message = &msg
		}
		out = append(out, s)
	}
	return out
}

func (h *OpsHandler) activeFlags(ctx context.Context) []string {
	if h.cfg.Flags == nil {
		return nil
	}
	var active []string
	for key, flag := range h.cfg.Flags.GetAllFlags(ctx) {
		if flag.BoolValue(false) {
			active = append(active, key)
		}
	}
	sort.Strings(active)
	return active
}

var severity = map[models.HealthStatus]int{
	models.HealthStatusOK:       0,
	models.HealthStatusDegraded: 1,
	models.HealthStatusFail:     2,
}

func worst(a, b models.HealthStatus) models.HealthStatus {
	if severity[b] > severity[a] {
		return b
	}
	return a
}

// degradeOnly caps provider failures at DEGRADED: assessments still succeed
// from the local engine when the advisory backend is down.
func degradeOnly(s models.HealthStatus) models.HealthStatus {
	if s == models.HealthStatusFail {
		return models.HealthStatusDegraded
	}
	return s
}
