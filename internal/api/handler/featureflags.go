package handler

import (
	"context"
	"net/http"
	"slices"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/riceadvisor/riceadvisor/internal/api/models"
	"github.com/riceadvisor/riceadvisor/internal/api/response"
	"github.com/riceadvisor/riceadvisor/internal/featureflags"
)

// FlagStore reads and updates feature flags. *featureflags.Service implements it.
type FlagStore interface {
	FlagReader
	SetFlags(ctx context.Context, flags []*featureflags.Flag) error
	InvalidateCache()
}

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service FlagStore
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service FlagStore, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// ListFeatureFlags handles GET /v1/admin/feature-flags - list all feature flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.list(r.Context()))
}

func (h *FeatureFlagsHandler) list(ctx context.Context) featureflags.FlagList {
	flags := h.service.GetAllFlags(ctx)
	items := make([]featureflags.Flag, 0, len(flags))
	for _, f := range flags {
		items = append(items, *f)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return featureflags.FlagList{Items: items}
}

// UpsertFeatureFlags handles PUT /v1/admin/feature-flags - update feature flags.
// Only well-known keys are accepted and a reason is required.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var input featureflags.FlagUpdateRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	var fieldErrors []models.FieldError
	if len(input.Updates) == 0 {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "updates", Message: "at least one update is required", Code: "REQUIRED"})
	}
	if strings.TrimSpace(input.Reason) == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "reason", Message: "is required", Code: "REQUIRED"})
	}
	known := featureflags.Keys()
	flags := make([]*featureflags.Flag, 0, len(input.Updates))
	for _, u := range input.Updates {
		if !slices.Contains(known, u.Key) {
			fieldErrors = append(fieldErrors, models.FieldError{Field: "updates.key", Message: "unknown flag " + u.Key, Code: "UNKNOWN_FLAG"})
			continue
		}
		flags = append(flags, &featureflags.Flag{Key: u.Key, Value: u.Value})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid feature flag update", fieldErrors)
		return
	}

	if err := h.service.SetFlags(r.Context(), flags); err != nil {
		h.logger.Error().Err(err).Msg("failed to update feature flags")
		response.InternalError(w, r, "failed to update feature flags")
		return
	}

	keys := make([]string, 0, len(flags))
	for _, f := range flags {
		keys = append(keys, f.Key)
	}
	h.logger.Info().
		Str("operator", GetOperator(r.Context())).
		Strs("flags", keys).
		Str("reason", input.Reason).
		Msg("feature flags updated")

	response.JSON(w, r, http.StatusOK, h.list(r.Context()))
}

// InvalidateCache handles POST /v1/admin/feature-flags/invalidate - invalidate flag cache.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	h.logger.Info().Str("operator", GetOperator(r.Context())).Msg("feature flag cache invalidated")
	response.NoContent(w, r)
}
