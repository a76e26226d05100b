package handler

import (
	"net/http"
	"time"

	"github.com/riceadvisor/riceadvisor/internal/api/models"
	"github.com/riceadvisor/riceadvisor/internal/api/response"
	"github.com/riceadvisor/riceadvisor/internal/timeline"
)

// TimelineHandler computes growth timelines.
type TimelineHandler struct {
	now func() time.Time
}

// NewTimelineHandler creates a new TimelineHandler. A nil now uses time.Now.
func NewTimelineHandler(now func() time.Time) *TimelineHandler {
	if now == nil {
		now = time.Now
	}
	return &TimelineHandler{now: now}
}

// ComputeTimeline handles POST /v1/timeline - growth stage for a planting date.
func (h *TimelineHandler) ComputeTimeline(w http.ResponseWriter, r *http.Request) {
	var input models.TimelineRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	planted, err := timeline.ParseDate(input.PlantingDate)
	if err != nil {
		fieldError(w, r, "plantingDate", err)
		return
	}

	asOf := h.now()
	if input.AsOf != "" {
		if asOf, err = timeline.ParseDate(input.AsOf); err != nil {
			fieldError(w, r, "asOf", err)
			return
		}
	}

	tl, err := timeline.Compute(planted, asOf)
	if err != nil {
		fieldError(w, r, "plantingDate", err)
		return
	}
	response.JSON(w, r, http.StatusOK, toTimeline(tl))
}
