package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/riceadvisor/riceadvisor/internal/api/models"
	"github.com/riceadvisor/riceadvisor/internal/api/response"
	"github.com/riceadvisor/riceadvisor/internal/history"
)

// XLSXContentType is the media type of history exports.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HistoryReader lists and exports history. *history.Service implements it.
type HistoryReader interface {
	List(ctx context.Context, q history.Query) ([]*history.Record, error)
	ExportXLSX(ctx context.Context, w io.Writer, q history.Query) error
}

// HistoryHandler handles history endpoints.
type HistoryHandler struct {
	service HistoryReader
	logger  zerolog.Logger
	now     func() time.Time
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(service HistoryReader, logger zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{service: service, logger: logger, now: time.Now}
}

// query reads ?search= and ?sort= into a history.Query.
func query(w http.ResponseWriter, r *http.Request) (history.Query, bool) {
	values := r.URL.Query()
	sortBy, err := history.ParseSortField(values.Get("sort"))
	if err != nil {
		fieldError(w, r, "sort", err)
		return history.Query{}, false
	}
	return history.Query{Search: values.Get("search"), SortBy: sortBy}, true
}

// ListHistory handles GET /v1/history - past predictions, optionally
// filtered and sorted for display.
func (h *HistoryHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	q, ok := query(w, r)
	if !ok {
		return
	}

	records, err := h.service.List(r.Context(), q)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list history")
		response.InternalError(w, r, "failed to list history")
		return
	}

	items := make([]models.HistoryRecord, 0, len(records))
	for _, rec := range records {
		items = append(items, toHistoryRecord(rec))
	}
	response.JSON(w, r, http.StatusOK, models.HistoryList{Items: items, Total: len(items)})
}

// ExportHistory handles GET /v1/history/export - the listing as an Excel workbook.
func (h *HistoryHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	q, ok := query(w, r)
	if !ok {
		return
	}

	// Buffered so a failed export can still be reported as a problem.
	var buf bytes.Buffer
	if err := h.service.ExportXLSX(r.Context(), &buf, q); err != nil {
		h.logger.Error().Err(err).Msg("failed to export history")
		response.InternalError(w, r, "failed to export history")
		return
	}

	filename := "rice-history-" + h.now().Format("20060102") + ".xlsx"
	response.Attachment(w, r, XLSXContentType, filename, buf.Bytes())
}
