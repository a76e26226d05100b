package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/riceadvisor/riceadvisor/internal/api/middleware"
	"github.com/riceadvisor/riceadvisor/internal/api/models"
	"github.com/riceadvisor/riceadvisor/internal/api/response"
	"github.com/riceadvisor/riceadvisor/internal/yield"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// GetOperator retrieves the authenticated operator from the context.
// This is a convenience wrapper around middleware.GetOperator.
func GetOperator(ctx context.Context) string {
	return middleware.GetOperator(ctx)
}

// decodeJSON decodes the request body into v, writing a 400 problem and
// returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			response.BadRequest(w, r, "request body is required", nil)
		case errors.As(err, &maxErr):
			response.BadRequest(w, r, "request body is too large", nil)
		default:
			response.BadRequest(w, r, "invalid JSON body: "+err.Error(), nil)
		}
		return false
	}
	return true
}

// validationFailed writes a 400 problem listing every invalid field.
func validationFailed(w http.ResponseWriter, r *http.Request, ve *yield.ValidationError) {
	fields := make([]models.FieldError, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		fields = append(fields, models.FieldError{Field: f.Field, Message: f.Message})
	}
	response.BadRequest(w, r, "one or more fields are invalid", fields)
}

func fieldError(w http.ResponseWriter, r *http.Request, field string, err error) {
	response.BadRequest(w, r, err.Error(), []models.FieldError{{Field: field, Message: err.Error()}})
}
