package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
	"github.com/behavior-hub/behavior-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      any           `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError represents an API error. Category is one of not_found, validation,
// conflict, upstream or internal.
type APIError struct {
	Code     string `json:"code"`
	Category string `json:"category,omitempty"`
	Message  string `json:"message"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version,omitempty"`
	TotalCount int       `json:"total_count,omitempty"`
	Limit      int       `json:"limit,omitempty"`
	Offset     int       `json:"offset,omitempty"`
	HasMore    bool      `json:"has_more,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSONWithMeta(w, r, status, data, nil)
}

// writeJSONWithMeta writes a JSON response with custom metadata.
func writeJSONWithMeta(w http.ResponseWriter, r *http.Request, status int, data any, meta *ResponseMeta) {
	if meta == nil {
		meta = &ResponseMeta{}
	}
	meta.Timestamp = time.Now().UTC()
	meta.Version = "v1"

	encode(w, status, JSONResponse{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Meta:      meta,
		RequestID: getRequestID(r.Context()),
	})
}

// writeJSONError writes an error JSON response.
func writeJSONError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	encode(w, status, JSONResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message},
		Meta:      &ResponseMeta{Timestamp: time.Now().UTC()},
		RequestID: getRequestID(r.Context()),
	})
}

func encode(w http.ResponseWriter, status int, response JSONResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// statusFor maps an error category to an HTTP status.
func statusFor(category string) int {
	switch category {
	case shared.CategoryNotFound:
		return http.StatusNotFound
	case shared.CategoryValidation:
		return http.StatusUnprocessableEntity
	case shared.CategoryConflict:
		return http.StatusConflict
	case shared.CategoryUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes err using its category. Internal errors are logged
// and their message is not exposed.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	category := shared.Category(err)
	status := statusFor(category)

	log := logger.FromContext(r.Context()).With(
		logger.Operation(op),
		logger.ErrorCategory(category),
		logger.Err(err),
	)

	message := err.Error()
	var de *shared.DomainError
	if errors.As(err, &de) {
		message = de.Message
	}
	code := errorCode(err, category)

	switch category {
	case shared.CategoryInternal:
		log.Error("request failed")
		message = "An unexpected error occurred"
		code = "internal_error"
	case shared.CategoryUpstream:
		log.Warn("upstream failure")
	default:
		log.Debug("request rejected")
	}

	encode(w, status, JSONResponse{
		Success:   false,
		Error:     &APIError{Code: code, Category: category, Message: message},
		Meta:      &ResponseMeta{Timestamp: time.Now().UTC()},
		RequestID: getRequestID(r.Context()),
	})
}

// errorCode returns a stable machine-readable code, more specific than the
// category where the error kind allows it.
func errorCode(err error, category string) string {
	switch {
	case errors.Is(err, shared.ErrCaseClosed):
		return "case_closed"
	case errors.Is(err, shared.ErrStateTransition):
		return "phase_out_of_order"
	case errors.Is(err, shared.ErrServiceUnavailable):
		return "service_unavailable"
	case errors.Is(err, shared.ErrTimeout):
		return "timeout"
	case category == shared.CategoryConflict:
		return "version_conflict"
	default:
		return category
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

const (
	headerStaffID   = "X-Staff-ID"
	headerStaffName = "X-Staff-Name"
)

// staffFromHeaders returns the acting staff member.
func staffFromHeaders(r *http.Request) shared.StaffRef {
	return shared.StaffRef{
		ID:   shared.StaffID(strings.TrimSpace(r.Header.Get(headerStaffID))),
		Name: strings.TrimSpace(r.Header.Get(headerStaffName)),
	}
}

// requireStaff writes 422 and returns false when X-Staff-ID is missing.
func requireStaff(w http.ResponseWriter, r *http.Request) (shared.StaffRef, bool) {
	staff := staffFromHeaders(r)
	if !staff.ID.IsValid() {
		writeJSONError(w, r, http.StatusUnprocessableEntity, "missing_staff", headerStaffID+" header is required")
		return shared.StaffRef{}, false
	}
	return staff, true
}

// decodeJSON decodes the request body into v. Unknown fields are rejected.
// An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_body", fmt.Sprintf("Invalid JSON body: %v", err))
		return false
	}
	return true
}

// pathParam returns a trimmed chi URL parameter.
func pathParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}

// getQueryParamInt extracts an integer query parameter with a default value.
func getQueryParamInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getQueryParamDate parses a YYYY-MM-DD query parameter. Missing is the zero Date.
func getQueryParamDate(r *http.Request, key string) (shared.Date, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return shared.Date{}, nil
	}
	return shared.ParseDate(value)
}

// getQueryParamList splits a comma-separated or repeated query parameter.
func getQueryParamList(r *http.Request, key string) []string {
	var out []string
	for _, raw := range r.URL.Query()[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
