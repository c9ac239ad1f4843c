package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/logging"
)

// ApiResponse wraps data in the envelope clients expect.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorBody is the JSON body of every non-2xx response.
type ErrorBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(ErrorBody{
		Error:      errorCode,
		Message:    message,
		StatusCode: statusCode,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// statusCoder is implemented by errors that know their HTTP status.
type statusCoder interface {
	StatusCode() int
}

// classifyError maps a service error onto an HTTP status and error code.
// The returned message has credentials redacted.
func classifyError(err error) (int, string, string) {
	message := logging.SanitizeError(err)

	var coded statusCoder
	var netErr net.Error
	switch {
	case errors.Is(err, apperrors.ErrMissingParameter):
		return http.StatusBadRequest, "missing_parameter", message
	case errors.Is(err, apperrors.ErrInvalidFilter):
		return http.StatusBadRequest, "invalid_filter", message
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found", message
	case errors.Is(err, apperrors.ErrConnectTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return http.StatusGatewayTimeout, "timeout", message
	case errors.As(err, &coded):
		return coded.StatusCode(), "request_failed", message
	case errors.Is(err, apperrors.ErrDriverUnavailable):
		return http.StatusInternalServerError, "driver_unavailable", message
	case errors.Is(err, apperrors.ErrUnsupportedType):
		return http.StatusInternalServerError, "unsupported_type", message
	default:
		return http.StatusInternalServerError, "internal_error", message
	}
}

// decodeJSON decodes the request body into v, rejecting bodies over 1 MiB.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(v)
}
