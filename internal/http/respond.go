package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"finjoy/internal/core"
	"finjoy/internal/middleware/trace"
	"finjoy/internal/services"
	"finjoy/internal/storage"
)

// errorBody is the JSON envelope for every non-2xx response.
type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain sentinels onto HTTP status codes and renders the
// error envelope. Unexpected errors are logged and reported as a plain 500
// so internals never leak to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		message = "internal server error"
	}
	writeJSON(w, status, errorBody{
		Error:     message,
		RequestID: trace.GetRequestID(r.Context()),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrCategoryInUse):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyDaySet),
		errors.Is(err, core.ErrMalformedDaySet),
		errors.Is(err, core.ErrDayOutOfRange),
		errors.Is(err, core.ErrInvalidCategory),
		errors.Is(err, core.ErrAmountSignMismatch),
		errors.Is(err, services.ErrImmutableField):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// badRequest renders a 400 with the given message.
func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody{
		Error:     message,
		RequestID: trace.GetRequestID(r.Context()),
	})
}
