package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/izposoja/internal/booking"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// fieldError rejects a single input field.
func fieldError(w http.ResponseWriter, field, message string) {
	jsonResponse(w, http.StatusBadRequest, map[string]string{"error": message, "field": field})
}

// internalError logs err with request context and hides it from the client.
func internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	slog.Error(message, "error", err, "method", r.Method, "path", r.URL.Path, "request_id", RequestID(r.Context()))
	jsonError(w, http.StatusInternalServerError, message)
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

type conflictResponse struct {
	Error     string          `json:"error"`
	Conflicts []model.Booking `json:"conflicts"`
}

type inUseResponse struct {
	Error    string          `json:"error"`
	Bookings []model.Booking `json:"bookings"`
}

// serviceError maps booking and store errors to responses: validation to 400,
// conflicts to 409, missing records to 404, and anything else to an opaque 500.
func serviceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	var (
		verr  *booking.ValidationError
		cerr  *booking.ConflictError
		inUse *store.ItemInUseError
	)
	switch {
	case errors.As(err, &verr):
		fieldError(w, verr.Field, verr.Message)
	case errors.As(err, &cerr):
		jsonResponse(w, http.StatusConflict, conflictResponse{Error: cerr.Error(), Conflicts: nonNil(cerr.Conflicts)})
	case errors.As(err, &inUse):
		jsonResponse(w, http.StatusConflict, inUseResponse{Error: "item has active bookings", Bookings: nonNil(inUse.Bookings)})
	case errors.Is(err, booking.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not found")
	case errors.Is(err, booking.ErrInvalidTransition):
		jsonError(w, http.StatusConflict, "booking is no longer active")
	default:
		internalError(w, r, message, err)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
