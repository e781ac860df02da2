package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/erazemk/izposoja/internal/booking"
	"github.com/erazemk/izposoja/internal/daterange"
	"github.com/erazemk/izposoja/internal/model"
)

// BookingsHandler handles bookings, availability checks and quotes.
type BookingsHandler struct {
	Service *booking.Service
}

// List handles GET /api/bookings?status=&view=upcoming.
func (h *BookingsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bookings, err := h.Service.List(r.Context(), currentSession(r).UserID, model.BookingFilter{
		Status: q.Get("status"),
		View:   q.Get("view"),
	})
	if err != nil {
		serviceError(w, r, "failed to list bookings", err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(bookings))
}

// Create handles POST /api/bookings.
func (h *BookingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req booking.Request
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session := currentSession(r)
	b, err := h.Service.Create(r.Context(), session.UserID, req)
	if err != nil {
		serviceError(w, r, "failed to create booking", err)
		return
	}

	slog.Info("booking created", "user", session.Username, "booking_id", b.ID, "item_id", b.ItemIDValue(), "dates", b.Range())
	jsonResponse(w, http.StatusCreated, b)
}

// Get handles GET /api/bookings/{id}.
func (h *BookingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	b, err := h.Service.Get(r.Context(), currentSession(r).UserID, id)
	if err != nil {
		serviceError(w, r, "failed to get booking", err)
		return
	}
	jsonResponse(w, http.StatusOK, b)
}

// Update handles PUT /api/bookings/{id}.
func (h *BookingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var req booking.Request
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session := currentSession(r)
	b, err := h.Service.Update(r.Context(), session.UserID, id, req)
	if err != nil {
		serviceError(w, r, "failed to update booking", err)
		return
	}

	slog.Info("booking updated", "user", session.Username, "booking_id", b.ID, "dates", b.Range())
	jsonResponse(w, http.StatusOK, b)
}

// Complete handles POST /api/bookings/{id}/complete.
func (h *BookingsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Complete, "completed")
}

// Cancel handles POST /api/bookings/{id}/cancel.
func (h *BookingsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Cancel, "cancelled")
}

type transitionFunc func(ctx context.Context, ownerID, id int64) (*model.Booking, error)

func (h *BookingsHandler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc, verb string) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	session := currentSession(r)
	b, err := fn(r.Context(), session.UserID, id)
	if err != nil {
		serviceError(w, r, "failed to update booking", err)
		return
	}

	slog.Info("booking "+verb, "user", session.Username, "booking_id", b.ID)
	jsonResponse(w, http.StatusOK, b)
}

// Delete handles DELETE /api/bookings/{id}.
func (h *BookingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	session := currentSession(r)
	if err := h.Service.Delete(r.Context(), session.UserID, id); err != nil {
		serviceError(w, r, "failed to delete booking", err)
		return
	}

	slog.Info("booking deleted", "user", session.Username, "booking_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "booking deleted"})
}

type availabilityResponse struct {
	Available bool            `json:"available"`
	Conflicts []model.Booking `json:"conflicts"`
	Error     string          `json:"error,omitempty"`
}

// Availability handles GET /api/availability?item_id=&start=&end=&exclude=.
// A check that could not run reports the item as unavailable.
func (h *BookingsHandler) Availability(w http.ResponseWriter, r *http.Request) {
	itemID, ok := queryID(w, r, "item_id", true)
	if !ok {
		return
	}
	exclude, ok := queryID(w, r, "exclude", false)
	if !ok {
		return
	}
	rng, ok := queryRange(w, r)
	if !ok {
		return
	}

	result := h.Service.CheckAvailability(r.Context(), currentSession(r).UserID, itemID, rng, exclude)
	if result.Err != nil {
		var verr *booking.ValidationError
		switch {
		case errors.As(result.Err, &verr):
			fieldError(w, verr.Field, verr.Message)
		case errors.Is(result.Err, booking.ErrNotFound):
			jsonError(w, http.StatusNotFound, "item not found")
		default:
			slog.Error("availability check failed", "error", result.Err, "item_id", itemID, "request_id", RequestID(r.Context()))
			jsonResponse(w, http.StatusServiceUnavailable, availabilityResponse{
				Conflicts: []model.Booking{},
				Error:     "availability could not be checked",
			})
		}
		return
	}

	jsonResponse(w, http.StatusOK, availabilityResponse{
		Available: result.Available,
		Conflicts: nonNil(result.Conflicts),
	})
}

// Quote handles GET /api/quote?item_id=&start=&end=&discount=.
func (h *BookingsHandler) Quote(w http.ResponseWriter, r *http.Request) {
	itemID, ok := queryID(w, r, "item_id", true)
	if !ok {
		return
	}
	rng, ok := queryRange(w, r)
	if !ok {
		return
	}
	discount := decimal.Zero
	if s := r.URL.Query().Get("discount"); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			fieldError(w, "discount", "discount must be a number")
			return
		}
		discount = d
	}

	quote, err := h.Service.Quote(r.Context(), currentSession(r).UserID, itemID, rng, discount)
	if err != nil {
		serviceError(w, r, "failed to price booking", err)
		return
	}
	jsonResponse(w, http.StatusOK, quote)
}

// queryID parses a positive id from the query string.
func queryID(w http.ResponseWriter, r *http.Request, name string, required bool) (int64, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		if required {
			fieldError(w, name, name+" is required")
			return 0, false
		}
		return 0, true
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		fieldError(w, name, "invalid "+name)
		return 0, false
	}
	return id, true
}

// queryRange parses start and end. Missing dates are left zero for the
// service to reject.
func queryRange(w http.ResponseWriter, r *http.Request) (daterange.Range, bool) {
	var rng daterange.Range
	q := r.URL.Query()
	for _, p := range []struct {
		param, field string
		dst          *daterange.Date
	}{
		{"start", "start_date", &rng.Start},
		{"end", "end_date", &rng.End},
	} {
		s := q.Get(p.param)
		if s == "" {
			continue
		}
		d, err := daterange.Parse(s)
		if err != nil {
			fieldError(w, p.field, "dates must be YYYY-MM-DD")
			return rng, false
		}
		*p.dst = d
	}
	return rng, true
}
