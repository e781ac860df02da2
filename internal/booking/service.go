// Package booking checks availability, prices, and records bookings for an owner's items.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/izposoja/internal/daterange"
	"github.com/erazemk/izposoja/internal/events"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/pricing"
	"github.com/erazemk/izposoja/internal/store"
)

// MobileLength is the number of digits in a customer mobile number.
const MobileLength = 10

// Service owns the booking write path. Every operation is scoped to an owner.
type Service struct {
	DB     *sql.DB
	Events events.Publisher
	Now    func() time.Time
}

// Request is the caller-supplied part of a booking.
type Request struct {
	ItemID         int64           `json:"item_id"`
	CustomerName   string          `json:"customer_name"`
	CustomerMobile string          `json:"customer_mobile"`
	StartDate      daterange.Date  `json:"start_date"`
	EndDate        daterange.Date  `json:"end_date"`
	Discount       decimal.Decimal `json:"discount"`
}

// Range returns the requested dates.
func (r Request) Range() daterange.Range {
	return daterange.Range{Start: r.StartDate, End: r.EndDate}
}

// Availability is the outcome of an availability check. When Err is set the
// item must be treated as unavailable.
type Availability struct {
	Available bool            `json:"available"`
	Conflicts []model.Booking `json:"conflicts"`
	Err       error           `json:"-"`
}

// CheckAvailability reports whether itemID is free of active bookings over rng,
// ignoring excludeID when it is positive. It never writes. Query failures yield
// Available=false with Err set.
func (s *Service) CheckAvailability(ctx context.Context, ownerID, itemID int64, rng daterange.Range, excludeID int64) Availability {
	if err := rng.Validate(); err != nil {
		return Availability{Err: rangeError(err)}
	}

	item, err := store.GetItem(ctx, s.DB, ownerID, itemID)
	if err != nil {
		return Availability{Err: err}
	}
	if item == nil {
		return Availability{Err: ErrNotFound}
	}

	conflicts, err := store.FindConflicts(ctx, s.DB, itemID, rng, excludeID)
	if err != nil {
		return Availability{Err: err}
	}
	return Availability{Available: len(conflicts) == 0, Conflicts: conflicts}
}

// Quote prices a prospective booking without writing anything.
func (s *Service) Quote(ctx context.Context, ownerID, itemID int64, rng daterange.Range, discount decimal.Decimal) (pricing.Quote, error) {
	if err := rng.Validate(); err != nil {
		return pricing.Quote{}, rangeError(err)
	}
	item, err := s.ownedItem(ctx, ownerID, itemID)
	if err != nil {
		return pricing.Quote{}, err
	}
	return price(item, rng, discount)
}

// Create validates req, prices it and writes an active booking. The
// availability re-check and the insert run in one transaction; a conflict
// returns *ConflictError and nothing is written.
func (s *Service) Create(ctx context.Context, ownerID int64, req Request) (*model.Booking, error) {
	req = normalize(req)
	if err := validate(req); err != nil {
		return nil, err
	}

	item, err := s.ownedItem(ctx, ownerID, req.ItemID)
	if err != nil {
		return nil, err
	}
	quote, err := price(item, req.Range(), req.Discount)
	if err != nil {
		return nil, err
	}

	itemID := item.ID
	b, err := store.CreateBooking(ctx, s.DB, &model.Booking{
		ItemID:         &itemID,
		OwnerID:        ownerID,
		CustomerName:   req.CustomerName,
		CustomerMobile: req.CustomerMobile,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		RentPrice:      quote.Final,
		Discount:       quote.Discount,
		Status:         model.BookingStatusActive,
	})
	if err != nil {
		return nil, conflictError(err)
	}

	s.publish(ctx, events.BookingCreated, b)
	return b, nil
}

// Update edits an active booking, possibly moving it to another owned item.
// The booking's own dates never conflict with themselves; availability and the
// price are both taken from the requested item.
func (s *Service) Update(ctx context.Context, ownerID, id int64, req Request) (*model.Booking, error) {
	req = normalize(req)
	if err := validate(req); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != model.BookingStatusActive {
		return nil, ErrInvalidTransition
	}

	item, err := s.ownedItem(ctx, ownerID, req.ItemID)
	if err != nil {
		return nil, err
	}
	quote, err := price(item, req.Range(), req.Discount)
	if err != nil {
		return nil, err
	}

	itemID := item.ID
	ok, err := store.UpdateBooking(ctx, s.DB, &model.Booking{
		ID:             id,
		ItemID:         &itemID,
		OwnerID:        ownerID,
		CustomerName:   req.CustomerName,
		CustomerMobile: req.CustomerMobile,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		RentPrice:      quote.Final,
		Discount:       quote.Discount,
	})
	if err != nil {
		return nil, conflictError(err)
	}
	if !ok {
		// Completed or cancelled between the read and the write.
		return nil, ErrInvalidTransition
	}

	b, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.BookingUpdated, b)
	return b, nil
}

// Complete marks an active booking completed.
func (s *Service) Complete(ctx context.Context, ownerID, id int64) (*model.Booking, error) {
	return s.transition(ctx, ownerID, id, model.BookingStatusCompleted, events.BookingCompleted)
}

// Cancel marks an active booking cancelled, freeing its dates.
func (s *Service) Cancel(ctx context.Context, ownerID, id int64) (*model.Booking, error) {
	return s.transition(ctx, ownerID, id, model.BookingStatusCancelled, events.BookingCancelled)
}

func (s *Service) transition(ctx context.Context, ownerID, id int64, to, eventType string) (*model.Booking, error) {
	existing, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != model.BookingStatusActive {
		return nil, ErrInvalidTransition
	}

	ok, err := store.TransitionBooking(ctx, s.DB, ownerID, id, model.BookingStatusActive, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	b, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, eventType, b)
	return b, nil
}

// Delete permanently removes a booking.
func (s *Service) Delete(ctx context.Context, ownerID, id int64) error {
	existing, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}

	ok, err := store.DeleteBooking(ctx, s.DB, ownerID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}

	s.publish(ctx, events.BookingDeleted, existing)
	return nil
}

// Get returns an owned booking, or ErrNotFound.
func (s *Service) Get(ctx context.Context, ownerID, id int64) (*model.Booking, error) {
	b, err := store.GetBooking(ctx, s.DB, ownerID, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	return b, nil
}

// List returns an owner's bookings. The upcoming view defaults its reference
// date to today.
func (s *Service) List(ctx context.Context, ownerID int64, filter model.BookingFilter) ([]model.Booking, error) {
	if filter.Status != "" && filter.Status != "all" && !model.ValidBookingStatus(filter.Status) {
		return nil, invalid("status", "unknown booking status")
	}
	if filter.View != model.BookingViewAll && filter.View != model.BookingViewUpcoming {
		return nil, invalid("view", "unknown booking view")
	}
	if filter.View == model.BookingViewUpcoming && filter.Today.IsZero() {
		filter.Today = daterange.NewDate(s.now())
	}
	return store.ListBookings(ctx, s.DB, ownerID, filter)
}

func (s *Service) ownedItem(ctx context.Context, ownerID, itemID int64) (*model.Item, error) {
	if itemID <= 0 {
		return nil, invalid("item_id", "item is required")
	}
	item, err := store.GetItem(ctx, s.DB, ownerID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

func (s *Service) publish(ctx context.Context, eventType string, b *model.Booking) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, events.NewBookingEvent(eventType, b, s.now())); err != nil {
		slog.Warn("failed to publish booking event", "type", eventType, "booking", b.ID, "error", err)
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func normalize(req Request) Request {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerMobile = strings.TrimSpace(req.CustomerMobile)
	return req
}

// validate checks required fields, the mobile number and the date order.
func validate(req Request) error {
	if req.ItemID <= 0 {
		return invalid("item_id", "item is required")
	}
	if req.CustomerName == "" {
		return invalid("customer_name", "customer name is required")
	}
	if req.CustomerMobile == "" {
		return invalid("customer_mobile", "mobile number is required")
	}
	if !validMobile(req.CustomerMobile) {
		return invalid("customer_mobile", "mobile number must be 10 digits")
	}
	if req.StartDate.IsZero() {
		return invalid("start_date", "start date is required")
	}
	if req.EndDate.IsZero() {
		return invalid("end_date", "end date is required")
	}
	if err := req.Range().Validate(); err != nil {
		return rangeError(err)
	}
	return nil
}

func validMobile(s string) bool {
	if len(s) != MobileLength {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func price(item *model.Item, rng daterange.Range, discount decimal.Decimal) (pricing.Quote, error) {
	q, err := pricing.Compute(item, rng, discount)
	switch {
	case err == nil:
		return q, nil
	case errors.Is(err, pricing.ErrNegativeDiscount), errors.Is(err, pricing.ErrDiscountExceedsSubtotal):
		return pricing.Quote{}, &ValidationError{Field: "discount", Message: err.Error(), Err: err}
	case errors.Is(err, daterange.ErrInvalidRange), errors.Is(err, daterange.ErrMissingDate):
		return pricing.Quote{}, rangeError(err)
	default:
		return pricing.Quote{}, err
	}
}

func rangeError(err error) *ValidationError {
	if errors.Is(err, daterange.ErrMissingDate) {
		return &ValidationError{Field: "start_date", Message: "start and end dates are required", Err: err}
	}
	return &ValidationError{Field: "end_date", Message: "end date must be on or after the start date", Err: err}
}

func conflictError(err error) error {
	var overlap *store.OverlapError
	if errors.As(err, &overlap) {
		return &ConflictError{Conflicts: overlap.Conflicts}
	}
	return err
}
