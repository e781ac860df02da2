// Package events publishes booking lifecycle notifications.
package events

import (
	"context"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

// Event types.
const (
	BookingCreated   = "booking.created"
	BookingUpdated   = "booking.updated"
	BookingCompleted = "booking.completed"
	BookingCancelled = "booking.cancelled"
	BookingDeleted   = "booking.deleted"
)

// Event is a single booking change.
type Event struct {
	Type      string         `json:"type"`
	OwnerID   int64          `json:"owner_id"`
	BookingID int64          `json:"booking_id"`
	ItemID    int64          `json:"item_id,omitempty"`
	At        time.Time      `json:"at"`
	Booking   *model.Booking `json:"booking,omitempty"`
}

// NewBookingEvent builds an event from a booking snapshot.
func NewBookingEvent(typ string, b *model.Booking, at time.Time) Event {
	return Event{
		Type:      typ,
		OwnerID:   b.OwnerID,
		BookingID: b.ID,
		ItemID:    b.ItemIDValue(),
		At:        at.UTC(),
		Booking:   b,
	}
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

var _ Publisher = Noop{}
