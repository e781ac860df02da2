package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/izposoja/internal/daterange"
)

// Booking reserves an item for a customer over an inclusive date range.
type Booking struct {
	ID             int64           `json:"id"`
	ItemID         *int64          `json:"item_id"`
	CustomerName   string          `json:"customer_name"`
	CustomerMobile string          `json:"customer_mobile"`
	StartDate      daterange.Date  `json:"start_date"`
	EndDate        daterange.Date  `json:"end_date"`
	RentPrice      decimal.Decimal `json:"rent_price"`
	Discount       decimal.Decimal `json:"discount"`
	Status         string          `json:"status"`
	OwnerID        int64           `json:"owner_id"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Joined item fields. Nil when the item was not joined or no longer exists.
	Item *ItemRef `json:"item,omitempty"`
}

// ItemRef is the joined projection of the booked item.
type ItemRef struct {
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// Booking statuses.
const (
	BookingStatusActive    = "active"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
)

// ValidBookingStatus reports whether s is a known booking status.
func ValidBookingStatus(s string) bool {
	return s == BookingStatusActive || s == BookingStatusCompleted || s == BookingStatusCancelled
}

// Range returns the booked dates.
func (b *Booking) Range() daterange.Range {
	return daterange.Range{Start: b.StartDate, End: b.EndDate}
}

// ItemName returns the joined item name and whether the projection is resolved.
func (b *Booking) ItemName() (string, bool) {
	if b.Item == nil {
		return "", false
	}
	return b.Item.Name, true
}

// ItemIDValue returns the referenced item id, or 0 when the item was deleted.
func (b *Booking) ItemIDValue() int64 {
	if b.ItemID == nil {
		return 0
	}
	return *b.ItemID
}

// Booking listing views.
const (
	BookingViewAll      = ""
	BookingViewUpcoming = "upcoming"
)

// BookingFilter narrows a booking listing.
type BookingFilter struct {
	Status string // empty or "all" for every status
	ItemID int64
	View   string
	Today  daterange.Date // reference date for the upcoming view
}
