package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a rentable inventory unit owned by one user account.
type Item struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	RentPrice   decimal.Decimal `json:"rent_price"`
	RentType    string          `json:"rent_type"`
	PhotoURL    string          `json:"photo_url,omitempty"`
	OwnerID     int64           `json:"owner_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Rent types.
const (
	RentTypePerDay     = "per_day"
	RentTypePerBooking = "per_booking"
)

// ValidRentType reports whether t is a known rent type.
func ValidRentType(t string) bool {
	return t == RentTypePerDay || t == RentTypePerBooking
}

// RentTypeName is the display label of a rent type.
func RentTypeName(t string) string {
	switch t {
	case RentTypePerDay:
		return "Per Day"
	case RentTypePerBooking:
		return "Per Booking"
	default:
		return t
	}
}

// Price bands used by item listing filters.
const (
	PriceBandLow    = "low"
	PriceBandMedium = "medium"
	PriceBandHigh   = "high"
)

// Price band boundaries: low < 500, medium 500..1500, high > 1500.
var (
	PriceBandLowMax  = decimal.NewFromInt(500)
	PriceBandHighMin = decimal.NewFromInt(1500)
)

// Item sort orders.
const (
	ItemSortNewest    = "newest"
	ItemSortOldest    = "oldest"
	ItemSortPriceLow  = "price-low"
	ItemSortPriceHigh = "price-high"
	ItemSortName      = "name"
)

// ItemFilter narrows and orders an item listing. Zero value lists everything, newest first.
type ItemFilter struct {
	Search    string
	PriceBand string
	Sort      string
}
