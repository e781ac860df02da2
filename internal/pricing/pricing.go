// Package pricing derives booking prices from an item's rate and a date range.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/erazemk/izposoja/internal/daterange"
	"github.com/erazemk/izposoja/internal/model"
)

// Places is the number of decimal places kept on currency amounts.
const Places = 2

var (
	ErrNegativeDiscount        = errors.New("discount cannot be negative")
	ErrDiscountExceedsSubtotal = errors.New("discount cannot exceed the subtotal")
	ErrNegativeUnitPrice       = errors.New("rent price cannot be negative")
	ErrUnknownRentType         = errors.New("unknown rent type")
)

// Quote is the price breakdown of a booking.
type Quote struct {
	Days      int             `json:"days"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Final     decimal.Decimal `json:"final_price"`
}

// Round rounds an amount to currency precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Subtotal is the undiscounted price of renting item over rng.
func Subtotal(item *model.Item, rng daterange.Range) (decimal.Decimal, error) {
	if item.RentPrice.IsNegative() {
		return decimal.Zero, ErrNegativeUnitPrice
	}
	switch item.RentType {
	case model.RentTypePerDay:
		return Round(item.RentPrice.Mul(decimal.NewFromInt(int64(rng.Days())))), nil
	case model.RentTypePerBooking:
		return Round(item.RentPrice), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownRentType, item.RentType)
	}
}

// ValidateDiscount enforces 0 <= discount <= subtotal.
func ValidateDiscount(discount, subtotal decimal.Decimal) error {
	if discount.IsNegative() {
		return ErrNegativeDiscount
	}
	if discount.GreaterThan(subtotal) {
		return ErrDiscountExceedsSubtotal
	}
	return nil
}

// Compute prices a booking. Out-of-range discounts are rejected, never clamped.
func Compute(item *model.Item, rng daterange.Range, discount decimal.Decimal) (Quote, error) {
	if err := rng.Validate(); err != nil {
		return Quote{}, err
	}
	subtotal, err := Subtotal(item, rng)
	if err != nil {
		return Quote{}, err
	}
	// Bounds apply to the discount as given; rounding happens after.
	if err := ValidateDiscount(discount, subtotal); err != nil {
		return Quote{}, err
	}
	discount = Round(discount)
	return Quote{
		Days:      rng.Days(),
		UnitPrice: Round(item.RentPrice),
		Subtotal:  subtotal,
		Discount:  discount,
		Final:     DisplayFinal(subtotal, discount),
	}, nil
}

// DisplayFinal is subtotal minus discount, floored at zero. It does not validate.
func DisplayFinal(subtotal, discount decimal.Decimal) decimal.Decimal {
	final := subtotal.Sub(discount)
	if final.IsNegative() {
		return decimal.Zero
	}
	return Round(final)
}

// Format renders an amount with a currency symbol prefix and two decimals.
func Format(symbol string, amount decimal.Decimal) string {
	return symbol + amount.StringFixed(Places)
}
