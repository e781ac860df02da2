package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/izposoja/internal/daterange"
	"github.com/erazemk/izposoja/internal/model"
)

func item(price int64, rentType string) *model.Item {
	return &model.Item{Name: "Chaniya Choli", RentPrice: decimal.NewFromInt(price), RentType: rentType}
}

func rng(t *testing.T, start, end string) daterange.Range {
	t.Helper()
	r, err := daterange.ParseRange(start, end)
	if err != nil {
		t.Fatalf("ParseRange: %v", err)
	}
	return r
}

func TestComputePerDayInclusive(t *testing.T) {
	q, err := Compute(item(100, model.RentTypePerDay), rng(t, "2024-01-01", "2024-01-03"), decimal.Zero)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if q.Days != 3 {
		t.Errorf("expected 3 days, got %d", q.Days)
	}
	if !q.Subtotal.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected subtotal 300, got %s", q.Subtotal)
	}
	if !q.Final.Equal(q.Subtotal) {
		t.Errorf("expected final = subtotal without discount, got %s", q.Final)
	}
}

func TestComputePerBookingIgnoresDuration(t *testing.T) {
	for _, r := range [][2]string{
		{"2024-01-01", "2024-01-01"},
		{"2024-01-01", "2024-01-31"},
	} {
		q, err := Compute(item(750, model.RentTypePerBooking), rng(t, r[0], r[1]), decimal.Zero)
		if err != nil {
			t.Fatalf("Compute: %v", err)
		}
		if !q.Subtotal.Equal(decimal.NewFromInt(750)) {
			t.Errorf("expected subtotal 750 for %v, got %s", r, q.Subtotal)
		}
	}
}

func TestComputeWithDiscount(t *testing.T) {
	q, err := Compute(item(500, model.RentTypePerDay), rng(t, "2024-03-01", "2024-03-05"), decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !q.Subtotal.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("expected subtotal 2500, got %s", q.Subtotal)
	}
	if !q.Final.Equal(decimal.NewFromInt(2300)) {
		t.Errorf("expected final 2300, got %s", q.Final)
	}
}

func TestDiscountBounds(t *testing.T) {
	it := item(100, model.RentTypePerDay)
	r := rng(t, "2024-01-01", "2024-01-03")

	q, err := Compute(it, r, decimal.NewFromInt(300))
	if err != nil {
		t.Fatalf("discount equal to subtotal: %v", err)
	}
	if !q.Final.IsZero() {
		t.Errorf("expected final 0, got %s", q.Final)
	}

	_, err = Compute(it, r, decimal.NewFromFloat(300.01))
	if !errors.Is(err, ErrDiscountExceedsSubtotal) {
		t.Errorf("expected ErrDiscountExceedsSubtotal, got %v", err)
	}

	_, err = Compute(it, r, decimal.NewFromInt(-1))
	if !errors.Is(err, ErrNegativeDiscount) {
		t.Errorf("expected ErrNegativeDiscount, got %v", err)
	}

	// Sub-cent amounts are checked before rounding.
	_, err = Compute(it, r, decimal.RequireFromString("-0.004"))
	if !errors.Is(err, ErrNegativeDiscount) {
		t.Errorf("expected ErrNegativeDiscount for -0.004, got %v", err)
	}
	_, err = Compute(it, r, decimal.RequireFromString("300.004"))
	if !errors.Is(err, ErrDiscountExceedsSubtotal) {
		t.Errorf("expected ErrDiscountExceedsSubtotal for 300.004, got %v", err)
	}

	q, err = Compute(it, r, decimal.RequireFromString("10.004"))
	if err != nil {
		t.Fatalf("discount 10.004: %v", err)
	}
	if !q.Discount.Equal(decimal.RequireFromString("10")) || !q.Final.Equal(decimal.RequireFromString("290")) {
		t.Errorf("expected rounded discount 10 and final 290, got %s and %s", q.Discount, q.Final)
	}
}

func TestDisplayFinalNeverNegative(t *testing.T) {
	got := DisplayFinal(decimal.NewFromInt(100), decimal.NewFromInt(250))
	if !got.IsZero() {
		t.Errorf("expected 0, got %s", got)
	}
	got = DisplayFinal(decimal.RequireFromString("99.999"), decimal.Zero)
	if got.String() != "100" {
		t.Errorf("expected rounding to 100, got %s", got)
	}
}

func TestComputeRejectsBadInput(t *testing.T) {
	r := rng(t, "2024-01-01", "2024-01-02")

	if _, err := Compute(item(-5, model.RentTypePerDay), r, decimal.Zero); !errors.Is(err, ErrNegativeUnitPrice) {
		t.Errorf("expected ErrNegativeUnitPrice, got %v", err)
	}
	if _, err := Compute(item(5, "hourly"), r, decimal.Zero); !errors.Is(err, ErrUnknownRentType) {
		t.Errorf("expected ErrUnknownRentType, got %v", err)
	}
	inverted := daterange.Range{Start: daterange.MustParse("2024-01-05"), End: daterange.MustParse("2024-01-01")}
	if _, err := Compute(item(5, model.RentTypePerDay), inverted, decimal.Zero); !errors.Is(err, daterange.ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
}

func TestFormat(t *testing.T) {
	if got := Format("₹", decimal.NewFromInt(2300)); got != "₹2300.00" {
		t.Errorf("expected ₹2300.00, got %s", got)
	}
	if got := Format("€", decimal.RequireFromString("12.5")); got != "€12.50" {
		t.Errorf("expected €12.50, got %s", got)
	}
}
