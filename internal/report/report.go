// Package report aggregates bookings and serializes them for export.
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/izposoja/internal/daterange"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/pricing"
)

// Window limits a report to bookings created within an inclusive date span.
type Window struct {
	Start daterange.Date `json:"start"`
	End   daterange.Date `json:"end"`
}

// Complete reports whether both bounds are set. Incomplete windows don't filter.
func (w *Window) Complete() bool {
	return w != nil && !w.Start.IsZero() && !w.End.IsZero()
}

// Stats summarizes a filtered booking set.
type Stats struct {
	Total     int             `json:"total"`
	Active    int             `json:"active"`
	Completed int             `json:"completed"`
	Cancelled int             `json:"cancelled"`
	Revenue   decimal.Decimal `json:"revenue"`
	Average   decimal.Decimal `json:"average"`
}

// Report is a filtered booking set and its statistics.
type Report struct {
	Filtered []model.Booking `json:"bookings"`
	Stats    Stats           `json:"stats"`
}

// Build filters bookings by window and computes statistics over the result.
// A nil or incomplete window keeps everything.
func Build(bookings []model.Booking, w *Window) Report {
	filtered := make([]model.Booking, 0, len(bookings))
	for _, b := range bookings {
		if w.Complete() && !w.contains(b.CreatedAt) {
			continue
		}
		filtered = append(filtered, b)
	}
	return Report{Filtered: filtered, Stats: Summarize(filtered)}
}

func (w *Window) contains(t time.Time) bool {
	return daterange.Range{Start: w.Start, End: w.End}.Contains(daterange.NewDate(t))
}

// Summarize counts bookings by status and totals their rent prices.
func Summarize(bookings []model.Booking) Stats {
	s := Stats{Total: len(bookings), Revenue: decimal.Zero, Average: decimal.Zero}
	for _, b := range bookings {
		switch b.Status {
		case model.BookingStatusActive:
			s.Active++
		case model.BookingStatusCompleted:
			s.Completed++
		case model.BookingStatusCancelled:
			s.Cancelled++
		}
		s.Revenue = s.Revenue.Add(b.RentPrice)
	}
	s.Revenue = pricing.Round(s.Revenue)
	if s.Total > 0 {
		s.Average = pricing.Round(s.Revenue.Div(decimal.NewFromInt(int64(s.Total))))
	}
	return s
}

// Filenames of the exports generated on a given day.
func BookingsCSVFilename(day time.Time) string {
	return "bookings_" + daterange.NewDate(day).String() + ".csv"
}

func BookingsPDFFilename(day time.Time) string {
	return "bookings_report_" + daterange.NewDate(day).String() + ".pdf"
}

func ItemsCSVFilename(day time.Time) string {
	return "items_" + daterange.NewDate(day).String() + ".csv"
}
