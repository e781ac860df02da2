package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/erazemk/izposoja/internal/daterange"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/pricing"
)

// NotAvailable stands in for values that no longer resolve, such as a deleted item.
const NotAvailable = "N/A"

// Format controls how amounts and titles are rendered in exports.
type Format struct {
	// Symbol is prefixed to every amount.
	Symbol string
	// PDFSymbol replaces Symbol in PDFs when the core fonts can't render it.
	PDFSymbol string
	Title     string
}

// DefaultFormat renders rupee amounts.
func DefaultFormat() Format {
	return Format{Symbol: "₹", PDFSymbol: "Rs.", Title: "Rental - Booking Report"}
}

func (f Format) money(b model.Booking) string {
	return pricing.Format(f.Symbol, b.RentPrice)
}

var bookingsHeader = []string{
	"Item ID", "Item Name", "Customer Name", "Mobile",
	"Start Date", "End Date", "Rent Price", "Status", "Created At",
}

// WriteCSV writes one row per booking under a fixed header.
func WriteCSV(w io.Writer, bookings []model.Booking, f Format) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(bookingsHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, b := range bookings {
		itemID := ""
		if b.ItemID != nil {
			itemID = strconv.FormatInt(*b.ItemID, 10)
		}
		row := []string{
			itemID,
			itemName(b),
			b.CustomerName,
			b.CustomerMobile,
			b.StartDate.Display(),
			b.EndDate.Display(),
			f.money(b),
			b.Status,
			daterange.NewDate(b.CreatedAt).Display(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

var itemsHeader = []string{"Item ID", "Item Name", "Description", "Rent Price", "Price Type", "Created At"}

// WriteItemsCSV writes the item catalog.
func WriteItemsCSV(w io.Writer, items []model.Item, f Format) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(itemsHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, it := range items {
		description := it.Description
		if description == "" {
			description = NotAvailable
		}
		row := []string{
			strconv.FormatInt(it.ID, 10),
			it.Name,
			description,
			pricing.Format(f.Symbol, it.RentPrice),
			model.RentTypeName(it.RentType),
			daterange.NewDate(it.CreatedAt).Display(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func itemName(b model.Booking) string {
	if name, ok := b.ItemName(); ok {
		return name
	}
	return NotAvailable
}
