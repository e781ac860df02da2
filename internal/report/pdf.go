package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/erazemk/izposoja/internal/daterange"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/pricing"
)

const (
	pdfMargin    = 14.0
	pdfRowHeight = 8.0
	pdfFontSize  = 9.0
)

var pdfColumns = []struct {
	title string
	width float64
}{
	{"Item", 34},
	{"Customer", 32},
	{"Mobile", 26},
	{"Start Date", 24},
	{"End Date", 24},
	{"Price", 24},
	{"Status", 18},
}

// WritePDF renders bookings as a paginated table with a title block and a
// revenue summary. The table header repeats on every page.
func WritePDF(w io.Writer, bookings []model.Booking, f Format, generatedAt time.Time) error {
	pdf := renderPDF(bookings, f, generatedAt)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	return nil
}

func renderPDF(bookings []model.Booking, f Format, generatedAt time.Time) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin+6, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetCreationDate(generatedAt)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(f.Title, true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	symbol := pdfSymbol(tr, f)
	_, pageHeight := pdf.GetPageSize()
	bottom := pageHeight - pdfMargin

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(f.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 8, "Generated on: "+daterange.NewDate(generatedAt).Display(), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	header := func() {
		pdf.SetFont("Helvetica", "B", pdfFontSize)
		pdf.SetFillColor(102, 126, 234)
		pdf.SetTextColor(255, 255, 255)
		for _, c := range pdfColumns {
			pdf.CellFormat(c.width, pdfRowHeight, c.title, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", pdfFontSize)
		pdf.SetTextColor(0, 0, 0)
	}
	header()

	for i, b := range bookings {
		if pdf.GetY()+pdfRowHeight > bottom {
			pdf.AddPage()
			header()
		}
		cells := []string{
			itemName(b),
			b.CustomerName,
			b.CustomerMobile,
			b.StartDate.Display(),
			b.EndDate.Display(),
			pricing.Format(symbol, b.RentPrice),
			strings.ToUpper(b.Status),
		}
		fill := i%2 == 1
		pdf.SetFillColor(245, 245, 245)
		for j, c := range pdfColumns {
			pdf.CellFormat(c.width, pdfRowHeight, fit(pdf, tr(cells[j]), c.width-2), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	stats := Summarize(bookings)
	if pdf.GetY()+25 > bottom {
		pdf.AddPage()
	}
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 10, "Total Bookings: "+strconv.Itoa(stats.Total), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 10, tr("Total Revenue: "+pricing.Format(symbol, stats.Revenue)), "", 1, "L", false, 0, "")

	return pdf
}

// pdfSymbol returns f.Symbol if every rune of it exists in the core font
// encoding, otherwise f.PDFSymbol.
func pdfSymbol(tr func(string) string, f Format) string {
	for _, r := range f.Symbol {
		if r < 0x80 {
			continue
		}
		out := tr(string(r))
		if len(out) != 1 || out[0] < 0x80 {
			return f.PDFSymbol
		}
	}
	return f.Symbol
}

// fit trims s with an ellipsis until it fits in width.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}
