package api

import (
	"bytes"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/izposoja/internal/daterange"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/report"
	"github.com/erazemk/izposoja/internal/store"
)

// ReportsHandler handles booking statistics and exports.
type ReportsHandler struct {
	DB     *sql.DB
	Format func(r *http.Request) report.Format
	Now    func() time.Time
}

type reportResponse struct {
	report.Report
	Window *report.Window `json:"window,omitempty"`
}

// Summary handles GET /api/reports?start=&end=.
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	rep, window, ok := h.build(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, reportResponse{Report: rep, Window: window})
}

// CSV handles GET /api/reports/bookings.csv?start=&end=.
func (h *ReportsHandler) CSV(w http.ResponseWriter, r *http.Request) {
	rep, _, ok := h.build(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, rep.Filtered, h.Format(r)); err != nil {
		internalError(w, r, "failed to export bookings", err)
		return
	}
	attachment(w, "text/csv; charset=utf-8", report.BookingsCSVFilename(h.Now()), buf.Bytes())
}

// PDF handles GET /api/reports/bookings.pdf?start=&end=.
func (h *ReportsHandler) PDF(w http.ResponseWriter, r *http.Request) {
	rep, _, ok := h.build(w, r)
	if !ok {
		return
	}

	now := h.Now()
	var buf bytes.Buffer
	if err := report.WritePDF(&buf, rep.Filtered, h.Format(r), now); err != nil {
		internalError(w, r, "failed to export bookings", err)
		return
	}
	attachment(w, "application/pdf", report.BookingsPDFFilename(now), buf.Bytes())
}

// build loads every booking of the owner and applies the requested window.
// A window with only one bound is ignored.
func (h *ReportsHandler) build(w http.ResponseWriter, r *http.Request) (report.Report, *report.Window, bool) {
	window, ok := queryWindow(w, r)
	if !ok {
		return report.Report{}, nil, false
	}

	bookings, err := store.ListBookings(r.Context(), h.DB, currentSession(r).UserID, model.BookingFilter{})
	if err != nil {
		internalError(w, r, "failed to load bookings", err)
		return report.Report{}, nil, false
	}
	return report.Build(bookings, window), window, true
}

func queryWindow(w http.ResponseWriter, r *http.Request) (*report.Window, bool) {
	var window report.Window
	q := r.URL.Query()
	if s := q.Get("start"); s != "" {
		d, err := daterange.Parse(s)
		if err != nil {
			fieldError(w, "start", "dates must be YYYY-MM-DD")
			return nil, false
		}
		window.Start = d
	}
	if s := q.Get("end"); s != "" {
		d, err := daterange.Parse(s)
		if err != nil {
			fieldError(w, "end", "dates must be YYYY-MM-DD")
			return nil, false
		}
		window.End = d
	}
	if !window.Complete() {
		return nil, true
	}
	if window.End.Before(window.Start) {
		fieldError(w, "end", daterange.ErrInvalidRange.Error())
		return nil, false
	}
	return &window, true
}

// SettingsHandler handles deployment-wide display settings.
type SettingsHandler struct {
	DB      *sql.DB
	Default report.Format
}

type settingsResponse struct {
	Currency string `json:"currency"`
}

type currencyRequest struct {
	Currency string `json:"currency"`
}

// Format resolves the export format, with the stored currency symbol taking
// precedence over the configured one.
func (h *SettingsHandler) Format(r *http.Request) report.Format {
	f := h.Default
	symbol, ok, err := store.GetSetting(r.Context(), h.DB, store.SettingCurrencySymbol)
	if err != nil {
		slog.Warn("failed to read currency setting", "error", err)
		return f
	}
	if ok && symbol != "" {
		f.Symbol = symbol
	}
	return f
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, settingsResponse{Currency: h.Format(r).Symbol})
}

// SetCurrency handles PUT /api/settings/currency.
func (h *SettingsHandler) SetCurrency(w http.ResponseWriter, r *http.Request) {
	var req currencyRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Currency == "" || len([]rune(req.Currency)) > 8 {
		fieldError(w, "currency", "currency symbol must be 1 to 8 characters")
		return
	}

	if err := store.SetSetting(r.Context(), h.DB, store.SettingCurrencySymbol, req.Currency); err != nil {
		internalError(w, r, "failed to save settings", err)
		return
	}

	slog.Info("currency changed", "user", currentSession(r).Username, "currency", req.Currency)
	jsonResponse(w, http.StatusOK, settingsResponse{Currency: req.Currency})
}
