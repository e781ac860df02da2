package api

import (
	"bytes"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/izposoja/internal/imaging"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/photos"
	"github.com/erazemk/izposoja/internal/pricing"
	"github.com/erazemk/izposoja/internal/report"
	"github.com/erazemk/izposoja/internal/store"
)

// ItemsHandler handles the item catalog of the signed-in owner.
type ItemsHandler struct {
	DB     *sql.DB
	Photos photos.Storage
	Format func(r *http.Request) report.Format
	Now    func() time.Time
}

type itemRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	RentPrice   decimal.Decimal `json:"rent_price"`
	RentType    string          `json:"rent_type"`
}

// item validates the request and returns the item it describes.
func (req itemRequest) item(w http.ResponseWriter) (*model.Item, bool) {
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		fieldError(w, "name", "name is required")
		return nil, false
	case req.RentPrice.IsNegative():
		fieldError(w, "rent_price", "rent price cannot be negative")
		return nil, false
	case !model.ValidRentType(req.RentType):
		fieldError(w, "rent_type", "rent type must be per_day or per_booking")
		return nil, false
	}
	return &model.Item{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		RentPrice:   pricing.Round(req.RentPrice),
		RentType:    req.RentType,
	}, true
}

// List handles GET /api/items?q=&price=&sort=.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.ItemFilter{
		Search:    q.Get("q"),
		PriceBand: q.Get("price"),
		Sort:      q.Get("sort"),
	}

	switch filter.PriceBand {
	case "", "all":
		filter.PriceBand = ""
	case model.PriceBandLow, model.PriceBandMedium, model.PriceBandHigh:
	default:
		fieldError(w, "price", "price must be low, medium or high")
		return
	}
	switch filter.Sort {
	case "", model.ItemSortNewest, model.ItemSortOldest, model.ItemSortPriceLow, model.ItemSortPriceHigh, model.ItemSortName:
	default:
		fieldError(w, "sort", "unknown sort order")
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, currentSession(r).UserID, filter)
	if err != nil {
		internalError(w, r, "failed to list items", err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(items))
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item, ok := req.item(w)
	if !ok {
		return
	}

	session := currentSession(r)
	created, err := store.CreateItem(r.Context(), h.DB, session.UserID, item)
	if err != nil {
		internalError(w, r, "failed to create item", err)
		return
	}

	slog.Info("item created", "user", session.Username, "item", created.Name, "item_id", created.ID)
	jsonResponse(w, http.StatusCreated, created)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, ok := h.ownedItem(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item, ok := req.item(w)
	if !ok {
		return
	}
	item.ID = id

	owner := currentSession(r).UserID
	updated, err := store.UpdateItem(r.Context(), h.DB, owner, item)
	if err != nil {
		internalError(w, r, "failed to update item", err)
		return
	}
	if !updated {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	item, err = store.GetItem(r.Context(), h.DB, owner, id)
	if err != nil {
		internalError(w, r, "failed to update item", err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}. Items with active bookings are kept.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.ownedItem(w, r)
	if !ok {
		return
	}

	session := currentSession(r)
	deleted, err := store.DeleteItem(r.Context(), h.DB, session.UserID, item.ID)
	if err != nil {
		serviceError(w, r, "failed to delete item", err)
		return
	}
	if !deleted {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	h.removePhoto(r, item.PhotoURL)

	slog.Info("item deleted", "user", session.Username, "item", item.Name, "item_id", item.ID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadPhoto handles PUT /api/items/{id}/photo.
func (h *ItemsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	item, ok := h.ownedItem(w, r)
	if !ok {
		return
	}

	limit := imaging.DefaultOptions.MaxBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		fieldError(w, "photo", "photo file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Process(file)
	switch {
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		fieldError(w, "photo", "photo must be JPEG, PNG, or WebP")
		return
	case errors.Is(err, imaging.ErrTooLarge):
		fieldError(w, "photo", err.Error())
		return
	case err != nil:
		fieldError(w, "photo", "photo could not be decoded")
		return
	}

	session := currentSession(r)
	url, err := h.Photos.Upload(r.Context(), photos.NewKey(session.UserID), bytes.NewReader(photo.Data), photo.ContentType)
	if err != nil {
		internalError(w, r, "failed to store photo", err)
		return
	}

	if _, err := store.SetItemPhoto(r.Context(), h.DB, session.UserID, item.ID, url); err != nil {
		internalError(w, r, "failed to save photo", err)
		return
	}
	h.removePhoto(r, item.PhotoURL)
	item.PhotoURL = url

	slog.Info("item photo uploaded", "user", session.Username, "item_id", item.ID, "width", photo.Width, "height", photo.Height)
	jsonResponse(w, http.StatusOK, item)
}

// Bookings handles GET /api/items/{id}/bookings.
func (h *ItemsHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	item, ok := h.ownedItem(w, r)
	if !ok {
		return
	}

	bookings, err := store.ListBookings(r.Context(), h.DB, item.OwnerID, model.BookingFilter{ItemID: item.ID})
	if err != nil {
		internalError(w, r, "failed to list item bookings", err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(bookings))
}

// ExportCSV handles GET /api/items/export.csv.
func (h *ItemsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItems(r.Context(), h.DB, currentSession(r).UserID, model.ItemFilter{})
	if err != nil {
		internalError(w, r, "failed to export items", err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteItemsCSV(&buf, items, h.Format(r)); err != nil {
		internalError(w, r, "failed to export items", err)
		return
	}
	attachment(w, "text/csv; charset=utf-8", report.ItemsCSVFilename(h.Now()), buf.Bytes())
}

// ownedItem loads the {id} item of the signed-in owner, writing 400/404/500 on failure.
func (h *ItemsHandler) ownedItem(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return nil, false
	}

	item, err := store.GetItem(r.Context(), h.DB, currentSession(r).UserID, id)
	if err != nil {
		internalError(w, r, "failed to get item", err)
		return nil, false
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return nil, false
	}
	return item, true
}

// removePhoto deletes a replaced or orphaned photo. Failures only leave a stray object.
func (h *ItemsHandler) removePhoto(r *http.Request, url string) {
	if url == "" {
		return
	}
	key, ok := h.Photos.KeyFromURL(url)
	if !ok {
		return
	}
	if err := h.Photos.Delete(r.Context(), key); err != nil {
		slog.Warn("failed to delete photo", "key", key, "error", err)
	}
}
