package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/booking"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/photos"
	"github.com/erazemk/izposoja/internal/report"
)

// Options wires the router to its collaborators.
type Options struct {
	DB        *sql.DB
	JWTSecret string
	Bookings  *booking.Service
	Photos    photos.Storage
	Sessions  *auth.Broker
	Format    report.Format
	Now       func() time.Time
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(opts Options) http.Handler {
	mux := http.NewServeMux()

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	settingsHandler := &SettingsHandler{DB: opts.DB, Default: opts.Format}
	authHandler := &AuthHandler{DB: opts.DB, JWTSecret: opts.JWTSecret, Sessions: opts.Sessions}
	usersHandler := &UsersHandler{DB: opts.DB}
	itemsHandler := &ItemsHandler{DB: opts.DB, Photos: opts.Photos, Format: settingsHandler.Format, Now: now}
	bookingsHandler := &BookingsHandler{Service: opts.Bookings}
	reportsHandler := &ReportsHandler{DB: opts.DB, Format: settingsHandler.Format, Now: now}

	authMW := AuthMiddleware(opts.JWTSecret, opts.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	signedIn := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public: login, and photos from the database backend.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	if _, ok := opts.Photos.(*photos.DB); ok {
		photosHandler := &PhotosHandler{DB: opts.DB}
		mux.HandleFunc("GET "+photos.DBPath+"{key}", photosHandler.Get)
	}

	// Session.
	mux.Handle("GET /api/auth/session", signedIn(authHandler.Session))
	mux.Handle("POST /api/auth/logout", signedIn(authHandler.Logout))
	mux.Handle("PUT /api/auth/password", signedIn(authHandler.ChangePassword))

	// Users (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Settings: read (all), write (admin).
	mux.Handle("GET /api/settings", signedIn(settingsHandler.Get))
	mux.Handle("PUT /api/settings/currency", admin(settingsHandler.SetCurrency))

	// Items, scoped to the signed-in owner. The literal export path wins over {id}.
	mux.Handle("GET /api/items", signedIn(itemsHandler.List))
	mux.Handle("POST /api/items", signedIn(itemsHandler.Create))
	mux.Handle("GET /api/items/export.csv", signedIn(itemsHandler.ExportCSV))
	mux.Handle("GET /api/items/{id}", signedIn(itemsHandler.Get))
	mux.Handle("PUT /api/items/{id}", signedIn(itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", signedIn(itemsHandler.Delete))
	mux.Handle("PUT /api/items/{id}/photo", signedIn(itemsHandler.UploadPhoto))
	mux.Handle("GET /api/items/{id}/bookings", signedIn(itemsHandler.Bookings))

	// Bookings.
	mux.Handle("GET /api/bookings", signedIn(bookingsHandler.List))
	mux.Handle("POST /api/bookings", signedIn(bookingsHandler.Create))
	mux.Handle("GET /api/bookings/{id}", signedIn(bookingsHandler.Get))
	mux.Handle("PUT /api/bookings/{id}", signedIn(bookingsHandler.Update))
	mux.Handle("DELETE /api/bookings/{id}", signedIn(bookingsHandler.Delete))
	mux.Handle("POST /api/bookings/{id}/complete", signedIn(bookingsHandler.Complete))
	mux.Handle("POST /api/bookings/{id}/cancel", signedIn(bookingsHandler.Cancel))
	mux.Handle("GET /api/availability", signedIn(bookingsHandler.Availability))
	mux.Handle("GET /api/quote", signedIn(bookingsHandler.Quote))

	// Reports.
	mux.Handle("GET /api/reports", signedIn(reportsHandler.Summary))
	mux.Handle("GET /api/reports/bookings.csv", signedIn(reportsHandler.CSV))
	mux.Handle("GET /api/reports/bookings.pdf", signedIn(reportsHandler.PDF))

	return mux
}
