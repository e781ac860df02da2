package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/izposoja/internal/store"
)

// PhotosHandler serves photos kept by the database photo backend.
type PhotosHandler struct {
	DB *sql.DB
}

// Get handles GET /api/photos/{key}. Keys are unguessable, so this is public.
func (h *PhotosHandler) Get(w http.ResponseWriter, r *http.Request) {
	data, mime, err := store.GetPhoto(r.Context(), h.DB, r.PathValue("key"))
	if err != nil {
		internalError(w, r, "failed to get photo", err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "photo not found")
		return
	}

	// Keys are never reused, so the content never changes.
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Write(data)
}

// attachment writes data as a file download.
func attachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
