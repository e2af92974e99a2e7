package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atinyakov/FoodDiary/internal/models"
)

// ConfigHeader carries the JSON connection config of the caller's MySQL database.
const ConfigHeader = "X-DB-Config"

// MirrorService defines the proxy operations required by the MirrorHandler.
type MirrorService interface {
	List(ctx context.Context, cfg models.ConnConfig) ([]models.MirrorRow, error)
	Insert(ctx context.Context, cfg models.ConnConfig, item models.EntryJSON) (string, error)
	Replace(ctx context.Context, cfg models.ConnConfig, items []models.EntryJSON) (int, error)
	Delete(ctx context.Context, cfg models.ConnConfig, id string) error
}

// MirrorHandler serves /api/mirror. Every request names its target database
// in the X-DB-Config header.
type MirrorHandler struct {
	Service MirrorService
}

// readConfig parses the config header, writing a 400 when it is unusable.
func readConfig(w http.ResponseWriter, r *http.Request) (models.ConnConfig, bool) {
	raw := r.Header.Get(ConfigHeader)
	if raw == "" {
		writeError(w, http.StatusBadRequest, "Missing database configuration")
		return models.ConnConfig{}, false
	}
	var cfg models.ConnConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid database configuration format")
		return models.ConnConfig{}, false
	}
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return models.ConnConfig{}, false
	}
	return cfg.WithDefaults(), true
}

// Get handles GET: every row of the mirror.
func (h *MirrorHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, ok := readConfig(w, r)
	if !ok {
		return
	}
	rows, err := h.Service.List(r.Context(), cfg)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MirrorPayload{Entries: rows})
}

// Post handles POST with a single entry.
func (h *MirrorHandler) Post(w http.ResponseWriter, r *http.Request) {
	cfg, ok := readConfig(w, r)
	if !ok {
		return
	}
	var item models.EntryJSON
	if !decodeBody(w, r, &item) {
		return
	}
	id, err := h.Service.Insert(r.Context(), cfg, item)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{Success: true, ID: id})
}

// Put handles PUT {entries}: replaces every row.
func (h *MirrorHandler) Put(w http.ResponseWriter, r *http.Request) {
	cfg, ok := readConfig(w, r)
	if !ok {
		return
	}
	var body models.Snapshot
	if !decodeBody(w, r, &body) {
		return
	}
	n, err := h.Service.Replace(r.Context(), cfg, body.Entries)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, syncedResponse{Success: true, Synced: n})
}

// Delete handles DELETE ?id=.
func (h *MirrorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cfg, ok := readConfig(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), cfg, r.URL.Query().Get("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
