// Package http exposes the diary service to the browser UI as a JSON API.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/FoodDiary/internal/client/remote"
	"github.com/atinyakov/FoodDiary/internal/diary"
	"github.com/atinyakov/FoodDiary/internal/export"
	"github.com/atinyakov/FoodDiary/internal/models"
	"github.com/atinyakov/FoodDiary/internal/stats"
)

// DiaryService is the set of diary operations the API calls into.
type DiaryService interface {
	AddEntry(ctx context.Context, products []string, hasAllergy bool) (models.Entry, error)
	UpdateEntry(ctx context.Context, edit models.EditingEntry) error
	DeleteEntry(ctx context.Context, id string)
	Entries(f models.AllergyFilter) []models.Entry
	Suggestions(query string) []string
	Stats() stats.Summary
	Export(w io.Writer) error
	ExportFileName() string

	LoadFromCloud(ctx context.Context) bool
	DownloadFromMirror(ctx context.Context) error
	UploadToMirror(ctx context.Context) error

	Config() *models.ConnConfig
	SetConfig(ctx context.Context, cfg models.ConnConfig) error
	Disconnect(ctx context.Context) error
	TestConnection(ctx context.Context, cfg models.ConnConfig) error

	Online() bool
	Syncing() bool
	Notifications() []models.Notification
}

// DiaryHandler serves the diary API.
type DiaryHandler struct {
	Service DiaryService
}

type entryRequest struct {
	Products   []string `json:"products"`
	HasAllergy bool     `json:"hasAllergy"`
}

type statusResponse struct {
	Online  bool `json:"online"`
	Syncing bool `json:"syncing"`
	Mirror  bool `json:"mirror"`
}

// ListEntries handles GET /api/entries?filter=all|allergy|safe.
func (h *DiaryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	f := models.ParseAllergyFilter(r.URL.Query().Get("filter"))
	writeJSON(w, http.StatusOK, models.EncodeEntries(h.Service.Entries(f)))
}

// CreateEntry handles POST /api/entries.
func (h *DiaryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	e, err := h.Service.AddEntry(r.Context(), req.Products, req.HasAllergy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.ToJSON(e))
}

// UpdateEntry handles PUT /api/entries/{id}.
func (h *DiaryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	edit := models.EditingEntry{ID: chi.URLParam(r, "id"), Products: req.Products, HasAllergy: req.HasAllergy}
	if err := h.Service.UpdateEntry(r.Context(), edit); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteEntry handles DELETE /api/entries/{id}.
func (h *DiaryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	h.Service.DeleteEntry(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// Products handles GET /api/products?q=.
func (h *DiaryHandler) Products(w http.ResponseWriter, r *http.Request) {
	suggestions := h.Service.Suggestions(r.URL.Query().Get("q"))
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// Stats handles GET /api/stats.
func (h *DiaryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.Stats())
}

// Export handles GET /api/export and streams the CSV as an attachment.
func (h *DiaryHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.Service.Export(&buf); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": h.Service.ExportFileName(),
	}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

// Status handles GET /api/status.
func (h *DiaryHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Online:  h.Service.Online(),
		Syncing: h.Service.Syncing(),
		Mirror:  h.Service.Config() != nil,
	})
}

// SyncCloud handles POST /api/sync/cloud.
func (h *DiaryHandler) SyncCloud(w http.ResponseWriter, r *http.Request) {
	ok := h.Service.LoadFromCloud(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"loaded": ok})
}

// DownloadMirror handles POST /api/sync/mirror/download.
func (h *DiaryHandler) DownloadMirror(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DownloadFromMirror(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadMirror handles POST /api/sync/mirror/upload.
func (h *DiaryHandler) UploadMirror(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.UploadToMirror(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings handles GET /api/settings/mirror. The response is null when
// the mirror is disconnected.
func (h *DiaryHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.Config())
}

// PutSettings handles PUT /api/settings/mirror.
func (h *DiaryHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var cfg models.ConnConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.Service.SetConfig(r.Context(), cfg); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Service.Config())
}

// DeleteSettings handles DELETE /api/settings/mirror.
func (h *DiaryHandler) DeleteSettings(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Disconnect(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TestSettings handles POST /api/settings/mirror/test.
func (h *DiaryHandler) TestSettings(w http.ResponseWriter, r *http.Request) {
	var cfg models.ConnConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.Service.TestConnection(r.Context(), cfg); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Notifications handles GET /api/notifications and drains the queue.
func (h *DiaryHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.Notifications())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, diary.ErrNoProducts), errors.Is(err, models.ErrInvalidConfig):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, remote.ErrNotConfigured), errors.Is(err, export.ErrNothingToExport):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}
