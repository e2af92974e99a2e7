package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/FoodDiary/internal/models"
)

// SnapshotService defines the snapshot operations required by the SnapshotHandler.
type SnapshotService interface {
	List(ctx context.Context) ([]models.StoredEntry, error)
	Replace(ctx context.Context, items []models.EntryJSON) (int, error)
	Save(ctx context.Context, item models.EntryJSON) (string, error)
	Delete(ctx context.Context, id string) error
}

// SnapshotHandler serves /api/snapshot.
type SnapshotHandler struct {
	Service SnapshotService
}

// Get handles GET: the whole snapshot, newest first.
func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.StoredSnapshot{Entries: entries})
}

// Put handles PUT {entries}: replaces the snapshot.
func (h *SnapshotHandler) Put(w http.ResponseWriter, r *http.Request) {
	var body models.Snapshot
	if !decodeBody(w, r, &body) {
		return
	}
	n, err := h.Service.Replace(r.Context(), body.Entries)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, syncedResponse{Success: true, Synced: n})
}

// Post handles POST with a single entry: inserts or overwrites it.
func (h *SnapshotHandler) Post(w http.ResponseWriter, r *http.Request) {
	var item models.EntryJSON
	if !decodeBody(w, r, &item) {
		return
	}
	id, err := h.Service.Save(r.Context(), item)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{Success: true, ID: id})
}

// Delete handles DELETE ?id=.
func (h *SnapshotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), r.URL.Query().Get("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
