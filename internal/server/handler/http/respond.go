// Package http provides the HTTP handlers of the diary server: the snapshot
// store and the MySQL mirror proxy.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/FoodDiary/internal/models"
	"github.com/atinyakov/FoodDiary/internal/service"
)

// maxBodyBytes caps request bodies; a full diary snapshot fits comfortably.
const maxBodyBytes = 8 << 20

const (
	msgMethodNotAllowed = "Method not allowed"
	msgInvalidBody      = "Invalid JSON body"
	msgMissingID        = "Missing entry ID"
)

type errorResponse struct {
	Error string `json:"error"`
}

type createdResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type syncedResponse struct {
	Success bool `json:"success"`
	Synced  int  `json:"synced"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps validation errors to 400 and everything else to a
// 500 database error.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrMissingID):
		writeError(w, http.StatusBadRequest, msgMissingID)
	case errors.Is(err, service.ErrInvalidEntry), errors.Is(err, models.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "Database error: "+err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}

// MethodNotAllowed answers unsupported methods with a JSON error.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
}
