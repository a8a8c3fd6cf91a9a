package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"terratiles/internal/models"
	"terratiles/internal/service"
)

// ProgressHandler serves the save-game endpoints
type ProgressHandler struct {
	progress *service.ProgressService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progress *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

// GetProgress handles GET /api/users/{userID}/progress. A user without a
// stored blob gets fresh default progress, never a 404.
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	progress, err := h.progress.Load(userID)
	if err != nil {
		log.Printf("load progress for %s failed: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}
	respondJSON(w, http.StatusOK, progress)
}

// SaveProgress handles POST /api/users/{userID}/progress
func (h *ProgressHandler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var progress models.GameProgress
	if !decodeBody(w, r, &progress) {
		return
	}

	if err := h.progress.Save(userID, progress); err != nil {
		if errors.Is(err, service.ErrProgressInvalid) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("save progress for %s failed: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "failed to save progress")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// ResetProgress handles POST /api/users/{userID}/progress/reset
func (h *ProgressHandler) ResetProgress(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.progress.Reset(userID); err != nil {
		log.Printf("reset progress for %s failed: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "failed to reset progress")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
