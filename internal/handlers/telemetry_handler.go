package handlers

import (
	"net/http"

	"terratiles/internal/models"
	"terratiles/internal/service"
)

// TelemetryHandler serves the telemetry ingestion endpoint
type TelemetryHandler struct {
	telemetry *service.TelemetryService
}

// NewTelemetryHandler creates a new telemetry handler
func NewTelemetryHandler(telemetry *service.TelemetryService) *TelemetryHandler {
	return &TelemetryHandler{telemetry: telemetry}
}

type telemetryBatchRequest struct {
	Events []models.TelemetryEvent `json:"events"`
}

// IngestBatch handles POST /api/telemetry/batch. Ingestion is per-event
// best-effort; the response reports how many entries landed.
func (h *TelemetryHandler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	var req telemetryBatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Events) == 0 {
		respondError(w, http.StatusBadRequest, "batch is empty")
		return
	}

	result := h.telemetry.IngestBatch(req.Events)
	respondJSON(w, http.StatusOK, result)
}
