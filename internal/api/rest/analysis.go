package rest

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/telemetry-platform/telemetry/internal/pkg/validate"
)

// GetMachineAnalysis handles GET /analysis/machine/{id}?hours=h.
func (h *Handler) GetMachineAnalysis(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDOf(r)
	machineID := mux.Vars(r)["id"]
	if !validate.MachineID(machineID) {
		respondValidationError(w, http.StatusBadRequest, "machine_id", "invalid machine id", reqID)
		return
	}
	hours := parseIntParam(r, "hours", defaultHours, 0)

	result, err := h.Analysis.Analyze(r.Context(), machineID, hours)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "analysis unavailable", reqID)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
