package rest

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/telemetry-platform/telemetry/internal/ingest"
	"github.com/telemetry-platform/telemetry/internal/models"
	"github.com/telemetry-platform/telemetry/internal/pkg/validate"
	"github.com/telemetry-platform/telemetry/internal/store"
)

const (
	defaultRecentLimit = 100
	maxRecentLimit     = 1000
	defaultStatsLimit  = 100000
	defaultScanLimit   = 100000
	defaultHours       = 24
)

// readingsResponse converts readings to their wire JSON shape; list
// endpoints encode the result as a bare JSON array.
func readingsResponse(readings []models.Reading) []interface{} {
	out := make([]interface{}, len(readings))
	for i, r := range readings {
		out[i] = models.ToReadingJSON(r)
	}
	return out
}

// PostReading handles POST /data: validates the body through the same
// validator the MQTT pipeline uses, then writes it synchronously.
func (h *Handler) PostReading(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDOf(r)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeMalformedPayload, "could not read request body", reqID)
		return
	}
	reading, err := models.ParseReadingJSON(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeMalformedPayload, "malformed reading payload", reqID)
		return
	}

	v := ingest.NewValidator()
	if err := v.Validate(reading, time.Now().UTC()); err != nil {
		code := ErrCodeInvalidReading
		if errors.Is(err, ingest.ErrQualityCheckFailed) {
			code = ErrCodeQualityCheckFailed
		}
		respondError(w, http.StatusBadRequest, code, err.Error(), reqID)
		return
	}

	if err := h.Store.AppendBatch(r.Context(), []models.Reading{reading}); err != nil {
		if errors.Is(err, store.ErrRejected) {
			respondError(w, http.StatusBadRequest, ErrCodeStoreRejected, "store rejected reading", reqID)
			return
		}
		respondError(w, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "store unavailable", reqID)
		return
	}

	respondJSON(w, http.StatusCreated, models.ToReadingJSON(reading))
}

// GetRecent handles GET /data/recent?limit=n.
func (h *Handler) GetRecent(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDOf(r)
	limit := parseIntParam(r, "limit", defaultRecentLimit, maxRecentLimit)
	readings, err := h.Store.ScanRange(r.Context(), time.Unix(0, 0).UTC(), time.Now().UTC(), limit)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "store unavailable", reqID)
		return
	}
	respondJSON(w, http.StatusOK, readingsResponse(readings))
}

// GetMachine handles GET /data/machine/{id}: the full descending list for a
// machine, capped internally by defaultScanLimit.
func (h *Handler) GetMachine(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDOf(r)
	machineID := mux.Vars(r)["id"]
	if !validate.MachineID(machineID) {
		respondValidationError(w, http.StatusBadRequest, "machine_id", "invalid machine id", reqID)
		return
	}
	readings, err := h.Store.ScanMachine(r.Context(), machineID, time.Unix(0, 0).UTC(), defaultScanLimit)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "store unavailable", reqID)
		return
	}
	respondJSON(w, http.StatusOK, readingsResponse(readings))
}

// GetMachineRecent handles GET /data/machine/{id}/recent?hours=h.
func (h *Handler) GetMachineRecent(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDOf(r)
	machineID := mux.Vars(r)["id"]
	if !validate.MachineID(machineID) {
		respondValidationError(w, http.StatusBadRequest, "machine_id", "invalid machine id", reqID)
		return
	}
	hours := parseIntParam(r, "hours", defaultHours, 0)
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	readings, err := h.Store.ScanMachine(r.Context(), machineID, since, defaultScanLimit)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "store unavailable", reqID)
		return
	}
	respondJSON(w, http.StatusOK, readingsResponse(readings))
}

// GetRange handles GET /data/range?start=...&end=... (ISO-8601).
func (h *Handler) GetRange(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDOf(r)
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		respondValidationError(w, http.StatusBadRequest, "start", "invalid start timestamp", reqID)
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		respondValidationError(w, http.StatusBadRequest, "end", "invalid end timestamp", reqID)
		return
	}
	if !start.Before(end) {
		respondValidationError(w, http.StatusBadRequest, "end", "start must be before end", reqID)
		return
	}
	readings, err := h.Store.ScanRange(r.Context(), start, end, defaultScanLimit)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "store unavailable", reqID)
		return
	}
	respondJSON(w, http.StatusOK, readingsResponse(readings))
}

// GetStatus handles GET /data/status/{status}.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDOf(r)
	status := models.Status(mux.Vars(r)["status"])
	if !models.ValidStatus(status) {
		respondValidationError(w, http.StatusBadRequest, "status", "invalid status", reqID)
		return
	}
	readings, err := h.Store.ScanStatus(r.Context(), status, defaultScanLimit)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "store unavailable", reqID)
		return
	}
	respondJSON(w, http.StatusOK, readingsResponse(readings))
}

func (h *Handler) getAlerts(w http.ResponseWriter, r *http.Request, metric string) {
	reqID := requestIDOf(r)
	threshold, ok := parseFloatParam(r, "threshold")
	if !ok {
		respondValidationError(w, http.StatusBadRequest, "threshold", "threshold is required", reqID)
		return
	}
	hours := parseIntParam(r, "hours", defaultHours, 0)
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	readings, err := h.Store.ScanAboveThreshold(r.Context(), metric, threshold, since)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "store unavailable", reqID)
		return
	}
	respondJSON(w, http.StatusOK, readingsResponse(readings))
}

// GetAlertsTemperature handles GET /data/alerts/temperature?threshold=&hours=.
func (h *Handler) GetAlertsTemperature(w http.ResponseWriter, r *http.Request) {
	h.getAlerts(w, r, store.MetricTemperature)
}

// GetAlertsVibration handles GET /data/alerts/vibration?threshold=&hours=.
func (h *Handler) GetAlertsVibration(w http.ResponseWriter, r *http.Request) {
	h.getAlerts(w, r, store.MetricVibration)
}

type machineStatsResponse struct {
	MachineID          string  `json:"machine_id"`
	AverageTemperature float64 `json:"average_temperature"`
	TotalReadings      int64   `json:"total_readings"`
	Start              string  `json:"start"`
	End                string  `json:"end"`
}

// GetMachineStats handles GET /data/machine/{id}/stats?start=&end=.
func (h *Handler) GetMachineStats(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDOf(r)
	machineID := mux.Vars(r)["id"]
	if !validate.MachineID(machineID) {
		respondValidationError(w, http.StatusBadRequest, "machine_id", "invalid machine id", reqID)
		return
	}
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		respondValidationError(w, http.StatusBadRequest, "start", "invalid start timestamp", reqID)
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		respondValidationError(w, http.StatusBadRequest, "end", "invalid end timestamp", reqID)
		return
	}

	avg, err := h.Store.Aggregate(r.Context(), machineID, store.MetricTemperature, store.AggregateMean, start, end)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "store unavailable", reqID)
		return
	}
	count, err := h.Store.Aggregate(r.Context(), machineID, store.MetricTemperature, store.AggregateCount, start, end)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "store unavailable", reqID)
		return
	}

	respondJSON(w, http.StatusOK, machineStatsResponse{
		MachineID:          machineID,
		AverageTemperature: avg,
		TotalReadings:      int64(count),
		Start:              start.UTC().Format(time.RFC3339),
		End:                end.UTC().Format(time.RFC3339),
	})
}
