// Package analysis computes on-demand statistical health assessments for a
// single machine over a recent time window.
package analysis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/telemetry-platform/telemetry/internal/models"
	"github.com/telemetry-platform/telemetry/internal/pkg/metrics"
	"github.com/telemetry-platform/telemetry/internal/store"
)

// EngineConfig tunes the analysis algorithm (§4.C / §3 Configuration table).
type EngineConfig struct {
	Thresholds Thresholds
	MinPoints  int
}

// Engine computes AnalysisResults by reading directly from the store. The
// design calls for pulling the slice "via the ingestion engine's query
// surface"; since both engines live in one binary here, Engine calls the
// store directly rather than round-tripping through its own HTTP server —
// an in-process call has identical semantics to the documented query
// (GET /data/machine/{id}/recent?hours=h) and avoids a pointless loopback.
type Engine struct {
	Store  store.Store
	Config EngineConfig
}

// NewEngine returns an Engine reading from st, tuned by cfg.
func NewEngine(st store.Store, cfg EngineConfig) *Engine {
	return &Engine{Store: st, Config: cfg}
}

// Analyze computes the health assessment for machineID over the last hours.
func (e *Engine) Analyze(ctx context.Context, machineID string, hours int) (models.AnalysisResult, error) {
	start := time.Now()
	defer func() { metrics.AnalysisDurationSeconds.Observe(time.Since(start).Seconds()) }()

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	readings, err := e.Store.ScanMachine(ctx, machineID, since, 100000)
	if err != nil {
		metrics.AnalysisRunsTotal.WithLabelValues("store_error").Inc()
		return models.AnalysisResult{}, fmt.Errorf("analysis: scan machine: %w", err)
	}

	if len(readings) == 0 || len(readings) < e.Config.MinPoints {
		metrics.AnalysisRunsTotal.WithLabelValues("insufficient_data").Inc()
		return models.AnalysisResult{
			MachineID:  machineID,
			AnalyzedAt: time.Now().UTC(),
			Status:     models.AnalysisInsufficientData,
			Anomalies:  []models.Anomaly{},
			Statistics: models.Statistics{DataPointsAnalyzed: len(readings)},
		}, nil
	}

	temps := make([]float64, len(readings))
	vibs := make([]float64, len(readings))
	for i, r := range readings {
		temps[i] = r.Temperature
		vibs[i] = r.Vibration
	}
	tempStats := computeStats(temps)
	vibStats := computeStats(vibs)

	anomalies := append(
		thresholdPass(readings, e.Config.Thresholds),
		zScorePass(readings, tempStats, vibStats, e.Config.Thresholds)...,
	)
	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].DetectedAt.Before(anomalies[j].DetectedAt)
	})
	for _, a := range anomalies {
		metrics.AnomaliesDetectedTotal.WithLabelValues(a.Type, string(a.Severity)).Inc()
	}

	score := healthScore(anomalies)
	metrics.AnalysisRunsTotal.WithLabelValues("ok").Inc()

	return models.AnalysisResult{
		MachineID:   machineID,
		AnalyzedAt:  time.Now().UTC(),
		HealthScore: &score,
		Status:      statusForScore(score),
		Anomalies:   anomalies,
		Statistics: models.Statistics{
			AvgTemperature:     tempStats.Mean,
			MaxTemperature:     tempStats.Max,
			AvgVibration:       vibStats.Mean,
			MaxVibration:       vibStats.Max,
			DataPointsAnalyzed: len(readings),
		},
	}, nil
}

// healthScore starts at 100, subtracts 20 per CRITICAL anomaly and 5 per
// WARNING anomaly, clamped to [0, 100].
func healthScore(anomalies []models.Anomaly) float64 {
	score := 100.0
	for _, a := range anomalies {
		switch a.Severity {
		case models.SeverityCritical:
			score -= 20
		case models.SeverityWarning:
			score -= 5
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func statusForScore(score float64) models.AnalysisStatus {
	switch {
	case score >= 80:
		return models.AnalysisHealthy
	case score >= 50:
		return models.AnalysisWarning
	default:
		return models.AnalysisCritical
	}
}
