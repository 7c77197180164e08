package analysis

import (
	"fmt"
	"time"

	"github.com/telemetry-platform/telemetry/internal/models"
)

// Thresholds configures the absolute and standardized-score passes (§4.C).
type Thresholds struct {
	ZThreshold float64
	TempWarn   float64
	TempCrit   float64
	VibWarn    float64
	VibCrit    float64
}

// thresholdPass emits one Anomaly per reading per metric whose value meets
// or exceeds the warn/crit threshold. Ties at a boundary favor the
// threshold (>=).
func thresholdPass(readings []models.Reading, t Thresholds) []models.Anomaly {
	var anomalies []models.Anomaly
	for _, r := range readings {
		if a, ok := thresholdAnomaly("temperature", r.Temperature, t.TempWarn, t.TempCrit, r.Timestamp); ok {
			anomalies = append(anomalies, a)
		}
		if a, ok := thresholdAnomaly("vibration", r.Vibration, t.VibWarn, t.VibCrit, r.Timestamp); ok {
			anomalies = append(anomalies, a)
		}
	}
	return anomalies
}

func thresholdAnomaly(metricType string, value, warn, crit float64, detectedAt time.Time) (models.Anomaly, bool) {
	switch {
	case value >= crit:
		return models.Anomaly{
			Type:       metricType,
			Severity:   models.SeverityCritical,
			Value:      value,
			Threshold:  crit,
			Message:    fmt.Sprintf("%s %.2f at or above critical threshold %.2f", metricType, value, crit),
			DetectedAt: detectedAt,
		}, true
	case value >= warn:
		return models.Anomaly{
			Type:       metricType,
			Severity:   models.SeverityWarning,
			Value:      value,
			Threshold:  warn,
			Message:    fmt.Sprintf("%s %.2f at or above warning threshold %.2f", metricType, value, warn),
			DetectedAt: detectedAt,
		}, true
	default:
		return models.Anomaly{}, false
	}
}

// zScorePass emits one WARNING Anomaly per reading per metric whose
// standardized score exceeds t.ZThreshold. Constant series (stddev == 0)
// are skipped entirely.
func zScorePass(readings []models.Reading, temp, vib sampleStats, t Thresholds) []models.Anomaly {
	var anomalies []models.Anomaly
	for _, r := range readings {
		if a, ok := zScoreAnomaly("temperature", r.Temperature, temp, t.ZThreshold, r.Timestamp); ok {
			anomalies = append(anomalies, a)
		}
		if a, ok := zScoreAnomaly("vibration", r.Vibration, vib, t.ZThreshold, r.Timestamp); ok {
			anomalies = append(anomalies, a)
		}
	}
	return anomalies
}

func zScoreAnomaly(metricType string, value float64, stats sampleStats, zThreshold float64, detectedAt time.Time) (models.Anomaly, bool) {
	if stats.Stddev == 0 {
		return models.Anomaly{}, false
	}
	z := zScore(value, stats)
	if z <= zThreshold {
		return models.Anomaly{}, false
	}
	return models.Anomaly{
		Type:       metricType,
		Severity:   models.SeverityWarning,
		Value:      value,
		Threshold:  stats.Mean + zThreshold*stats.Stddev,
		Message:    fmt.Sprintf("%s %.2f is %.2f standard deviations from the mean", metricType, value, z),
		DetectedAt: detectedAt,
	}, true
}
