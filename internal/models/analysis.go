package models

import "time"

// AnalysisStatus is the overall health bucket derived from HealthScore.
type AnalysisStatus string

const (
	AnalysisHealthy           AnalysisStatus = "HEALTHY"
	AnalysisWarning           AnalysisStatus = "WARNING"
	AnalysisCritical          AnalysisStatus = "CRITICAL"
	AnalysisInsufficientData  AnalysisStatus = "INSUFFICIENT_DATA"
)

// Severity is the severity of a single detected Anomaly.
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Anomaly is one flagged deviation, produced by either the absolute
// threshold pass or the standardized-score pass. Passes are never
// deduplicated against each other — a single reading can legitimately
// produce both kinds of anomaly.
type Anomaly struct {
	Type        string    `json:"type"` // e.g. "temperature", "vibration"
	Severity    Severity  `json:"severity"`
	Value       float64   `json:"value"`
	Threshold   float64   `json:"threshold"`
	Message     string    `json:"message"`
	DetectedAt  time.Time `json:"detectedAt"`
}

// Statistics are the descriptive statistics computed over the analyzed slice.
type Statistics struct {
	AvgTemperature     float64 `json:"avgTemperature"`
	MaxTemperature     float64 `json:"maxTemperature"`
	AvgVibration       float64 `json:"avgVibration"`
	MaxVibration       float64 `json:"maxVibration"`
	DataPointsAnalyzed int     `json:"dataPointsAnalyzed"`
}

// AnalysisResult is the derived, non-persisted output of the Analysis Engine.
type AnalysisResult struct {
	MachineID   string         `json:"machineId"`
	AnalyzedAt  time.Time      `json:"analyzedAt"`
	HealthScore *float64       `json:"healthScore"` // nil when INSUFFICIENT_DATA
	Status      AnalysisStatus `json:"status"`
	Anomalies   []Anomaly      `json:"anomalies"`
	Statistics  Statistics     `json:"statistics"`
}
