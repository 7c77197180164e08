package ingest

import (
	"time"

	"github.com/telemetry-platform/telemetry/internal/models"
	"github.com/telemetry-platform/telemetry/internal/pkg/validate"
)

// ClockSkewTolerance bounds how far a reading's timestamp may sit in the
// future of the moment it is validated, to absorb device/server clock drift.
const ClockSkewTolerance = 5 * time.Minute

// QualityThresholds configures the cross-field "quality" heuristic (§4.B
// step 2). They are separate from the analysis engine's thresholds: this
// rule exists to catch obviously inconsistent device reports, not to flag
// anomalies.
type QualityThresholds struct {
	CriticalTempFloor float64 // status=CRITICAL but temp below this AND vibration below CriticalVibFloor => reject
	CriticalVibFloor  float64
	IdleTempCeiling   float64 // status=IDLE but temp above this => reject
}

// DefaultQualityThresholds mirrors the values implied by the 50°C / 0.5 /
// 80°C figures named in the design.
var DefaultQualityThresholds = QualityThresholds{
	CriticalTempFloor: 50.0,
	CriticalVibFloor:  0.5,
	IdleTempCeiling:   80.0,
}

// Validator checks a parsed Reading against the §3 schema/range invariants
// and the cross-field quality heuristic.
type Validator struct {
	Quality QualityThresholds
}

// NewValidator returns a Validator using the default quality thresholds.
func NewValidator() *Validator {
	return &Validator{Quality: DefaultQualityThresholds}
}

// Validate reports the first violated invariant, or nil when the reading is
// acceptable for persistence. now is injected for testability.
func (v *Validator) Validate(r models.Reading, now time.Time) error {
	if !validate.MachineID(r.MachineID) {
		return ErrInvalidReading
	}
	if r.Timestamp.After(now.Add(ClockSkewTolerance)) {
		return ErrInvalidReading
	}
	if r.Temperature < -50 || r.Temperature > 200 {
		return ErrInvalidReading
	}
	if r.Vibration < 0 || r.Vibration > 1 {
		return ErrInvalidReading
	}
	if r.Pressure != nil && (*r.Pressure < 0 || *r.Pressure > 10) {
		return ErrInvalidReading
	}
	if r.Humidity != nil && (*r.Humidity < 0 || *r.Humidity > 100) {
		return ErrInvalidReading
	}
	if r.PowerConsumption != nil && (*r.PowerConsumption < 0 || *r.PowerConsumption > 10000) {
		return ErrInvalidReading
	}
	if r.RotationSpeed != nil && (*r.RotationSpeed < 0 || *r.RotationSpeed > 5000) {
		return ErrInvalidReading
	}
	if !models.ValidStatus(r.Status) {
		return ErrInvalidReading
	}
	if len(r.Location) > 100 {
		return ErrInvalidReading
	}

	if err := v.checkQuality(r); err != nil {
		return err
	}
	return nil
}

func (v *Validator) checkQuality(r models.Reading) error {
	if r.Status == models.StatusCritical &&
		r.Temperature < v.Quality.CriticalTempFloor &&
		r.Vibration < v.Quality.CriticalVibFloor {
		return ErrQualityCheckFailed
	}
	if r.Status == models.StatusIdle && r.Temperature > v.Quality.IdleTempCeiling {
		return ErrQualityCheckFailed
	}
	return nil
}

// CheckIdentity rejects a message whose payload machine_id disagrees with
// the identifier extracted from its topic, when the topic carries one.
func CheckIdentity(topicMachineID, payloadMachineID string) error {
	if topicMachineID != "" && topicMachineID != payloadMachineID {
		return ErrIdentityMismatch
	}
	return nil
}
