// Package models holds the wire/store/in-memory record types shared across
// the ingestion and analysis engines.
package models

import (
	"encoding/json"
	"time"
)

// Status is the device-reported operating state of a machine. It is
// authoritative as reported; the ingestion engine never rewrites it.
type Status string

const (
	StatusRunning  Status = "RUNNING"
	StatusIdle     Status = "IDLE"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
)

// ValidStatus reports whether s is one of the four recognized statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusRunning, StatusIdle, StatusWarning, StatusCritical:
		return true
	}
	return false
}

// Reading is a single sensor sample. Identity is (MachineID, Timestamp);
// RowID is a store-assigned monotonic number used only for retrieval
// ordering, never for identity comparisons.
type Reading struct {
	RowID            int64                  `json:"-" db:"row_id"`
	MachineID        string                 `json:"machineId" db:"machine_id"`
	Timestamp        time.Time              `json:"timestamp" db:"timestamp"`
	Temperature      float64                `json:"temperature" db:"temperature"`
	Vibration        float64                `json:"vibration" db:"vibration"`
	Pressure         *float64               `json:"pressure,omitempty" db:"pressure"`
	Humidity         *float64               `json:"humidity,omitempty" db:"humidity"`
	PowerConsumption *float64               `json:"powerConsumption,omitempty" db:"power_consumption"`
	RotationSpeed    *float64               `json:"rotationSpeed,omitempty" db:"rotation_speed"`
	Status           Status                 `json:"status" db:"status"`
	Location         string                 `json:"location,omitempty" db:"location"`
	Metadata         map[string]interface{} `json:"metadata,omitempty" db:"-"`
	IngestedAt       time.Time              `json:"ingestedAt,omitempty" db:"ingested_at"`
}

// readingJSON mirrors the canonical wire shape. Timestamp is ISO-8601
// without a timezone offset and MUST be treated as UTC.
type readingJSON struct {
	MachineID        string                 `json:"machineId"`
	Timestamp        string                 `json:"timestamp"`
	Temperature      float64                `json:"temperature"`
	Vibration        float64                `json:"vibration"`
	Pressure         *float64               `json:"pressure,omitempty"`
	Humidity         *float64               `json:"humidity,omitempty"`
	PowerConsumption *float64               `json:"powerConsumption,omitempty"`
	RotationSpeed    *float64               `json:"rotationSpeed,omitempty"`
	Status           string                 `json:"status"`
	Location         string                 `json:"location,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// wireTimestampLayout is the no-timezone ISO-8601 layout used on the wire;
// parsers MUST treat it as UTC regardless of the parsing process's locale.
const wireTimestampLayout = "2006-01-02T15:04:05"

// ParseReadingJSON decodes a Reading from its canonical wire JSON. It does
// not validate ranges; callers run the reading through a validator.
func ParseReadingJSON(data []byte) (Reading, error) {
	var rj readingJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return Reading{}, err
	}
	ts, err := time.ParseInLocation(wireTimestampLayout, rj.Timestamp, time.UTC)
	if err != nil {
		return Reading{}, err
	}
	return Reading{
		MachineID:        rj.MachineID,
		Timestamp:        ts,
		Temperature:      rj.Temperature,
		Vibration:        rj.Vibration,
		Pressure:         rj.Pressure,
		Humidity:         rj.Humidity,
		PowerConsumption: rj.PowerConsumption,
		RotationSpeed:    rj.RotationSpeed,
		Status:           Status(rj.Status),
		Location:         rj.Location,
		Metadata:         rj.Metadata,
	}, nil
}

// ToReadingJSON renders a Reading back into the canonical wire shape
// (used for echoing POST /data and for list responses).
func ToReadingJSON(r Reading) interface{} {
	return readingJSON{
		MachineID:        r.MachineID,
		Timestamp:        r.Timestamp.UTC().Format(wireTimestampLayout),
		Temperature:      r.Temperature,
		Vibration:        r.Vibration,
		Pressure:         r.Pressure,
		Humidity:         r.Humidity,
		PowerConsumption: r.PowerConsumption,
		RotationSpeed:    r.RotationSpeed,
		Status:           string(r.Status),
		Location:         r.Location,
		Metadata:         r.Metadata,
	}
}
