// Package store presents the time-partitioned reading store as a typed,
// narrow interface. It hides partitioning, compression, and aggregate
// views behind append/scan/aggregate/drop operations; it does not model
// SQL, migrations, or connection pooling in its public surface.
package store

import (
	"context"
	"time"

	"github.com/telemetry-platform/telemetry/internal/models"
)

// Metric names accepted by ScanAboveThreshold and Aggregate.
const (
	MetricTemperature = "temperature"
	MetricVibration   = "vibration"
)

// AggregateKind selects the single value returned by Aggregate.
type AggregateKind string

const (
	AggregateMean  AggregateKind = "mean"
	AggregateMax   AggregateKind = "max"
	AggregateMin   AggregateKind = "min"
	AggregateCount AggregateKind = "count"
)

// Store is the narrow interface used by the ingestion and analysis engines.
// Implementations must guarantee: an append is durable before returning nil,
// and reads after a successful append observe it (no read-your-write gap).
type Store interface {
	// AppendBatch bulk-inserts readings. Ordering within the batch does not
	// matter. Duplicate (machine_id, timestamp) tuples are permitted — the
	// store does not deduplicate; at-least-once ingestion relies on this.
	// Returns ErrUnavailable for transient failures (retryable) or
	// ErrRejected for a malformed row (not retryable).
	AppendBatch(ctx context.Context, readings []models.Reading) error

	// ScanMachine returns readings for machine_id with timestamp >= since,
	// ordered descending by timestamp, bounded by limit.
	ScanMachine(ctx context.Context, machineID string, since time.Time, limit int) ([]models.Reading, error)

	// ScanRange returns readings across all machines with start <= timestamp
	// <= end, ordered descending by timestamp, bounded by limit.
	ScanRange(ctx context.Context, start, end time.Time, limit int) ([]models.Reading, error)

	// ScanStatus returns readings with the given status, ordered descending
	// by timestamp, bounded by limit.
	ScanStatus(ctx context.Context, status models.Status, limit int) ([]models.Reading, error)

	// ScanAboveThreshold returns readings where metric >= minValue and
	// timestamp >= since, ordered descending by timestamp.
	ScanAboveThreshold(ctx context.Context, metric string, minValue float64, since time.Time) ([]models.Reading, error)

	// Aggregate returns a single-value aggregate of metric for machineID
	// over [start, end]. May lag by up to the continuous-aggregate refresh
	// interval on implementations backed by materialized views.
	Aggregate(ctx context.Context, machineID, metric string, kind AggregateKind, start, end time.Time) (float64, error)

	// DropBefore deletes readings with timestamp < cutoff (retention
	// primitive) and returns the number of rows dropped.
	DropBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases the underlying connection pool.
	Close() error
}
