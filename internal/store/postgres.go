package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/telemetry-platform/telemetry/internal/models"
)

// PostgresStore implements Store against a TimescaleDB hypertable. It
// assumes the schema in migrations/ has already been applied — hypertable
// creation, chunk interval, compression, and continuous aggregates are
// collaborator concerns whose SQL lives in migrations/; this package
// neither issues nor manages it.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore opens a connection pool against dsn (a postgres://
// connection string).
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

type readingRow struct {
	RowID            int64           `db:"row_id"`
	MachineID        string          `db:"machine_id"`
	Timestamp        time.Time       `db:"timestamp"`
	Temperature      float64         `db:"temperature"`
	Vibration        float64         `db:"vibration"`
	Pressure         sql.NullFloat64 `db:"pressure"`
	Humidity         sql.NullFloat64 `db:"humidity"`
	PowerConsumption sql.NullFloat64 `db:"power_consumption"`
	RotationSpeed    sql.NullFloat64 `db:"rotation_speed"`
	Status           string          `db:"status"`
	Location         sql.NullString  `db:"location"`
	Metadata         []byte          `db:"metadata"`
	IngestedAt       time.Time       `db:"ingested_at"`
}

func (row readingRow) toModel() models.Reading {
	r := models.Reading{
		RowID:       row.RowID,
		MachineID:   row.MachineID,
		Timestamp:   row.Timestamp.UTC(),
		Temperature: row.Temperature,
		Vibration:   row.Vibration,
		Status:      models.Status(row.Status),
		IngestedAt:  row.IngestedAt.UTC(),
	}
	if row.Pressure.Valid {
		r.Pressure = &row.Pressure.Float64
	}
	if row.Humidity.Valid {
		r.Humidity = &row.Humidity.Float64
	}
	if row.PowerConsumption.Valid {
		r.PowerConsumption = &row.PowerConsumption.Float64
	}
	if row.RotationSpeed.Valid {
		r.RotationSpeed = &row.RotationSpeed.Float64
	}
	if row.Location.Valid {
		r.Location = row.Location.String
	}
	if len(row.Metadata) > 0 {
		_ = json.Unmarshal(row.Metadata, &r.Metadata)
	}
	return r
}

func (s *PostgresStore) AppendBatch(ctx context.Context, readings []models.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO readings
			(machine_id, timestamp, temperature, vibration, pressure, humidity,
			 power_consumption, rotation_speed, status, location, metadata)
		VALUES (:machine_id, :timestamp, :temperature, :vibration, :pressure, :humidity,
			 :power_consumption, :rotation_speed, :status, :location, :metadata)
	`
	for _, r := range readings {
		params, err := toInsertParams(r)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRejected, err)
		}
		if _, err := tx.NamedExecContext(ctx, query, params); err != nil {
			if isConstraintViolation(err) {
				return fmt.Errorf("%w: %v", ErrRejected, err)
			}
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func toInsertParams(r models.Reading) (map[string]interface{}, error) {
	metadata, err := json.Marshal(r.Metadata)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"machine_id":        r.MachineID,
		"timestamp":         r.Timestamp.UTC(),
		"temperature":       r.Temperature,
		"vibration":         r.Vibration,
		"pressure":          r.Pressure,
		"humidity":          r.Humidity,
		"power_consumption": r.PowerConsumption,
		"rotation_speed":    r.RotationSpeed,
		"status":            string(r.Status),
		"location":          r.Location,
		"metadata":          metadata,
	}, nil
}

func isConstraintViolation(err error) bool {
	// lib/pq surfaces constraint violations with SQLSTATE class 23xxx; we
	// match on the textual code rather than importing pq.Error to keep this
	// check usable against both the postgres and sqlite backends' wrapped
	// errors.
	return strings.Contains(err.Error(), "SQLSTATE 23")
}

func (s *PostgresStore) ScanMachine(ctx context.Context, machineID string, since time.Time, limit int) ([]models.Reading, error) {
	const query = `
		SELECT row_id, machine_id, timestamp, temperature, vibration, pressure, humidity,
		       power_consumption, rotation_speed, status, location, metadata, ingested_at
		FROM readings
		WHERE machine_id = $1 AND timestamp >= $2
		ORDER BY timestamp DESC
		LIMIT $3
	`
	var rows []readingRow
	if err := s.db.SelectContext(ctx, &rows, query, machineID, since.UTC(), limit); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return toModels(rows), nil
}

func (s *PostgresStore) ScanRange(ctx context.Context, start, end time.Time, limit int) ([]models.Reading, error) {
	const query = `
		SELECT row_id, machine_id, timestamp, temperature, vibration, pressure, humidity,
		       power_consumption, rotation_speed, status, location, metadata, ingested_at
		FROM readings
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY timestamp DESC
		LIMIT $3
	`
	var rows []readingRow
	if err := s.db.SelectContext(ctx, &rows, query, start.UTC(), end.UTC(), limit); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return toModels(rows), nil
}

func (s *PostgresStore) ScanStatus(ctx context.Context, status models.Status, limit int) ([]models.Reading, error) {
	const query = `
		SELECT row_id, machine_id, timestamp, temperature, vibration, pressure, humidity,
		       power_consumption, rotation_speed, status, location, metadata, ingested_at
		FROM readings
		WHERE status = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`
	var rows []readingRow
	if err := s.db.SelectContext(ctx, &rows, query, string(status), limit); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return toModels(rows), nil
}

func (s *PostgresStore) ScanAboveThreshold(ctx context.Context, metric string, minValue float64, since time.Time) ([]models.Reading, error) {
	col, err := metricColumn(metric)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT row_id, machine_id, timestamp, temperature, vibration, pressure, humidity,
		       power_consumption, rotation_speed, status, location, metadata, ingested_at
		FROM readings
		WHERE %s >= $1 AND timestamp >= $2
		ORDER BY timestamp DESC
	`, col)
	var rows []readingRow
	if err := s.db.SelectContext(ctx, &rows, query, minValue, since.UTC()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return toModels(rows), nil
}

func (s *PostgresStore) Aggregate(ctx context.Context, machineID, metric string, kind AggregateKind, start, end time.Time) (float64, error) {
	col, err := metricColumn(metric)
	if err != nil {
		return 0, err
	}
	fn, err := aggregateFunc(kind)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`
		SELECT COALESCE(%s(%s), 0)
		FROM readings
		WHERE machine_id = $1 AND timestamp >= $2 AND timestamp <= $3
	`, fn, col)
	var value float64
	if err := s.db.GetContext(ctx, &value, query, machineID, start.UTC(), end.UTC()); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return value, nil
}

func (s *PostgresStore) DropBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM readings WHERE timestamp < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res.RowsAffected()
}

func metricColumn(metric string) (string, error) {
	switch metric {
	case MetricTemperature:
		return "temperature", nil
	case MetricVibration:
		return "vibration", nil
	default:
		return "", fmt.Errorf("store: unknown metric %q", metric)
	}
}

func aggregateFunc(kind AggregateKind) (string, error) {
	switch kind {
	case AggregateMean:
		return "AVG", nil
	case AggregateMax:
		return "MAX", nil
	case AggregateMin:
		return "MIN", nil
	case AggregateCount:
		return "COUNT", nil
	default:
		return "", fmt.Errorf("store: unknown aggregate kind %q", kind)
	}
}

func toModels(rows []readingRow) []models.Reading {
	out := make([]models.Reading, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}
	return out
}
