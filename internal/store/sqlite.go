package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/telemetry-platform/telemetry/internal/models"
)

// SQLiteStore implements Store against a single-file SQLite database. It is
// the dev/test backend: no hypertable partitioning or continuous
// aggregates, just a plain indexed table — sufficient for the store
// contract's semantics (§6 treats partitioning as a collaborator detail).
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (and creates, if absent) the database at path and
// ensures the readings table exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: connect sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: single writer, avoid SQLITE_BUSY
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS readings (
	row_id            INTEGER PRIMARY KEY AUTOINCREMENT,
	machine_id        TEXT NOT NULL,
	timestamp         DATETIME NOT NULL,
	temperature       REAL NOT NULL,
	vibration         REAL NOT NULL,
	pressure          REAL,
	humidity          REAL,
	power_consumption REAL,
	rotation_speed    REAL,
	status            TEXT NOT NULL,
	location          TEXT,
	metadata          TEXT,
	ingested_at       DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_readings_machine_ts ON readings (machine_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_readings_ts ON readings (timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_readings_status ON readings (status);
`

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) AppendBatch(ctx context.Context, readings []models.Reading) error {
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
			 power_consumption, rotation_speed, status, location, metadata, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	for _, r := range readings {
		metadata, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRejected, err)
		}
		_, err = tx.ExecContext(ctx, query,
			r.MachineID, r.Timestamp.UTC(), r.Temperature, r.Vibration,
			nullableFloat(r.Pressure), nullableFloat(r.Humidity),
			nullableFloat(r.PowerConsumption), nullableFloat(r.RotationSpeed),
			string(r.Status), r.Location, string(metadata), now,
		)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func (s *SQLiteStore) ScanMachine(ctx context.Context, machineID string, since time.Time, limit int) ([]models.Reading, error) {
	const query = `
		SELECT row_id, machine_id, timestamp, temperature, vibration, pressure, humidity,
		       power_consumption, rotation_speed, status, location, metadata, ingested_at
		FROM readings
		WHERE machine_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC
		LIMIT ?
	`
	return s.scan(ctx, query, machineID, since.UTC(), limit)
}

func (s *SQLiteStore) ScanRange(ctx context.Context, start, end time.Time, limit int) ([]models.Reading, error) {
	const query = `
		SELECT row_id, machine_id, timestamp, temperature, vibration, pressure, humidity,
		       power_consumption, rotation_speed, status, location, metadata, ingested_at
		FROM readings
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp DESC
		LIMIT ?
	`
	return s.scan(ctx, query, start.UTC(), end.UTC(), limit)
}

func (s *SQLiteStore) ScanStatus(ctx context.Context, status models.Status, limit int) ([]models.Reading, error) {
	const query = `
		SELECT row_id, machine_id, timestamp, temperature, vibration, pressure, humidity,
		       power_consumption, rotation_speed, status, location, metadata, ingested_at
		FROM readings
		WHERE status = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`
	return s.scan(ctx, query, string(status), limit)
}

func (s *SQLiteStore) ScanAboveThreshold(ctx context.Context, metric string, minValue float64, since time.Time) ([]models.Reading, error) {
	col, err := metricColumn(metric)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT row_id, machine_id, timestamp, temperature, vibration, pressure, humidity,
		       power_consumption, rotation_speed, status, location, metadata, ingested_at
		FROM readings
		WHERE %s >= ? AND timestamp >= ?
		ORDER BY timestamp DESC
	`, col)
	return s.scan(ctx, query, minValue, since.UTC())
}

func (s *SQLiteStore) scan(ctx context.Context, query string, args ...interface{}) ([]models.Reading, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []models.Reading
	for rows.Next() {
		var row readingRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		out = append(out, row.toModel())
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Aggregate(ctx context.Context, machineID, metric string, kind AggregateKind, start, end time.Time) (float64, error) {
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
		WHERE machine_id = ? AND timestamp >= ? AND timestamp <= ?
	`, fn, col)
	var value float64
	row := s.db.QueryRowContext(ctx, query, machineID, start.UTC(), end.UTC())
	if err := row.Scan(&value); err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return value, nil
}

func (s *SQLiteStore) DropBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM readings WHERE timestamp < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res.RowsAffected()
}
