package store

import (
	"context"
	"testing"
	"time"

	"github.com/telemetry-platform/telemetry/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReading(machineID string, ts time.Time, temp float64) models.Reading {
	return models.Reading{
		MachineID:   machineID,
		Timestamp:   ts,
		Temperature: temp,
		Vibration:   0.4,
		Status:      models.StatusRunning,
	}
}

func TestAppendBatch_ThenScanMachine(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	r := sampleReading("M001", ts, 75.0)
	if err := s.AppendBatch(ctx, []models.Reading{r}); err != nil {
		t.Fatalf("AppendBatch failed: %v", err)
	}

	got, err := s.ScanMachine(ctx, "M001", ts.Add(-time.Millisecond), 10)
	if err != nil {
		t.Fatalf("ScanMachine failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(got))
	}
	if got[0].Temperature != 75.0 {
		t.Errorf("expected temperature 75.0, got %v", got[0].Temperature)
	}
	if got[0].MachineID != "M001" {
		t.Errorf("expected machine M001, got %s", got[0].MachineID)
	}
}

func TestScanMachine_OrderedDescending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	readings := []models.Reading{
		sampleReading("M001", base, 70.0),
		sampleReading("M001", base.Add(time.Hour), 71.0),
		sampleReading("M001", base.Add(2*time.Hour), 72.0),
	}
	if err := s.AppendBatch(ctx, readings); err != nil {
		t.Fatalf("AppendBatch failed: %v", err)
	}

	got, err := s.ScanMachine(ctx, "M001", base.Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("ScanMachine failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(got))
	}
	for i := 0; i < len(got)-1; i++ {
		if got[i].Timestamp.Before(got[i+1].Timestamp) {
			t.Error("expected readings ordered descending by timestamp")
		}
	}
}

func TestAppendBatch_AllowsDuplicateIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r := sampleReading("M001", ts, 75.0)

	if err := s.AppendBatch(ctx, []models.Reading{r}); err != nil {
		t.Fatalf("first AppendBatch failed: %v", err)
	}
	if err := s.AppendBatch(ctx, []models.Reading{r}); err != nil {
		t.Fatalf("second AppendBatch (duplicate) failed: %v", err)
	}

	got, err := s.ScanMachine(ctx, "M001", ts.Add(-time.Millisecond), 10)
	if err != nil {
		t.Fatalf("ScanMachine failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 rows (at-least-once, no dedup), got %d", len(got))
	}
}

func TestScanAboveThreshold(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	readings := []models.Reading{
		sampleReading("M001", base, 50.0),
		sampleReading("M001", base.Add(time.Hour), 95.0),
		sampleReading("M002", base.Add(2*time.Hour), 101.0),
	}
	if err := s.AppendBatch(ctx, readings); err != nil {
		t.Fatalf("AppendBatch failed: %v", err)
	}

	got, err := s.ScanAboveThreshold(ctx, MetricTemperature, 90.0, base.Add(-time.Minute))
	if err != nil {
		t.Fatalf("ScanAboveThreshold failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 readings above threshold, got %d", len(got))
	}
}

func TestAggregate_Mean(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	readings := []models.Reading{
		sampleReading("M001", base, 70.0),
		sampleReading("M001", base.Add(time.Hour), 80.0),
	}
	if err := s.AppendBatch(ctx, readings); err != nil {
		t.Fatalf("AppendBatch failed: %v", err)
	}

	mean, err := s.Aggregate(ctx, "M001", MetricTemperature, AggregateMean, base.Add(-time.Minute), base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if mean != 75.0 {
		t.Errorf("expected mean 75.0, got %v", mean)
	}
}

func TestDropBefore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	readings := []models.Reading{
		sampleReading("M001", base, 70.0),
		sampleReading("M001", base.Add(24*time.Hour), 71.0),
	}
	if err := s.AppendBatch(ctx, readings); err != nil {
		t.Fatalf("AppendBatch failed: %v", err)
	}

	dropped, err := s.DropBefore(ctx, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("DropBefore failed: %v", err)
	}
	if dropped != 1 {
		t.Errorf("expected 1 row dropped, got %d", dropped)
	}

	remaining, err := s.ScanMachine(ctx, "M001", base.Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("ScanMachine failed: %v", err)
	}
	if len(remaining) != 1 {
		t.Errorf("expected 1 remaining row, got %d", len(remaining))
	}
}
