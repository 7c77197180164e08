package rest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/telemetry-platform/telemetry/internal/auth"
	"github.com/telemetry-platform/telemetry/internal/config"
	"github.com/telemetry-platform/telemetry/internal/models"
	"github.com/telemetry-platform/telemetry/internal/store"
)

// memStore is an in-memory store.Store test double for REST handler tests.
type memStore struct {
	mu       sync.Mutex
	readings []models.Reading
	rejectAt func(models.Reading) error // optional: force AppendBatch failure
}

func (m *memStore) AppendBatch(_ context.Context, readings []models.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range readings {
		if m.rejectAt != nil {
			if err := m.rejectAt(r); err != nil {
				return err
			}
		}
		m.readings = append(m.readings, r)
	}
	return nil
}

func (m *memStore) sorted() []models.Reading {
	out := make([]models.Reading, len(m.readings))
	copy(out, m.readings)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func (m *memStore) ScanMachine(_ context.Context, machineID string, since time.Time, limit int) ([]models.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reading
	for _, r := range m.sorted() {
		if r.MachineID == machineID && !r.Timestamp.Before(since) {
			out = append(out, r)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) ScanRange(_ context.Context, start, end time.Time, limit int) ([]models.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reading
	for _, r := range m.sorted() {
		if !r.Timestamp.Before(start) && !r.Timestamp.After(end) {
			out = append(out, r)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) ScanStatus(_ context.Context, status models.Status, limit int) ([]models.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reading
	for _, r := range m.sorted() {
		if r.Status == status {
			out = append(out, r)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) ScanAboveThreshold(_ context.Context, metric string, minValue float64, since time.Time) ([]models.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reading
	for _, r := range m.sorted() {
		if r.Timestamp.Before(since) {
			continue
		}
		value := r.Temperature
		if metric == store.MetricVibration {
			value = r.Vibration
		}
		if value >= minValue {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) Aggregate(_ context.Context, machineID, metric string, kind store.AggregateKind, start, end time.Time) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var values []float64
	for _, r := range m.readings {
		if r.MachineID != machineID || r.Timestamp.Before(start) || r.Timestamp.After(end) {
			continue
		}
		if metric == store.MetricVibration {
			values = append(values, r.Vibration)
		} else {
			values = append(values, r.Temperature)
		}
	}
	if kind == store.AggregateCount {
		return float64(len(values)), nil
	}
	if len(values) == 0 {
		return 0, nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}

func (m *memStore) DropBefore(context.Context, time.Time) (int64, error) { return 0, nil }
func (m *memStore) Close() error                                        { return nil }

const testAuthSecret = "a-test-signing-secret-that-is-at-least-32-bytes"

func testConfig() *config.Config {
	return &config.Config{
		AuthSecret:     testAuthSecret,
		AuthTokenTTLMs: int((24 * time.Hour).Milliseconds()),
	}
}

func testIdentity() auth.StaticIdentityProvider {
	hash, err := auth.HashPassword("correct-horse")
	if err != nil {
		panic(fmt.Sprintf("hash password: %v", err))
	}
	return auth.StaticIdentityProvider{"operator": hash}
}
