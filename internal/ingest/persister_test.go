package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/telemetry-platform/telemetry/internal/models"
	"github.com/telemetry-platform/telemetry/internal/store"
)

// fakeStore is a minimal in-memory store.Store for persister tests; only
// AppendBatch is exercised.
type fakeStore struct {
	mu      sync.Mutex
	batches [][]models.Reading
	failN   int // fail the first failN AppendBatch calls with ErrUnavailable
}

func (f *fakeStore) AppendBatch(_ context.Context, readings []models.Reading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failN > 0 {
		f.failN--
		return store.ErrUnavailable
	}
	cp := make([]models.Reading, len(readings))
	copy(cp, readings)
	f.batches = append(f.batches, cp)
	return nil
}

func (f *fakeStore) ScanMachine(context.Context, string, time.Time, int) ([]models.Reading, error) {
	return nil, nil
}
func (f *fakeStore) ScanRange(context.Context, time.Time, time.Time, int) ([]models.Reading, error) {
	return nil, nil
}
func (f *fakeStore) ScanStatus(context.Context, models.Status, int) ([]models.Reading, error) {
	return nil, nil
}
func (f *fakeStore) ScanAboveThreshold(context.Context, string, float64, time.Time) ([]models.Reading, error) {
	return nil, nil
}
func (f *fakeStore) Aggregate(context.Context, string, string, store.AggregateKind, time.Time, time.Time) (float64, error) {
	return 0, nil
}
func (f *fakeStore) DropBefore(context.Context, time.Time) (int64, error) { return 0, nil }
func (f *fakeStore) Close() error                                        { return nil }

func (f *fakeStore) totalBatched() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestPersister_FlushesOnBatchMax(t *testing.T) {
	fs := &fakeStore{}
	p := NewPersister(fs, 2, time.Hour) // linger long enough that only size triggers
	buf := NewBuffer(10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- p.Run(ctx, buf) }()

	r := models.Reading{MachineID: "M001", Timestamp: time.Now()}
	buf.TryPush(r)
	buf.TryPush(r)

	deadline := time.After(time.Second)
	for fs.totalBatched() < 2 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for batch flush")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestPersister_FlushesOnLinger(t *testing.T) {
	fs := &fakeStore{}
	p := NewPersister(fs, 100, 20*time.Millisecond)
	buf := NewBuffer(10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- p.Run(ctx, buf) }()

	r := models.Reading{MachineID: "M001", Timestamp: time.Now()}
	buf.TryPush(r)

	deadline := time.After(time.Second)
	for fs.totalBatched() < 1 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for linger flush")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestPersister_RetriesOnUnavailable(t *testing.T) {
	fs := &fakeStore{failN: 2}
	p := NewPersister(fs, 1, time.Hour)
	p.RetryBackoff = NewBackoff(5*time.Millisecond, 10*time.Millisecond, 0)
	buf := NewBuffer(10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- p.Run(ctx, buf) }()

	r := models.Reading{MachineID: "M001", Timestamp: time.Now()}
	buf.TryPush(r)

	deadline := time.After(time.Second)
	for fs.totalBatched() < 1 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for retried batch to succeed")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestPersister_OnPersistedCalledAfterWrite(t *testing.T) {
	fs := &fakeStore{}
	p := NewPersister(fs, 1, time.Hour)
	var mu sync.Mutex
	var seen []models.Reading
	p.OnPersisted = func(r models.Reading) {
		mu.Lock()
		seen = append(seen, r)
		mu.Unlock()
	}
	buf := NewBuffer(10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- p.Run(ctx, buf) }()

	r := models.Reading{MachineID: "M001", Timestamp: time.Now()}
	buf.TryPush(r)

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for OnPersisted callback")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	<-done
}
