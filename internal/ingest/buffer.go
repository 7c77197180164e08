package ingest

import (
	"sync/atomic"

	"github.com/telemetry-platform/telemetry/internal/models"
	"github.com/telemetry-platform/telemetry/internal/pkg/metrics"
)

// Buffer is the bounded FIFO between the subscriber(s) and the persister.
// It is backed by a channel so multiple subscriber goroutines may send
// concurrently (multi-producer, single-consumer) while preserving FIFO
// order per-sender.
//
// Overflow policy is drop-new: when the channel is full, TryPush drops the
// incoming reading and increments the overflow counter rather than
// blocking the subscriber task. The broker will redeliver on reconnect
// (at-least-once), so recency is sacrificed for bounded memory.
type Buffer struct {
	ch      chan models.Reading
	dropped int64
}

// NewBuffer returns a Buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{ch: make(chan models.Reading, capacity)}
}

// TryPush enqueues r without blocking. Returns false (and increments the
// overflow counter) if the buffer is full.
func (b *Buffer) TryPush(r models.Reading) bool {
	select {
	case b.ch <- r:
		metrics.IngestBufferDepth.Set(float64(len(b.ch)))
		return true
	default:
		atomic.AddInt64(&b.dropped, 1)
		metrics.IngestBufferOverflowTotal.Inc()
		return false
	}
}

// Chan exposes the underlying channel for the persister to range over.
func (b *Buffer) Chan() <-chan models.Reading {
	return b.ch
}

// Len reports the current number of buffered readings.
func (b *Buffer) Len() int {
	return len(b.ch)
}

// Dropped reports the cumulative number of readings dropped due to overflow.
func (b *Buffer) Dropped() int64 {
	return atomic.LoadInt64(&b.dropped)
}

// Close signals no further sends will occur, allowing a draining consumer
// to observe channel closure once it has emptied. Callers must ensure all
// producers have stopped before calling Close.
func (b *Buffer) Close() {
	close(b.ch)
}
