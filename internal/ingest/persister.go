package ingest

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/telemetry-platform/telemetry/internal/models"
	"github.com/telemetry-platform/telemetry/internal/pkg/logger"
	"github.com/telemetry-platform/telemetry/internal/pkg/metrics"
	"github.com/telemetry-platform/telemetry/internal/store"
)

// Persister is the single flusher that drains the Buffer and batches
// readings into store.AppendBatch calls. One goroutine runs Persister.Run;
// there is no double-buffering — a batch held for retry is not re-enqueued.
type Persister struct {
	Store       store.Store
	BatchMax    int
	BatchLinger time.Duration
	RetryBackoff *Backoff

	// OnPersisted, if set, is called with each reading immediately after a
	// batch containing it is successfully written.
	OnPersisted func(models.Reading)
}

// NewPersister returns a Persister with the given tuning. Its RetryBackoff
// field governs the batch-write retry loop (1s..30s, ±20% jitter).
func NewPersister(st store.Store, batchMax int, batchLinger time.Duration) *Persister {
	return &Persister{
		Store:        st,
		BatchMax:     batchMax,
		BatchLinger:  batchLinger,
		RetryBackoff: NewBackoff(time.Second, 30*time.Second, 0.2),
	}
}

// Run drains buf until ctx is cancelled, flushing batches on size or linger
// triggers. When ctx is cancelled, Run flushes the batch it holds, then
// reads whatever is still queued in the channel without blocking and
// flushes it in batches of up to BatchMax before returning. shutdownDropped
// counts readings still unread in the buffer plus readings in batches
// abandoned because ctx was cancelled during a write retry.
func (p *Persister) Run(ctx context.Context, buf *Buffer) (shutdownDropped int) {
	batch := make([]models.Reading, 0, p.BatchMax)
	timer := time.NewTimer(p.BatchLinger)
	defer timer.Stop()

	abandoned := 0
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if p.writeWithRetry(ctx, batch) {
			abandoned += len(batch)
		}
		batch = make([]models.Reading, 0, p.BatchMax)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			// Drain whatever is still queued without blocking further; this
			// is the "Draining" state's bounded grace window, enforced by
			// the caller's context deadline, not by this loop.
		drain:
			for {
				select {
				case r, ok := <-buf.Chan():
					if !ok {
						break drain
					}
					batch = append(batch, r)
					if len(batch) >= p.BatchMax {
						flush()
					}
				default:
					break drain
				}
			}
			flush()
			return buf.Len() + abandoned

		case r := <-buf.Chan():
			batch = append(batch, r)
			if len(batch) >= p.BatchMax {
				flush()
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(p.BatchLinger)
			}

		case <-timer.C:
			flush()
			timer.Reset(p.BatchLinger)
		}
	}
}

// writeWithRetry writes batch, retrying transient failures until success or
// until ctx is cancelled. It reports true only when it gave up because ctx
// was cancelled; the batch is then not persisted.
func (p *Persister) writeWithRetry(ctx context.Context, batch []models.Reading) (abandoned bool) {
	start := time.Now()
	for {
		err := p.Store.AppendBatch(ctx, batch)
		if err == nil {
			metrics.IngestStoreWriteDurationSeconds.Observe(time.Since(start).Seconds())
			metrics.IngestBatchSizeReadings.Observe(float64(len(batch)))
			metrics.IngestReadingsTotal.WithLabelValues("accepted").Add(float64(len(batch)))
			p.RetryBackoff.Reset()
			if p.OnPersisted != nil {
				for _, r := range batch {
					p.OnPersisted(r)
				}
			}
			return false
		}
		if errors.Is(err, store.ErrRejected) {
			// Malformed row: fatal for this batch, not retried.
			metrics.IngestReadingsTotal.WithLabelValues("rejected_store").Add(float64(len(batch)))
			logger.EventLog(os.Stderr, "error", "", "batch rejected by store", err.Error())
			return false
		}
		// store.ErrUnavailable: retry the same batch, unbounded attempts.
		metrics.IngestStoreWriteRetriesTotal.Inc()
		delay := p.RetryBackoff.Next()
		logger.EventLog(os.Stderr, "warn", "", "batch write failed, retrying", err.Error())
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			// Shutdown grace window expired mid-retry; Run adds the
			// batch to its shutdown-dropped count.
			return true
		}
	}
}
