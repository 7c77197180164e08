package ingest

import (
	"context"
	"os"
	"time"

	"github.com/telemetry-platform/telemetry/internal/models"
	"github.com/telemetry-platform/telemetry/internal/pkg/logger"
	"github.com/telemetry-platform/telemetry/internal/pkg/metrics"
	"github.com/telemetry-platform/telemetry/internal/store"
)

// EngineConfig bundles the tuning needed to construct an Engine.
type EngineConfig struct {
	Subscriber  SubscriberConfig
	BufferCap   int
	BatchMax    int
	BatchLinger time.Duration
}

// Engine wires the subscriber, validator, buffer, and persister into the
// pipeline described in §4.B: subscriber -> validator -> buffer -> persister.
// The hook registered with SetOnPersisted, if any, is invoked with every
// accepted reading immediately after a successful AppendBatch call — this is the hook the WebSocket hub
// uses to broadcast freshly persisted readings to dashboard clients.
type Engine struct {
	subscriber *Subscriber
	buffer     *Buffer
	persister  *Persister
	validator  *Validator
}

// SetOnPersisted registers fn to be called with every reading immediately
// after it is durably persisted.
func (e *Engine) SetOnPersisted(fn func(models.Reading)) {
	e.persister.OnPersisted = fn
}

// NewEngine constructs an Engine against st using cfg. It does not connect
// to the broker; call Run to start the pipeline.
func NewEngine(cfg EngineConfig, st store.Store) *Engine {
	e := &Engine{
		buffer:    NewBuffer(cfg.BufferCap),
		persister: NewPersister(st, cfg.BatchMax, cfg.BatchLinger),
		validator: NewValidator(),
	}
	e.subscriber = NewSubscriber(cfg.Subscriber, e.onMessage)
	return e
}

// onMessage is the subscriber callback: parse, validate, and buffer a raw
// MQTT payload. Every branch here (parse error, validation failure, buffer
// full) is an independent rejection path so the per-kind counters in §7
// stay accurate.
func (e *Engine) onMessage(topicMachineID string, payload []byte) {
	r, err := models.ParseReadingJSON(payload)
	if err != nil {
		metrics.IngestReadingsTotal.WithLabelValues("rejected_malformed").Inc()
		logger.EventLog(os.Stderr, "debug", topicMachineID, "malformed payload", err.Error())
		return
	}

	if err := CheckIdentity(topicMachineID, r.MachineID); err != nil {
		metrics.IngestReadingsTotal.WithLabelValues("rejected_identity_mismatch").Inc()
		logger.EventLog(os.Stderr, "warn", r.MachineID, "identity mismatch", err.Error())
		return
	}

	now := time.Now().UTC()
	if err := e.validator.Validate(r, now); err != nil {
		outcome := "rejected_invalid"
		if err == ErrQualityCheckFailed {
			outcome = "rejected_quality"
		}
		metrics.IngestReadingsTotal.WithLabelValues(outcome).Inc()
		logger.EventLog(os.Stderr, "warn", r.MachineID, "reading rejected", err.Error())
		return
	}

	e.buffer.TryPush(r)
}

// Run connects the subscriber and blocks the persister loop until ctx is
// cancelled. On cancellation it disconnects the subscriber and lets the
// persister keep flushing for drainGrace before returning the count of
// readings it could not persist in time ("shutdown_dropped").
func (e *Engine) Run(ctx context.Context, drainGrace time.Duration) (shutdownDropped int, err error) {
	if err := e.subscriber.Connect(); err != nil {
		return 0, err
	}

	// The persister's own ctx is cancelled drainGrace after the parent ctx
	// (which stops the subscriber), so it keeps flushing during the grace
	// window; the window starts at cancellation, not at Run.
	persisterCtx, persisterCancel := context.WithCancel(context.Background())
	defer persisterCancel()
	go func() {
		<-ctx.Done()
		e.subscriber.Disconnect(250 * time.Millisecond)
		time.Sleep(drainGrace)
		persisterCancel()
	}()

	shutdownDropped = e.persister.Run(persisterCtx, e.buffer)
	return shutdownDropped, nil
}

// State returns the subscriber's current connection state.
func (e *Engine) State() State { return e.subscriber.State() }

// BufferDepth returns the number of readings currently queued for persistence.
func (e *Engine) BufferDepth() int { return e.buffer.Len() }
