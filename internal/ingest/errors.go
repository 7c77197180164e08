package ingest

import "errors"

// Reject reasons for a single incoming message. These map 1:1 to the error
// kinds table: each is counted and logged, never retried — a rejected
// message is simply dropped (the broker will redeliver on reconnect if it
// was never acked, but acking happens at enqueue, not at validation).
var (
	ErrMalformedPayload  = errors.New("ingest: malformed payload")
	ErrInvalidReading    = errors.New("ingest: invalid reading")
	ErrQualityCheckFailed = errors.New("ingest: quality check failed")
	ErrIdentityMismatch  = errors.New("ingest: machine id mismatch between topic and payload")
)
