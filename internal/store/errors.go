package store

import "errors"

// ErrUnavailable is a transient store failure; callers should retry with
// backoff. It never indicates a malformed row.
var ErrUnavailable = errors.New("store: unavailable")

// ErrRejected is a non-retryable failure — the row itself does not satisfy
// the store's schema (e.g. a constraint violation). The caller must not
// retry the same row.
var ErrRejected = errors.New("store: rejected")
