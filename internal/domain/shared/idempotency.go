package shared

import (
	"context"
	"time"
)

// IdempotencyStatus is the lifecycle status of a guarded operation.
type IdempotencyStatus string

const (
	// IdempotencyStatusProcessing indicates the operation is in flight.
	IdempotencyStatusProcessing IdempotencyStatus = "processing"
	// IdempotencyStatusCompleted indicates the operation finished successfully.
	IdempotencyStatusCompleted IdempotencyStatus = "completed"
	// IdempotencyStatusFailed indicates the operation failed and may be retried.
	IdempotencyStatusFailed IdempotencyStatus = "failed"
)

// IsValid returns true if the status is valid
func (s IdempotencyStatus) IsValid() bool {
	switch s {
	case IdempotencyStatusProcessing, IdempotencyStatusCompleted, IdempotencyStatusFailed:
		return true
	default:
		return false
	}
}

// IdempotencyKey is the durable record behind a guarded operation.
// Exactly one row exists per key; only a failed row may transition back
// to processing.
type IdempotencyKey struct {
	Key       string
	Status    IdempotencyStatus
	LastError string
	UpdatedAt time.Time
}

// Acquisition is the outcome of attempting to acquire an idempotency key.
type Acquisition struct {
	// Acquired is true when the caller now owns the key and must execute
	// the guarded operation.
	Acquired bool
	// Status is the key status observed when Acquired is false
	// (processing or completed).
	Status IdempotencyStatus
}

// IdempotencyGuard provides key-scoped at-most-once execution.
//
// Acquire inserts the key with status processing if absent. If a row
// already exists with status processing or completed the caller loses
// (Acquired=false, Status set). A failed row is atomically flipped back
// to processing and the caller wins.
//
// Mark records the terminal outcome and must be called exactly once per
// acquired key, on both success and failure paths.
type IdempotencyGuard interface {
	Acquire(ctx context.Context, key string) (Acquisition, error)
	Mark(ctx context.Context, key string, status IdempotencyStatus, cause error) error
}

// EventDedupStore stores processed event IDs to suppress duplicate
// webhook deliveries. Unlike IdempotencyGuard it carries no lifecycle,
// only a TTL-bounded seen set.
type EventDedupStore interface {
	// MarkProcessed marks an event as processed with a TTL.
	// Returns true if the event was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if an event has already been processed
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}
