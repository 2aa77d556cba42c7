package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

// InMemoryIdempotencyGuard implements shared.IdempotencyGuard with an
// in-process map. Suitable for single-instance deployments and tests;
// multi-instance deployments use the database-backed guard so concurrent
// triggers on different processes still serialize.
type InMemoryIdempotencyGuard struct {
	mu   sync.Mutex
	keys map[string]*shared.IdempotencyKey
}

// NewInMemoryIdempotencyGuard creates a new in-memory idempotency guard
func NewInMemoryIdempotencyGuard() *InMemoryIdempotencyGuard {
	return &InMemoryIdempotencyGuard{keys: make(map[string]*shared.IdempotencyKey)}
}

// Acquire inserts the key as processing if absent, reacquires failed
// keys, and loses against processing or completed keys.
func (g *InMemoryIdempotencyGuard) Acquire(ctx context.Context, key string) (shared.Acquisition, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	row, exists := g.keys[key]
	if !exists {
		g.keys[key] = &shared.IdempotencyKey{
			Key:       key,
			Status:    shared.IdempotencyStatusProcessing,
			UpdatedAt: time.Now(),
		}
		return shared.Acquisition{Acquired: true}, nil
	}
	if row.Status == shared.IdempotencyStatusFailed {
		row.Status = shared.IdempotencyStatusProcessing
		row.UpdatedAt = time.Now()
		return shared.Acquisition{Acquired: true}, nil
	}
	return shared.Acquisition{Acquired: false, Status: row.Status}, nil
}

// Mark records the outcome of a guarded operation.
func (g *InMemoryIdempotencyGuard) Mark(ctx context.Context, key string, status shared.IdempotencyStatus, cause error) error {
	if !status.IsValid() {
		return shared.ErrInvalidInput
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	row, exists := g.keys[key]
	if !exists {
		row = &shared.IdempotencyKey{Key: key}
		g.keys[key] = row
	}
	row.Status = status
	row.LastError = ""
	if cause != nil {
		row.LastError = cause.Error()
	}
	row.UpdatedAt = time.Now()
	return nil
}

// Status returns the current status of a key (for tests/monitoring).
func (g *InMemoryIdempotencyGuard) Status(key string) (shared.IdempotencyStatus, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	row, ok := g.keys[key]
	if !ok {
		return "", false
	}
	return row.Status, true
}

// Ensure InMemoryIdempotencyGuard implements IdempotencyGuard
var _ shared.IdempotencyGuard = (*InMemoryIdempotencyGuard)(nil)
