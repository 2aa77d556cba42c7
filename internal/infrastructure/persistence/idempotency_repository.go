package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/infrastructure/persistence/models"
)

// GormIdempotencyGuard implements IdempotencyGuard backed by a single
// idempotency_keys table. Winner selection relies on the database: the
// insert races through ON CONFLICT DO NOTHING and failed keys are
// reacquired with a conditional UPDATE, so concurrent workers on the
// same key resolve to exactly one owner.
type GormIdempotencyGuard struct {
	db *gorm.DB
}

// NewGormIdempotencyGuard creates a new GormIdempotencyGuard
func NewGormIdempotencyGuard(db *gorm.DB) *GormIdempotencyGuard {
	return &GormIdempotencyGuard{db: db}
}

// Acquire attempts to take ownership of the key.
func (g *GormIdempotencyGuard) Acquire(ctx context.Context, key string) (shared.Acquisition, error) {
	model := &models.IdempotencyKeyModel{
		Key:       key,
		Status:    shared.IdempotencyStatusProcessing,
		UpdatedAt: time.Now(),
	}

	result := g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return shared.Acquisition{}, fmt.Errorf("insert idempotency key: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return shared.Acquisition{Acquired: true}, nil
	}

	// Row already exists. A failed key may be flipped back to processing;
	// the WHERE clause makes the flip atomic under concurrency.
	flip := g.db.WithContext(ctx).
		Model(&models.IdempotencyKeyModel{}).
		Where("key = ? AND status = ?", key, shared.IdempotencyStatusFailed).
		Updates(map[string]interface{}{
			"status":     shared.IdempotencyStatusProcessing,
			"last_error": "",
			"updated_at": time.Now(),
		})
	if flip.Error != nil {
		return shared.Acquisition{}, fmt.Errorf("reacquire idempotency key: %w", flip.Error)
	}
	if flip.RowsAffected > 0 {
		return shared.Acquisition{Acquired: true}, nil
	}

	var existing models.IdempotencyKeyModel
	if err := g.db.WithContext(ctx).Where("key = ?", key).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Row vanished between insert and read; treat as in flight
			// and let the caller skip.
			return shared.Acquisition{Acquired: false, Status: shared.IdempotencyStatusProcessing}, nil
		}
		return shared.Acquisition{}, fmt.Errorf("load idempotency key: %w", err)
	}
	return shared.Acquisition{Acquired: false, Status: existing.Status}, nil
}

// Mark records the terminal outcome of a guarded operation.
func (g *GormIdempotencyGuard) Mark(ctx context.Context, key string, status shared.IdempotencyStatus, cause error) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid idempotency status %q: %w", status, shared.ErrInvalidInput)
	}
	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}
	result := g.db.WithContext(ctx).
		Model(&models.IdempotencyKeyModel{}).
		Where("key = ?", key).
		Updates(map[string]interface{}{
			"status":     status,
			"last_error": lastError,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("mark idempotency key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("idempotency key %q: %w", key, shared.ErrNotFound)
	}
	return nil
}

// Get returns the stored key record, mainly for diagnostics.
func (g *GormIdempotencyGuard) Get(ctx context.Context, key string) (*shared.IdempotencyKey, error) {
	var model models.IdempotencyKeyModel
	if err := g.db.WithContext(ctx).Where("key = ?", key).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormIdempotencyGuard implements IdempotencyGuard
var _ shared.IdempotencyGuard = (*GormIdempotencyGuard)(nil)
