package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerlink/backend/internal/domain/integration"
	"github.com/ledgerlink/backend/internal/infrastructure/persistence/models"
)

// GormSyncLogRepository implements AuditSink by appending rows to the
// sync_logs table.
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Record appends one audit entry
func (r *GormSyncLogRepository) Record(ctx context.Context, entry integration.AuditEntry) error {
	model := &models.SyncLogModel{
		ID:        uuid.New(),
		Entity:    entry.Entity,
		Direction: entry.Direction,
		Status:    entry.Status,
		Message:   entry.Message,
		Request:   entry.Request,
		Response:  entry.Response,
		CreatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// ListByEntity returns recent audit rows for an entity, newest first.
func (r *GormSyncLogRepository) ListByEntity(ctx context.Context, entity string, limit int) ([]*models.SyncLogModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []*models.SyncLogModel
	if err := r.db.WithContext(ctx).
		Where("entity = ?", entity).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Ensure GormSyncLogRepository implements AuditSink
var _ integration.AuditSink = (*GormSyncLogRepository)(nil)
