package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ledgerlink/backend/internal/domain/integration"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/infrastructure/persistence/models"
)

// GormTransferDecisionRepository implements TransferDecisionRepository using GORM
type GormTransferDecisionRepository struct {
	db *gorm.DB
}

// NewGormTransferDecisionRepository creates a new GormTransferDecisionRepository
func NewGormTransferDecisionRepository(db *gorm.DB) *GormTransferDecisionRepository {
	return &GormTransferDecisionRepository{db: db}
}

// Save appends a decision row. Decisions are never updated in place so
// the table doubles as a per-order decision history.
func (r *GormTransferDecisionRepository) Save(ctx context.Context, decision *integration.TransferDecision) error {
	model := &models.TransferDecisionModel{}
	model.FromDomain(decision)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindLatestByOrder returns the most recent decision for an order
func (r *GormTransferDecisionRepository) FindLatestByOrder(ctx context.Context, orderID string) (*integration.TransferDecision, error) {
	var model models.TransferDecisionModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormTransferDecisionRepository implements TransferDecisionRepository
var _ integration.TransferDecisionRepository = (*GormTransferDecisionRepository)(nil)
