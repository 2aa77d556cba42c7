package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ledgerlink/backend/internal/domain/integration"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/infrastructure/persistence/models"
)

// GormSyncedOrderRepository implements SyncedOrderRepository using GORM
type GormSyncedOrderRepository struct {
	db *gorm.DB
}

// NewGormSyncedOrderRepository creates a new GormSyncedOrderRepository
func NewGormSyncedOrderRepository(db *gorm.DB) *GormSyncedOrderRepository {
	return &GormSyncedOrderRepository{db: db}
}

// Save upserts the denormalized order row keyed by order id. Replays of
// the same order overwrite the previous snapshot.
func (r *GormSyncedOrderRepository) Save(ctx context.Context, order *integration.SyncedOrder) error {
	model := &models.SyncedOrderModel{}
	model.FromDomain(order)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "order_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"order_name", "customer_email", "customer_name",
				"currency", "total", "financial_status", "synced_at",
			}),
		}).
		Create(model).Error
}

// FindByOrderID returns the stored snapshot for an order
func (r *GormSyncedOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*integration.SyncedOrder, error) {
	var model models.SyncedOrderModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormSyncedOrderRepository implements SyncedOrderRepository
var _ integration.SyncedOrderRepository = (*GormSyncedOrderRepository)(nil)
