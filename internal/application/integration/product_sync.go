package integration

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/integration"
	"github.com/ledgerlink/backend/internal/domain/shared"
)

// ProductSyncService links commerce SKUs to accounting inventory items.
// It is the single-record sync behind the product bulk endpoint.
type ProductSyncService struct {
	accounting integration.AccountingGateway
	mappings   integration.MappingRepository
	logger     *zap.Logger
}

// NewProductSyncService creates a new ProductSyncService
func NewProductSyncService(accounting integration.AccountingGateway, mappings integration.MappingRepository, logger *zap.Logger) *ProductSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductSyncService{accounting: accounting, mappings: mappings, logger: logger}
}

// SyncProduct resolves each SKU of a commerce product against the
// accounting item catalog and persists the item mappings. The product
// counts as synced when at least one new SKU was linked; SKUs with no
// matching item are left unmapped for the order pipeline to report.
func (s *ProductSyncService) SyncProduct(ctx context.Context, product integration.SourceProduct) (BulkItemStatus, error) {
	linked := 0
	for _, sku := range product.SKUs {
		if sku == "" {
			continue
		}
		if _, err := s.mappings.GetBySourceID(ctx, integration.EntityTypeItem, sku); err == nil {
			continue
		} else if !errors.Is(err, integration.ErrMappingNotFound) {
			return BulkItemSkipped, err
		}

		item, err := s.accounting.FindItemByReference(ctx, sku)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				s.logger.Debug("no accounting item for sku",
					zap.String("product_id", product.ID), zap.String("sku", sku))
				continue
			}
			return BulkItemSkipped, fmt.Errorf("find item for sku %q: %w", sku, err)
		}

		mapping, err := integration.NewEntityMapping(integration.EntityTypeItem, sku, item.ID)
		if err != nil {
			return BulkItemSkipped, err
		}
		mapping.ParentID = product.ID
		if err := s.mappings.Save(ctx, mapping); err != nil {
			return BulkItemSkipped, fmt.Errorf("save item mapping: %w", err)
		}
		linked++
	}
	if linked == 0 {
		return BulkItemSkipped, nil
	}
	return BulkItemSynced, nil
}
