package integration

import (
	"context"
	"time"

	"github.com/ledgerlink/backend/internal/domain/integration"
)

// BulkSyncService exposes the streaming bulk syncs for orders, contacts
// and products, all built on the same BulkRunner contract.
type BulkSyncService struct {
	runner   *BulkRunner
	registry *JobRegistry
	pipeline *OrderPipeline
	contacts *ContactSyncService
	products *ProductSyncService
	commerce integration.CommerceGateway
	pageSize int
}

// NewBulkSyncService creates a new BulkSyncService
func NewBulkSyncService(
	runner *BulkRunner,
	registry *JobRegistry,
	pipeline *OrderPipeline,
	contacts *ContactSyncService,
	products *ProductSyncService,
	commerce integration.CommerceGateway,
	pageSize int,
) *BulkSyncService {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &BulkSyncService{
		runner:   runner,
		registry: registry,
		pipeline: pipeline,
		contacts: contacts,
		products: products,
		commerce: commerce,
		pageSize: pageSize,
	}
}

// RunOrderBulk replays every order updated since the given time through
// the order pipeline.
func (s *BulkSyncService) RunOrderBulk(ctx context.Context, jobID string, since time.Time, emit EmitFunc) (BulkStats, error) {
	page := func(ctx context.Context, cursor string) ([]integration.SourceOrder, string, error) {
		p, err := s.commerce.ListOrders(ctx, integration.OrderQuery{
			UpdatedSince: since,
			Cursor:       cursor,
			PageSize:     s.pageSize,
		})
		if err != nil {
			return nil, "", err
		}
		return p.Orders, p.NextCursor, nil
	}
	syncOne := func(ctx context.Context, order integration.SourceOrder) (BulkItemStatus, error) {
		outcome, err := s.pipeline.Process(ctx, &order)
		if err != nil {
			return BulkItemSkipped, err
		}
		if !outcome.Handled {
			return BulkItemSkipped, nil
		}
		return BulkItemSynced, nil
	}
	return RunBulk(ctx, s.runner, jobID, page, syncOne, emit)
}

// RunContactBulk backfills accounting contacts from the commerce
// customer list.
func (s *BulkSyncService) RunContactBulk(ctx context.Context, jobID string, emit EmitFunc) (BulkStats, error) {
	page := func(ctx context.Context, cursor string) ([]integration.OrderCustomer, string, error) {
		p, err := s.commerce.ListCustomers(ctx, cursor, s.pageSize)
		if err != nil {
			return nil, "", err
		}
		return p.Customers, p.NextCursor, nil
	}
	return RunBulk(ctx, s.runner, jobID, page, s.contacts.SyncContact, emit)
}

// RunProductBulk backfills SKU-to-item mappings from the commerce
// product catalog.
func (s *BulkSyncService) RunProductBulk(ctx context.Context, jobID string, emit EmitFunc) (BulkStats, error) {
	page := func(ctx context.Context, cursor string) ([]integration.SourceProduct, string, error) {
		p, err := s.commerce.ListProducts(ctx, cursor, s.pageSize)
		if err != nil {
			return nil, "", err
		}
		return p.Products, p.NextCursor, nil
	}
	return RunBulk(ctx, s.runner, jobID, page, s.products.SyncProduct, emit)
}

// CancelJob requests cooperative cancellation of a running bulk job.
func (s *BulkSyncService) CancelJob(jobID string) bool {
	return s.registry.Cancel(jobID)
}
