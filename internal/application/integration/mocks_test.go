package integration

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/ledgerlink/backend/internal/domain/integration"
	"github.com/ledgerlink/backend/internal/domain/shared"
)

// MockAccountingGateway is a mock implementation of integration.AccountingGateway
type MockAccountingGateway struct {
	mock.Mock
}

func (m *MockAccountingGateway) GetItem(ctx context.Context, id string) (*integration.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Item), args.Error(1)
}

func (m *MockAccountingGateway) FindItemByReference(ctx context.Context, reference string) (*integration.Item, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Item), args.Error(1)
}

func (m *MockAccountingGateway) FindContactByEmail(ctx context.Context, email string) (*integration.Contact, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Contact), args.Error(1)
}

func (m *MockAccountingGateway) CreateContact(ctx context.Context, input integration.ContactInput) (*integration.Contact, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Contact), args.Error(1)
}

func (m *MockAccountingGateway) UpdateContact(ctx context.Context, id string, input integration.ContactInput) (*integration.Contact, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Contact), args.Error(1)
}

func (m *MockAccountingGateway) CreateInvoice(ctx context.Context, input integration.InvoiceInput) (*integration.Invoice, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Invoice), args.Error(1)
}

func (m *MockAccountingGateway) CreatePayment(ctx context.Context, input integration.PaymentInput) (*integration.Payment, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Payment), args.Error(1)
}

func (m *MockAccountingGateway) CreateInventoryAdjustment(ctx context.Context, input integration.AdjustmentInput) (*integration.Adjustment, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Adjustment), args.Error(1)
}

func (m *MockAccountingGateway) CreateInventoryTransfer(ctx context.Context, input integration.TransferInput) (*integration.Transfer, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Transfer), args.Error(1)
}

func (m *MockAccountingGateway) ListWarehouses(ctx context.Context) ([]integration.Warehouse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.Warehouse), args.Error(1)
}

// MockCommerceGateway is a mock implementation of integration.CommerceGateway
type MockCommerceGateway struct {
	mock.Mock
}

func (m *MockCommerceGateway) GetOrderByID(ctx context.Context, id string) (*integration.SourceOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SourceOrder), args.Error(1)
}

func (m *MockCommerceGateway) ListOrders(ctx context.Context, query integration.OrderQuery) (*integration.OrderPage, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.OrderPage), args.Error(1)
}

func (m *MockCommerceGateway) ListCustomers(ctx context.Context, cursor string, pageSize int) (*integration.CustomerPage, error) {
	args := m.Called(ctx, cursor, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.CustomerPage), args.Error(1)
}

func (m *MockCommerceGateway) ListProducts(ctx context.Context, cursor string, pageSize int) (*integration.ProductPage, error) {
	args := m.Called(ctx, cursor, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ProductPage), args.Error(1)
}

func (m *MockCommerceGateway) AddOrderTag(ctx context.Context, orderID, tag string) error {
	args := m.Called(ctx, orderID, tag)
	return args.Error(0)
}

// MockMappingRepository is a mock implementation of integration.MappingRepository
type MockMappingRepository struct {
	mock.Mock
}

func (m *MockMappingRepository) GetBySourceID(ctx context.Context, entityType integration.EntityType, sourceID string) (*integration.EntityMapping, error) {
	args := m.Called(ctx, entityType, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.EntityMapping), args.Error(1)
}

func (m *MockMappingRepository) GetByDestinationID(ctx context.Context, entityType integration.EntityType, destinationID string) (*integration.EntityMapping, error) {
	args := m.Called(ctx, entityType, destinationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.EntityMapping), args.Error(1)
}

func (m *MockMappingRepository) Save(ctx context.Context, mapping *integration.EntityMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockMappingRepository) UpdateMetadata(ctx context.Context, entityType integration.EntityType, sourceID string, metadata map[string]string) error {
	args := m.Called(ctx, entityType, sourceID, metadata)
	return args.Error(0)
}

// MockTransferDecisionRepository is a mock implementation of integration.TransferDecisionRepository
type MockTransferDecisionRepository struct {
	mock.Mock
}

func (m *MockTransferDecisionRepository) Save(ctx context.Context, decision *integration.TransferDecision) error {
	args := m.Called(ctx, decision)
	return args.Error(0)
}

func (m *MockTransferDecisionRepository) FindLatestByOrder(ctx context.Context, orderID string) (*integration.TransferDecision, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.TransferDecision), args.Error(1)
}

// MockSyncedOrderRepository is a mock implementation of integration.SyncedOrderRepository
type MockSyncedOrderRepository struct {
	mock.Mock
}

func (m *MockSyncedOrderRepository) Save(ctx context.Context, order *integration.SyncedOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockSyncedOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*integration.SyncedOrder, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncedOrder), args.Error(1)
}

// MockAuditSink is a mock implementation of integration.AuditSink
type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) Record(ctx context.Context, entry integration.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// stubConfigResolver returns a fixed config for every store.
type stubConfigResolver struct {
	cfg *integration.StoreConfig
	err error
}

func (s stubConfigResolver) Resolve(ctx context.Context, storeID string) (*integration.StoreConfig, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.cfg, nil
}

// memGuard is a minimal in-process shared.IdempotencyGuard for tests.
type memGuard struct {
	mu   sync.Mutex
	keys map[string]shared.IdempotencyStatus
}

func newMemGuard() *memGuard {
	return &memGuard{keys: make(map[string]shared.IdempotencyStatus)}
}

func (g *memGuard) Acquire(ctx context.Context, key string) (shared.Acquisition, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	status, exists := g.keys[key]
	if !exists || status == shared.IdempotencyStatusFailed {
		g.keys[key] = shared.IdempotencyStatusProcessing
		return shared.Acquisition{Acquired: true}, nil
	}
	return shared.Acquisition{Acquired: false, Status: status}, nil
}

func (g *memGuard) Mark(ctx context.Context, key string, status shared.IdempotencyStatus, cause error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keys[key] = status
	return nil
}

func (g *memGuard) status(key string) shared.IdempotencyStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.keys[key]
}

// set seeds a key status directly.
func (g *memGuard) set(key string, status shared.IdempotencyStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keys[key] = status
}
