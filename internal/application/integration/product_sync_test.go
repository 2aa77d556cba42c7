package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/integration"
	"github.com/ledgerlink/backend/internal/domain/shared"
)

func TestProductSyncService_SyncProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("links every unmapped SKU with a matching item", func(t *testing.T) {
		accounting := new(MockAccountingGateway)
		mappings := new(MockMappingRepository)
		svc := NewProductSyncService(accounting, mappings, zap.NewNop())

		mappings.On("GetBySourceID", mock.Anything, integration.EntityTypeItem, "SKU-1").
			Return(nil, integration.ErrMappingNotFound)
		mappings.On("GetBySourceID", mock.Anything, integration.EntityTypeItem, "SKU-2").
			Return(nil, integration.ErrMappingNotFound)
		accounting.On("FindItemByReference", mock.Anything, "SKU-1").
			Return(&integration.Item{ID: "item-1"}, nil)
		accounting.On("FindItemByReference", mock.Anything, "SKU-2").
			Return(&integration.Item{ID: "item-2"}, nil)
		mappings.On("Save", mock.Anything, mock.MatchedBy(func(m *integration.EntityMapping) bool {
			return m.EntityType == integration.EntityTypeItem && m.ParentID == "prod-1"
		})).Return(nil).Times(2)

		status, err := svc.SyncProduct(ctx, integration.SourceProduct{
			ID: "prod-1", SKUs: []string{"SKU-1", "SKU-2"},
		})

		require.NoError(t, err)
		assert.Equal(t, BulkItemSynced, status)
		mappings.AssertExpectations(t)
	})

	t.Run("skips when every SKU is mapped or unmatched", func(t *testing.T) {
		accounting := new(MockAccountingGateway)
		mappings := new(MockMappingRepository)
		svc := NewProductSyncService(accounting, mappings, zap.NewNop())

		existing, err := integration.NewEntityMapping(integration.EntityTypeItem, "SKU-1", "item-1")
		require.NoError(t, err)
		mappings.On("GetBySourceID", mock.Anything, integration.EntityTypeItem, "SKU-1").
			Return(existing, nil)
		mappings.On("GetBySourceID", mock.Anything, integration.EntityTypeItem, "SKU-2").
			Return(nil, integration.ErrMappingNotFound)
		accounting.On("FindItemByReference", mock.Anything, "SKU-2").
			Return(nil, shared.ErrNotFound)

		status, err := svc.SyncProduct(ctx, integration.SourceProduct{
			ID: "prod-1", SKUs: []string{"SKU-1", "SKU-2"},
		})

		require.NoError(t, err)
		assert.Equal(t, BulkItemSkipped, status)
		mappings.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("empty SKUs are ignored", func(t *testing.T) {
		svc := NewProductSyncService(new(MockAccountingGateway), new(MockMappingRepository), zap.NewNop())

		status, err := svc.SyncProduct(ctx, integration.SourceProduct{ID: "prod-1", SKUs: []string{""}})

		require.NoError(t, err)
		assert.Equal(t, BulkItemSkipped, status)
	})

	t.Run("reports lookup failures", func(t *testing.T) {
		accounting := new(MockAccountingGateway)
		mappings := new(MockMappingRepository)
		svc := NewProductSyncService(accounting, mappings, zap.NewNop())

		mappings.On("GetBySourceID", mock.Anything, integration.EntityTypeItem, "SKU-1").
			Return(nil, integration.ErrMappingNotFound)
		accounting.On("FindItemByReference", mock.Anything, "SKU-1").
			Return(nil, assert.AnError)

		status, err := svc.SyncProduct(ctx, integration.SourceProduct{ID: "prod-1", SKUs: []string{"SKU-1"}})

		assert.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, BulkItemSkipped, status)
	})
}
