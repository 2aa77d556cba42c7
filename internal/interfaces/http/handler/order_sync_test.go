package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/integration"
	"github.com/ledgerlink/backend/internal/interfaces/http/dto"
)

func newOrderSyncRouter(syncer OrderSyncer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewOrderSyncHandler(syncer, zap.NewNop())
	h.RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func TestOrderSyncHandler_SyncOrder(t *testing.T) {
	t.Run("returns the pipeline outcome", func(t *testing.T) {
		syncer := new(MockOrderSyncer)
		syncer.On("ProcessByID", mock.Anything, "1001").
			Return(&integration.SyncOutcome{
				Handled: true,
				Invoice: &integration.InvoiceRef{DestinationID: "inv-1", Number: "FV-1-42"},
			}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/orders/1001", nil)
		newOrderSyncRouter(syncer).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		invoice := data["invoice"].(map[string]interface{})
		assert.Equal(t, "FV-1-42", invoice["number"])
	})

	t.Run("soft failures still return 200", func(t *testing.T) {
		syncer := new(MockOrderSyncer)
		syncer.On("ProcessByID", mock.Anything, "1002").
			Return(integration.NotHandled(integration.ReasonMissingCustomerEmail), nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/orders/1002", nil)
		newOrderSyncRouter(syncer).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, false, data["handled"])
		assert.Equal(t, "missing_customer_email", data["reason"])
	})

	t.Run("upstream throttling maps to 429", func(t *testing.T) {
		syncer := new(MockOrderSyncer)
		syncer.On("ProcessByID", mock.Anything, "1003").
			Return(nil, integration.ErrRateLimited)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/orders/1003", nil)
		newOrderSyncRouter(syncer).ServeHTTP(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeRateLimited, resp.Error.Code)
	})

	t.Run("unexpected errors map to 500", func(t *testing.T) {
		syncer := new(MockOrderSyncer)
		syncer.On("ProcessByID", mock.Anything, "1004").
			Return(nil, assert.AnError)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/orders/1004", nil)
		newOrderSyncRouter(syncer).ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
