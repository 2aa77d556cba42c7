package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/integration"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/interfaces/http/dto"
)

// MockOrderSyncer is a mock implementation of OrderSyncer
type MockOrderSyncer struct {
	mock.Mock
}

func (m *MockOrderSyncer) ProcessByID(ctx context.Context, orderID string) (*integration.SyncOutcome, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncOutcome), args.Error(1)
}

// MockEventDedupStore is a mock implementation of shared.EventDedupStore
type MockEventDedupStore struct {
	mock.Mock
}

func (m *MockEventDedupStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockEventDedupStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEventDedupStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newWebhookRouter(syncer OrderSyncer, dedup shared.EventDedupStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewWebhookHandler(syncer, dedup, time.Hour, zap.NewNop())
	h.RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func postWebhook(t *testing.T, engine *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)
	return w
}

func TestWebhookHandler_HandleOrderEvent(t *testing.T) {
	t.Run("fresh event runs the pipeline", func(t *testing.T) {
		syncer := new(MockOrderSyncer)
		dedup := new(MockEventDedupStore)
		dedup.On("MarkProcessed", mock.Anything, "evt-1", time.Hour).Return(true, nil)
		syncer.On("ProcessByID", mock.Anything, "1001").
			Return(&integration.SyncOutcome{Handled: true, ContactID: "contact-9"}, nil)

		w := postWebhook(t, newWebhookRouter(syncer, dedup),
			`{"event_id":"evt-1","order_id":"1001","topic":"orders/paid"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, true, data["handled"])
		assert.Equal(t, "contact-9", data["contact_id"])
		syncer.AssertExpectations(t)
	})

	t.Run("duplicate delivery is acknowledged without running", func(t *testing.T) {
		syncer := new(MockOrderSyncer)
		dedup := new(MockEventDedupStore)
		dedup.On("MarkProcessed", mock.Anything, "evt-1", time.Hour).Return(false, nil)

		w := postWebhook(t, newWebhookRouter(syncer, dedup),
			`{"event_id":"evt-1","order_id":"1001"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, true, data["duplicate"])
		syncer.AssertNotCalled(t, "ProcessByID", mock.Anything, mock.Anything)
	})

	t.Run("missing event id falls back to order key", func(t *testing.T) {
		syncer := new(MockOrderSyncer)
		dedup := new(MockEventDedupStore)
		dedup.On("MarkProcessed", mock.Anything, "order:1001", time.Hour).Return(true, nil)
		syncer.On("ProcessByID", mock.Anything, "1001").
			Return(integration.NotHandled(integration.ReasonSyncDisabled), nil)

		w := postWebhook(t, newWebhookRouter(syncer, dedup), `{"order_id":"1001"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		dedup.AssertExpectations(t)
	})

	t.Run("dedup outage does not drop the event", func(t *testing.T) {
		syncer := new(MockOrderSyncer)
		dedup := new(MockEventDedupStore)
		dedup.On("MarkProcessed", mock.Anything, "evt-2", time.Hour).
			Return(false, assert.AnError)
		syncer.On("ProcessByID", mock.Anything, "1002").
			Return(&integration.SyncOutcome{Handled: true}, nil)

		w := postWebhook(t, newWebhookRouter(syncer, dedup),
			`{"event_id":"evt-2","order_id":"1002"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		syncer.AssertExpectations(t)
	})

	t.Run("rejects payload without order id", func(t *testing.T) {
		syncer := new(MockOrderSyncer)
		dedup := new(MockEventDedupStore)

		w := postWebhook(t, newWebhookRouter(syncer, dedup), `{"event_id":"evt-3"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown order maps to 404", func(t *testing.T) {
		syncer := new(MockOrderSyncer)
		dedup := new(MockEventDedupStore)
		dedup.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
		syncer.On("ProcessByID", mock.Anything, "gone").Return(nil, shared.ErrNotFound)

		w := postWebhook(t, newWebhookRouter(syncer, dedup), `{"order_id":"gone"}`)

		assert.Equal(t, http.StatusNotFound, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	})
}
