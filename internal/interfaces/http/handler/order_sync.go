package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrderSyncHandler exposes the manual per-order retry endpoint. It is
// the operator's tool for replaying an order after fixing whatever made
// it fail: the pipeline re-fetches the order and re-acquires only the
// failed step keys.
type OrderSyncHandler struct {
	BaseHandler
	syncer OrderSyncer
	logger *zap.Logger
}

// NewOrderSyncHandler creates a new OrderSyncHandler
func NewOrderSyncHandler(syncer OrderSyncer, logger *zap.Logger) *OrderSyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderSyncHandler{syncer: syncer, logger: logger}
}

// RegisterRoutes registers order sync routes
func (h *OrderSyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sync/orders/:id", h.SyncOrder)
}

// SyncOrder handles POST /sync/orders/:id
func (h *OrderSyncHandler) SyncOrder(c *gin.Context) {
	orderID := c.Param("id")
	if orderID == "" {
		h.BadRequest(c, "order id is required")
		return
	}

	outcome, err := h.syncer.ProcessByID(c.Request.Context(), orderID)
	if err != nil {
		h.logger.Error("manual order sync failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		h.HandleError(c, err)
		return
	}
	h.Success(c, outcome)
}
