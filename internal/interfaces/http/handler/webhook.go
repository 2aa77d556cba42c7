package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/integration"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/interfaces/http/dto"
)

// OrderSyncer runs one order through the sync pipeline by its platform id.
type OrderSyncer interface {
	ProcessByID(ctx context.Context, orderID string) (*integration.SyncOutcome, error)
}

// WebhookHandler receives inbound order events from the commerce
// platform. Redeliveries of the same event are suppressed through the
// dedup store before the pipeline runs; the pipeline's own idempotency
// keys cover anything that slips past the TTL window.
type WebhookHandler struct {
	BaseHandler
	syncer   OrderSyncer
	dedup    shared.EventDedupStore
	dedupTTL time.Duration
	logger   *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(syncer OrderSyncer, dedup shared.EventDedupStore, dedupTTL time.Duration, logger *zap.Logger) *WebhookHandler {
	if dedupTTL <= 0 {
		dedupTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		syncer:   syncer,
		dedup:    dedup,
		dedupTTL: dedupTTL,
		logger:   logger,
	}
}

// RegisterRoutes registers webhook routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/orders", h.HandleOrderEvent)
}

// HandleOrderEvent handles POST /webhooks/orders
func (h *WebhookHandler) HandleOrderEvent(c *gin.Context) {
	var req dto.OrderWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	fresh, err := h.dedup.MarkProcessed(c.Request.Context(), req.DedupKey(), h.dedupTTL)
	if err != nil {
		// A dedup store outage must not drop order events; fall through
		// to the pipeline, whose step keys still prevent double writes.
		h.logger.Warn("webhook dedup store unavailable",
			zap.String("event_id", req.EventID),
			zap.Error(err),
		)
		fresh = true
	}
	if !fresh {
		h.logger.Debug("duplicate webhook delivery suppressed",
			zap.String("event_id", req.EventID),
			zap.String("order_id", req.OrderID),
		)
		h.Success(c, dto.WebhookAck{Duplicate: true})
		return
	}

	outcome, err := h.syncer.ProcessByID(c.Request.Context(), req.OrderID)
	if err != nil {
		h.logger.Error("webhook order sync failed",
			zap.String("order_id", req.OrderID),
			zap.Error(err),
		)
		h.HandleError(c, err)
		return
	}
	h.Success(c, outcome)
}
