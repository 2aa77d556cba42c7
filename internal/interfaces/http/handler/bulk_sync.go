package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appsync "github.com/ledgerlink/backend/internal/application/integration"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/interfaces/http/dto"
)

// defaultBulkSince bounds an order bulk run when the caller does not
// supply a starting point.
const defaultBulkSince = 30 * 24 * time.Hour

// streamWriteWindow is how long a single NDJSON write may take before
// the connection is considered dead. Each emitted event pushes the
// deadline forward so a long run is never cut off by the server's
// global write timeout while the client is still reading.
const streamWriteWindow = 60 * time.Second

// BulkService runs the streaming bulk syncs
type BulkService interface {
	RunOrderBulk(ctx context.Context, jobID string, since time.Time, emit appsync.EmitFunc) (appsync.BulkStats, error)
	RunContactBulk(ctx context.Context, jobID string, emit appsync.EmitFunc) (appsync.BulkStats, error)
	RunProductBulk(ctx context.Context, jobID string, emit appsync.EmitFunc) (appsync.BulkStats, error)
	CancelJob(jobID string) bool
}

// BulkSyncHandler exposes the streaming bulk endpoints. Responses are
// newline-delimited JSON events (progress at a bounded cadence, then
// exactly one terminal done/canceled/error event). A client disconnect
// cancels the run through the request context.
type BulkSyncHandler struct {
	BaseHandler
	bulk   BulkService
	logger *zap.Logger
}

// NewBulkSyncHandler creates a new BulkSyncHandler
func NewBulkSyncHandler(bulk BulkService, logger *zap.Logger) *BulkSyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkSyncHandler{bulk: bulk, logger: logger}
}

// RegisterRoutes registers bulk sync routes
func (h *BulkSyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sync/orders/bulk", h.BulkSyncOrders)
	rg.POST("/sync/contacts/bulk", h.BulkSyncContacts)
	rg.POST("/sync/products/bulk", h.BulkSyncProducts)
	rg.DELETE("/sync/jobs/:id", h.CancelJob)
}

// BulkSyncOrders handles POST /sync/orders/bulk
func (h *BulkSyncHandler) BulkSyncOrders(c *gin.Context) {
	req, ok := h.bindBulkRequest(c)
	if !ok {
		return
	}
	since := time.Now().Add(-defaultBulkSince)
	if req.Since != nil {
		since = *req.Since
	}
	h.stream(c, req.JobID, func(ctx context.Context, jobID string, emit appsync.EmitFunc) error {
		_, err := h.bulk.RunOrderBulk(ctx, jobID, since, emit)
		return err
	})
}

// BulkSyncContacts handles POST /sync/contacts/bulk
func (h *BulkSyncHandler) BulkSyncContacts(c *gin.Context) {
	req, ok := h.bindBulkRequest(c)
	if !ok {
		return
	}
	h.stream(c, req.JobID, func(ctx context.Context, jobID string, emit appsync.EmitFunc) error {
		_, err := h.bulk.RunContactBulk(ctx, jobID, emit)
		return err
	})
}

// BulkSyncProducts handles POST /sync/products/bulk
func (h *BulkSyncHandler) BulkSyncProducts(c *gin.Context) {
	req, ok := h.bindBulkRequest(c)
	if !ok {
		return
	}
	h.stream(c, req.JobID, func(ctx context.Context, jobID string, emit appsync.EmitFunc) error {
		_, err := h.bulk.RunProductBulk(ctx, jobID, emit)
		return err
	})
}

// CancelJob handles DELETE /sync/jobs/:id
func (h *BulkSyncHandler) CancelJob(c *gin.Context) {
	jobID := c.Param("id")
	canceled := h.bulk.CancelJob(jobID)
	if !canceled {
		h.NotFound(c, "no running job with id "+jobID)
		return
	}
	h.Success(c, dto.CancelJobResponse{JobID: jobID, Canceled: true})
}

// bindBulkRequest parses the optional request body. An empty body is a
// valid request with server-assigned defaults.
func (h *BulkSyncHandler) bindBulkRequest(c *gin.Context) (dto.BulkSyncRequest, bool) {
	var req dto.BulkSyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return req, false
		}
	}
	return req, true
}

// stream runs one bulk job and writes its events as NDJSON lines.
// Events arrive serialized from the runner, so the encoder needs no
// extra locking. Once the first line is written the response status is
// committed; failures after that point surface as the terminal error
// event rather than an HTTP status.
func (h *BulkSyncHandler) stream(c *gin.Context, jobID string, run func(ctx context.Context, jobID string, emit appsync.EmitFunc) error) {
	if jobID == "" {
		jobID = uuid.New().String()
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("X-Sync-Job-ID", jobID)

	// Bulk runs outlive the server's write timeout; the deadline is
	// re-armed per event instead. Writers without deadline support
	// (test recorders) report ErrNotSupported, which is fine to drop.
	deadlines := http.NewResponseController(c.Writer)
	_ = deadlines.SetWriteDeadline(time.Now().Add(streamWriteWindow))

	flusher, _ := c.Writer.(http.Flusher)
	encoder := json.NewEncoder(c.Writer)
	emitted := false
	emit := func(event appsync.BulkEvent) {
		_ = deadlines.SetWriteDeadline(time.Now().Add(streamWriteWindow))
		if err := encoder.Encode(event); err != nil {
			h.logger.Debug("bulk event write failed, client likely gone",
				zap.String("job_id", jobID),
				zap.Error(err),
			)
			return
		}
		emitted = true
		if flusher != nil {
			flusher.Flush()
		}
	}

	err := run(c.Request.Context(), jobID, emit)
	switch {
	case err == nil, errors.Is(err, appsync.ErrJobCanceled):
		// Terminal event already emitted.
	case errors.Is(err, shared.ErrAlreadyExists) && !emitted:
		h.Conflict(c, "job "+jobID+" is already running")
	case !emitted:
		h.HandleError(c, err)
	default:
		h.logger.Error("bulk run failed mid-stream",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
	}
}
