package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ledgerlink/backend/internal/interfaces/http/dto"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping() error
}

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// RegisterRoutes registers health routes at the engine root
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}

// Health handles GET /health. The process is alive as long as it
// answers; a failing database ping degrades the report and the status
// code so load balancers stop routing traffic here.
func (h *HealthHandler) Health(c *gin.Context) {
	resp := dto.HealthResponse{Status: "ok", Database: "up"}
	status := http.StatusOK

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			resp.Status = "degraded"
			resp.Database = "down"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, resp)
}
