package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlink/backend/internal/interfaces/http/dto"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping() error { return s.err }

func newHealthRouter(db Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewHealthHandler(db).RegisterRoutes(engine.Group(""))
	return engine
}

func TestHealthHandler_Health(t *testing.T) {
	t.Run("reports ok when the database answers", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		newHealthRouter(stubPinger{}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "up", resp.Database)
	})

	t.Run("degrades when the database ping fails", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		newHealthRouter(stubPinger{err: assert.AnError}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp dto.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "down", resp.Database)
	})
}
