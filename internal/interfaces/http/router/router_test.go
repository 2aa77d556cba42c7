package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type pingRegistrar struct{}

func (pingRegistrar) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
}

func TestRouter_Setup(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("mounts registrars under the API version", func(t *testing.T) {
		r := NewRouter(gin.New())
		r.Register(pingRegistrar{})
		r.Setup()

		w := httptest.NewRecorder()
		r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("honors a custom API version", func(t *testing.T) {
		r := NewRouter(gin.New(), WithAPIVersion("v2"))
		r.Register(pingRegistrar{})
		r.Setup()

		w := httptest.NewRecorder()
		r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("root registrars bypass the version prefix", func(t *testing.T) {
		r := NewRouter(gin.New())
		r.RegisterRoot(pingRegistrar{})
		r.Setup()

		w := httptest.NewRecorder()
		r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
