package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corsRouter(t *testing.T, origins []string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler, err := CORS(origins)
	require.NoError(t, err)

	router := gin.New()
	router.Use(handler)
	router.GET("/api/v1/catalog", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.PUT("/api/v1/sessions/:id/selection", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func corsRequest(router *gin.Engine, method, path, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if method == http.MethodOptions {
		req.Header.Set("Access-Control-Request-Method", http.MethodPut)
		req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	router := corsRouter(t, []string{"http://localhost:3000/"})

	t.Run("allowed origin", func(t *testing.T) {
		w := corsRequest(router, http.MethodGet, "/api/v1/catalog", "http://localhost:3000")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		w := corsRequest(router, http.MethodOptions, "/api/v1/sessions/s-1/selection", "http://localhost:3000")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PUT")
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("other origin", func(t *testing.T) {
		w := corsRequest(router, http.MethodGet, "/api/v1/catalog", "https://evil.example")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

		w = corsRequest(router, http.MethodOptions, "/api/v1/sessions/s-1/selection", "https://evil.example")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("same origin request", func(t *testing.T) {
		w := corsRequest(router, http.MethodGet, "/api/v1/catalog", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCORS_Wildcard(t *testing.T) {
	router := corsRouter(t, []string{"*"})

	w := corsRequest(router, http.MethodGet, "/api/v1/catalog", "https://dashboard.example")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_NoOrigins(t *testing.T) {
	router := corsRouter(t, nil)

	w := corsRequest(router, http.MethodGet, "/api/v1/catalog", "https://dashboard.example")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_InvalidOrigin(t *testing.T) {
	_, err := CORS([]string{"localhost:3000"})
	assert.ErrorContains(t, err, "invalid allowed origins")
}
