package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionRouter(am *AuthMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/sessions/:id/state", am.RequireSession(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"session_id": c.GetString(SessionIDKey)})
	})
	return router
}

func TestAuthMiddleware_GenerateAndValidate(t *testing.T) {
	am := NewAuthMiddleware("secret")

	token, err := am.GenerateToken("s-1", time.Hour)
	require.NoError(t, err)

	claims, err := am.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "s-1", claims.SessionID)
	assert.Equal(t, "s-1", claims.Subject)

	_, err = NewAuthMiddleware("other").ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthMiddleware_RejectsOtherAlgorithms(t *testing.T) {
	am := NewAuthMiddleware("secret")
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &SessionClaims{SessionID: "s-1"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = am.ValidateToken(signed)
	assert.Error(t, err)
}

func TestAuthMiddleware_RequireSession(t *testing.T) {
	am := NewAuthMiddleware("secret")
	router := newSessionRouter(am)

	valid, err := am.GenerateToken("s-1", time.Hour)
	require.NoError(t, err)
	expired, err := am.GenerateToken("s-1", -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"valid token", "/sessions/s-1/state", "Bearer " + valid, http.StatusOK, `"session_id":"s-1"`},
		{"lower-case scheme", "/sessions/s-1/state", "bearer " + valid, http.StatusOK, `"session_id":"s-1"`},
		{"missing header", "/sessions/s-1/state", "", http.StatusUnauthorized, "Authorization header required"},
		{"bad format", "/sessions/s-1/state", "Token " + valid, http.StatusUnauthorized, "Authorization header required"},
		{"garbage token", "/sessions/s-1/state", "Bearer abc.def.ghi", http.StatusUnauthorized, "Invalid token"},
		{"expired token", "/sessions/s-1/state", "Bearer " + expired, http.StatusUnauthorized, "Token expired"},
		{"other session", "/sessions/s-2/state", "Bearer " + valid, http.StatusForbidden, `"code":"forbidden"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}
