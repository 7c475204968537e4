package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/proxyfleet/console-server/internal/service"
)

func protectedRouter(t *testing.T, token string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authsvc, err := service.NewAuthService(zap.NewNop(), token)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/admin/ping", RequireAdminToken(authsvc), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func doAuthed(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errCode(t *testing.T, body []byte) string {
	t.Helper()
	var envelope struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope.Code
}

func TestRequireAdminToken(t *testing.T) {
	r := protectedRouter(t, "s3cret")

	t.Run("missing header", func(t *testing.T) {
		w := doAuthed(r, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "missing_admin_token", errCode(t, w.Body.Bytes()))
	})

	t.Run("not a bearer scheme", func(t *testing.T) {
		w := doAuthed(r, "Basic czNjcmV0")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "missing_admin_token", errCode(t, w.Body.Bytes()))
	})

	t.Run("wrong token", func(t *testing.T) {
		w := doAuthed(r, "Bearer nope")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid_admin_token", errCode(t, w.Body.Bytes()))
	})

	t.Run("valid token", func(t *testing.T) {
		w := doAuthed(r, "Bearer s3cret")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("scheme is case-insensitive", func(t *testing.T) {
		w := doAuthed(r, "bearer s3cret")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
