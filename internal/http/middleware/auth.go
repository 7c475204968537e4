package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/proxyfleet/console-server/internal/http/httperr"
	"github.com/proxyfleet/console-server/internal/service"
)

// RequireAdminToken blocks access unless the request carries the configured
// admin bearer token. Missing and invalid tokens are distinguished so the
// console can tell "log in first" apart from "token revoked".
func RequireAdminToken(authsvc *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			httperr.Abort(c, http.StatusUnauthorized, "missing_admin_token", "admin token required")
			return
		}
		if !authsvc.Verify(token) {
			httperr.Abort(c, http.StatusUnauthorized, "invalid_admin_token", "admin token not recognized")
			return
		}
		c.Next()
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}
