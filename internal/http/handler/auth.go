package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/proxyfleet/console-server/internal/http/httperr"
	"github.com/proxyfleet/console-server/internal/service"
	"go.uber.org/zap"
)

type AuthHandler struct {
	log     *zap.Logger
	authsvc *service.AuthService
}

func NewAuthHandler(log *zap.Logger, authsvc *service.AuthService) *AuthHandler {
	return &AuthHandler{log.Named("auth-handler"), authsvc}
}

type verifyTokenResource struct {
	Token string `json:"token" validate:"required"`
}

// VerifyToken lets the console check a token before storing it client-side.
// Public route: the caller does not have a working token yet.
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	var req verifyTokenResource
	if err := bind(c.Request, &req); err != nil {
		httperr.AbortErr(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	if !h.authsvc.Verify(req.Token) {
		httperr.Abort(c, http.StatusUnauthorized, "invalid_admin_token", "admin token not recognized")
		return
	}
	c.Status(http.StatusNoContent)
}
