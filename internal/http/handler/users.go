package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/proxyfleet/console-server/internal/domain/user"
	"github.com/proxyfleet/console-server/internal/http/httperr"
	"github.com/proxyfleet/console-server/internal/service"
	"go.uber.org/zap"
)

type UsersHandler struct {
	log       *zap.Logger
	usersvc   *service.UserService
	summaries *service.QuotaSummaryService
}

func NewUsersHandler(log *zap.Logger, usersvc *service.UserService, summaries *service.QuotaSummaryService) *UsersHandler {
	return &UsersHandler{log.Named("users-handler"), usersvc, summaries}
}

func (h *UsersHandler) CreateUser(c *gin.Context) {
	var req user.Resource
	if err := bind(c.Request, &req); err != nil {
		httperr.AbortErr(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	view, err := h.usersvc.Create(c.Request.Context(), &req)
	if err != nil {
		httperr.AbortErr(c, http.StatusInternalServerError, "internal", err)
		return
	}

	h.summaries.Invalidate()
	c.Header("Location", fmt.Sprintf("/admin/users/%d", view.ID))
	c.JSON(http.StatusCreated, view)
}

func (h *UsersHandler) GetUserList(c *gin.Context) {
	c.JSON(http.StatusOK, h.usersvc.GetList())
}

func (h *UsersHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	view, err := h.usersvc.GetOne(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			httperr.AbortErr(c, http.StatusNotFound, "not_found", err)
		} else {
			httperr.AbortErr(c, http.StatusInternalServerError, "internal", err)
		}
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UsersHandler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.usersvc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			httperr.AbortErr(c, http.StatusNotFound, "not_found", err)
		} else {
			httperr.AbortErr(c, http.StatusInternalServerError, "internal", err)
		}
		return
	}

	h.summaries.Invalidate()
	c.Status(http.StatusNoContent)
}

// pathID parses the :id route param; writes the 400 envelope itself.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httperr.Abort(c, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}
