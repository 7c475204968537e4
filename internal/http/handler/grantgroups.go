package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/proxyfleet/console-server/internal/domain/grantgroup"
	"github.com/proxyfleet/console-server/internal/http/httperr"
	"github.com/proxyfleet/console-server/internal/service"
	"go.uber.org/zap"
)

type GrantGroupsHandler struct {
	log      *zap.Logger
	groupsvc *service.GrantGroupService
}

func NewGrantGroupsHandler(log *zap.Logger, groupsvc *service.GrantGroupService) *GrantGroupsHandler {
	return &GrantGroupsHandler{log.Named("grant-groups-handler"), groupsvc}
}

func (h *GrantGroupsHandler) CreateGrantGroup(c *gin.Context) {
	var req grantgroup.Resource
	if err := bind(c.Request, &req); err != nil {
		httperr.AbortErr(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	view, err := h.groupsvc.Create(c.Request.Context(), &req)
	if err != nil {
		httperr.AbortErr(c, http.StatusInternalServerError, "internal", err)
		return
	}

	c.Header("Location", fmt.Sprintf("/admin/grant-groups/%d", view.ID))
	c.JSON(http.StatusCreated, view)
}

func (h *GrantGroupsHandler) GetGrantGroupList(c *gin.Context) {
	c.JSON(http.StatusOK, h.groupsvc.GetList())
}

func (h *GrantGroupsHandler) DeleteGrantGroup(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.groupsvc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			httperr.AbortErr(c, http.StatusNotFound, "not_found", err)
		} else {
			httperr.AbortErr(c, http.StatusInternalServerError, "internal", err)
		}
		return
	}
	c.Status(http.StatusNoContent)
}
