package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/proxyfleet/console-server/internal/domain/node"
	"github.com/proxyfleet/console-server/internal/http/httperr"
	"github.com/proxyfleet/console-server/internal/service"
	"go.uber.org/zap"
)

type NodesHandler struct {
	log       *zap.Logger
	nodesvc   *service.NodeService
	summaries *service.QuotaSummaryService
}

func NewNodesHandler(log *zap.Logger, nodesvc *service.NodeService, summaries *service.QuotaSummaryService) *NodesHandler {
	return &NodesHandler{log.Named("nodes-handler"), nodesvc, summaries}
}

func (h *NodesHandler) CreateNode(c *gin.Context) {
	var req node.Resource
	if err := bind(c.Request, &req); err != nil {
		httperr.AbortErr(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	view, err := h.nodesvc.Create(c.Request.Context(), &req)
	if err != nil {
		httperr.AbortErr(c, http.StatusInternalServerError, "internal", err)
		return
	}

	h.summaries.Invalidate()
	c.Header("Location", fmt.Sprintf("/admin/nodes/%d", view.ID))
	c.JSON(http.StatusCreated, view)
}

func (h *NodesHandler) GetNodeList(c *gin.Context) {
	c.JSON(http.StatusOK, h.nodesvc.GetList())
}

func (h *NodesHandler) DeleteNode(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.nodesvc.Delete(c.Request.Context(), id); err != nil {
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
