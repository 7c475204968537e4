package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/proxyfleet/console-server/internal/domain/endpoint"
	"github.com/proxyfleet/console-server/internal/http/httperr"
	"github.com/proxyfleet/console-server/internal/service"
	"go.uber.org/zap"
)

type EndpointsHandler struct {
	log   *zap.Logger
	epsvc *service.EndpointService
}

func NewEndpointsHandler(log *zap.Logger, epsvc *service.EndpointService) *EndpointsHandler {
	return &EndpointsHandler{log.Named("endpoints-handler"), epsvc}
}

// endpointResource mirrors the console form: port arrives as the raw text
// field and the Reality block only for the Reality kind. Field-level rules
// beyond shape live in endpoint.BuildCreateRequest.
type endpointResource struct {
	Kind    string           `json:"kind" validate:"required"`
	NodeID  int64            `json:"node_id" validate:"required,gt=0"`
	Port    string           `json:"port" validate:"required"`
	Reality *realityResource `json:"reality"`
}

type realityResource struct {
	ServerNames []string `json:"server_names"`
	Fingerprint string   `json:"fingerprint"`
}

func (r *endpointResource) draft() *endpoint.Draft {
	d := &endpoint.Draft{
		Kind:   endpoint.Kind(r.Kind),
		NodeID: r.NodeID,
		Port:   r.Port,
	}
	if r.Reality != nil {
		d.Reality = &endpoint.RealityDraft{
			ServerNames: append(make([]string, 0, len(r.Reality.ServerNames)), r.Reality.ServerNames...),
			Fingerprint: r.Reality.Fingerprint,
		}
	}
	return d
}

func (h *EndpointsHandler) CreateEndpoint(c *gin.Context) {
	var req endpointResource
	if err := bind(c.Request, &req); err != nil {
		httperr.AbortErr(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	view, err := h.epsvc.Provision(c.Request.Context(), req.draft())
	if err != nil {
		h.abortProvisionErr(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/admin/endpoints/%d", view.EndpointID))
	c.JSON(http.StatusCreated, view)
}

func (h *EndpointsHandler) GetEndpointList(c *gin.Context) {
	c.JSON(http.StatusOK, h.epsvc.GetList())
}

func (h *EndpointsHandler) GetEndpoint(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	view, err := h.epsvc.GetOne(id)
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

// abortProvisionErr maps provisioning failures onto the envelope. Draft
// validation stays 400 with a rule-specific code so the form can highlight
// the offending field; agent failures are 502 and leave no record behind.
func (h *EndpointsHandler) abortProvisionErr(c *gin.Context, err error) {
	var nameErr *endpoint.InvalidServerNameError

	switch {
	case errors.Is(err, endpoint.ErrInvalidPort):
		httperr.AbortErr(c, http.StatusBadRequest, "invalid_port", err)
	case errors.Is(err, endpoint.ErrMissingServerName):
		httperr.AbortErr(c, http.StatusBadRequest, "missing_server_name", err)
	case errors.As(err, &nameErr):
		httperr.AbortErr(c, http.StatusBadRequest, "invalid_server_name", err)
	case errors.Is(err, endpoint.ErrUnknownKind):
		httperr.AbortErr(c, http.StatusBadRequest, "unknown_kind", err)
	case errors.Is(err, service.ErrNotFound):
		httperr.AbortErr(c, http.StatusNotFound, "node_not_found", err)
	case errors.Is(err, service.ErrAgentPush):
		httperr.AbortErr(c, http.StatusBadGateway, "node_agent_error", err)
	default:
		httperr.AbortErr(c, http.StatusInternalServerError, "internal", err)
	}
}
