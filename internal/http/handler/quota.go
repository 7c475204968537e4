package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/proxyfleet/console-server/internal/http/httperr"
	"github.com/proxyfleet/console-server/internal/service"
	"go.uber.org/zap"
)

type QuotaHandler struct {
	log       *zap.Logger
	summaries *service.QuotaSummaryService
}

func NewQuotaHandler(log *zap.Logger, summaries *service.QuotaSummaryService) *QuotaHandler {
	return &QuotaHandler{log.Named("quota-handler"), summaries}
}

// GetQuotaSummaries serves the fleet-wide per-user quota report. Partial
// data is a 200 with the partial flag set, never an error: one bad node
// must not blank out everyone else's figures.
func (h *QuotaHandler) GetQuotaSummaries(c *gin.Context) {
	res, err := h.summaries.Get(c.Request.Context())
	if err != nil {
		httperr.AbortErr(c, http.StatusInternalServerError, "summary_failed", err)
		return
	}

	c.Header("X-Summary-Generated-At", res.GeneratedAt.UTC().Format(time.RFC3339Nano))
	if res.CacheHit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.JSON(http.StatusOK, res.Report)
}
