package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/proxyfleet/console-server/internal/http/httperr"
)

// LimitConcurrentRequests rejects requests with 429 once maxConcurrent are
// already in flight. Guards the quota-summary route: each miss fans out to
// the whole fleet, so a poll stampede must not multiply agent load.
func LimitConcurrentRequests(maxConcurrent int) gin.HandlerFunc {
	semaphore := make(chan struct{}, maxConcurrent)

	return func(c *gin.Context) {
		select {
		case semaphore <- struct{}{}:
			defer func() { <-semaphore }()
			c.Next()
		default:
			httperr.Abort(c, http.StatusTooManyRequests, "too_many_requests", "too many concurrent requests")
		}
	}
}
