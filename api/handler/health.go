package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pricescope/identity"
	"github.com/use-agent/pricescope/models"
)

// Health returns a handler for GET /api/v1/health.
//
// Status degrades when proxies are configured but every one of them is
// quarantined — searches still complete over direct connections, but with
// reduced stealth.
func Health(pool *identity.Pool, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		ps := pool.Status()

		status := "healthy"
		if ps.TotalProxies > 0 && ps.AvailableProxies == 0 {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: "0.1.0",
		})
	}
}
