package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pricescope/identity"
	"github.com/use-agent/pricescope/models"
	"github.com/use-agent/pricescope/orchestrate"
)

// Status returns a handler for GET /api/v1/status: the identity pool
// snapshot plus the per-source outcome of the most recent run.
func Status(pool *identity.Pool, orch *orchestrate.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.StatusResponse{
			Pool:    pool.Status(),
			LastRun: orch.LastRun(),
		})
	}
}
