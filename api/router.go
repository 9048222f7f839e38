package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/pricescope/api/handler"
	"github.com/use-agent/pricescope/api/middleware"
	"github.com/use-agent/pricescope/cache"
	"github.com/use-agent/pricescope/config"
	"github.com/use-agent/pricescope/identity"
	"github.com/use-agent/pricescope/metrics"
	"github.com/use-agent/pricescope/orchestrate"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics endpoints are intentionally outside auth so monitoring
// checks always work.
func NewRouter(orch *orchestrate.Orchestrator, pool *identity.Pool, m *metrics.Metrics, cfg *config.Config, cc *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	// Prometheus scrape endpoint on the dedicated registry.
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(pool, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Search
	protected.POST("/search", handler.Search(orch, cc))

	// Pool and last-run status
	protected.GET("/status", handler.Status(pool, orch))

	return r
}
