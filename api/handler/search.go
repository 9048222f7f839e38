package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/pricescope/cache"
	"github.com/use-agent/pricescope/models"
	"github.com/use-agent/pricescope/orchestrate"
)

// Search returns a handler for POST /api/v1/search.
//
// The scrape itself is bounded by the orchestrator's global deadline, so the
// handler simply runs it on the request context; per-source failures come
// back inside the result manifest, never as an HTTP error.
func Search(orch *orchestrate.Orchestrator, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.SearchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidQuery,
					Message: err.Error(),
				},
			})
			return
		}

		sources := make([]models.SourceID, 0, len(req.Sources))
		for _, s := range req.Sources {
			sources = append(sources, models.SourceID(s))
		}

		cacheKey := cache.Key(req.Query, sources)
		cacheStatus := ""
		if req.MaxCacheAgeMs > 0 {
			cacheStatus = "miss"
			if result, hit := cc.Get(cacheKey, req.MaxCacheAgeMs); hit {
				c.JSON(http.StatusOK, models.SearchResponse{
					Success:     true,
					Result:      result,
					CacheStatus: "hit",
				})
				return
			}
		}

		result, err := orch.Search(c.Request.Context(), req.Query, sources)
		if err != nil {
			status := http.StatusInternalServerError
			resp := models.SearchResponse{Success: false}

			var scrapeErr *models.ScrapeError
			if errors.As(err, &scrapeErr) {
				resp.Error = scrapeErr.ToDetail()
				if scrapeErr.Code == models.ErrCodeInvalidQuery {
					status = http.StatusBadRequest
				}
			} else {
				resp.Error = &models.ErrorDetail{
					Code:    models.ErrCodeInternal,
					Message: err.Error(),
				}
			}
			c.JSON(status, resp)
			return
		}

		cc.Set(cacheKey, result)

		c.JSON(http.StatusOK, models.SearchResponse{
			Success:     true,
			Result:      result,
			CacheStatus: cacheStatus,
		})
	}
}
