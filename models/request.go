package models

// SearchRequest is the payload for POST /api/v1/search.
type SearchRequest struct {
	// Query is the free-text product search. Required.
	Query string `json:"query" binding:"required"`

	// Sources optionally restricts the run to a subset of configured
	// source IDs. Unknown IDs are ignored. Empty means all sources.
	Sources []string `json:"sources,omitempty"`

	// MaxCacheAgeMs allows serving a previously ranked result for the same
	// query if it is younger than this many milliseconds. 0 disables the
	// cache lookup.
	MaxCacheAgeMs int `json:"max_cache_age_ms,omitempty" binding:"omitempty,min=0"`
}
