package models

// SearchResponse is the response for POST /api/v1/search.
type SearchResponse struct {
	// Success indicates whether the search ran. Per-source failures do not
	// clear it; only an invalid query does.
	Success bool `json:"success"`

	// Result carries the ranked offers and the per-source manifest.
	Result *RankedResult `json:"result,omitempty"`

	// CacheStatus indicates whether the result was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"` // "healthy" or "degraded"
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// PoolStatus reports the identity pool's current state. A snapshot, never
// a live view; reading it must not block issuance.
type PoolStatus struct {
	TotalProxies     int `json:"total_proxies"`
	AvailableProxies int `json:"available_proxies"`
	UserAgents       int `json:"user_agents"`
}

// SourceStatus is the last-run record for one source, exposed on
// GET /api/v1/status for external collectors to poll.
type SourceStatus struct {
	Source      SourceID    `json:"source"`
	OK          bool        `json:"ok"`
	FailureKind FailureKind `json:"failure_kind,omitempty"`
	FetchedVia  FetchVia    `json:"fetched_via,omitempty"`
	ElapsedMs   int64       `json:"elapsed_ms"`
}

// StatusResponse is the response for GET /api/v1/status.
type StatusResponse struct {
	Pool    PoolStatus     `json:"pool"`
	LastRun []SourceStatus `json:"last_run"`
}
