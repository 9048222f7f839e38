// Package identity issues (user-agent, proxy) pairs to fetch attempts and
// tracks per-proxy health under concurrent use. A proxy that keeps failing is
// quarantined for a cooldown; the pool itself never blocks and never errors —
// with every proxy quarantined it degrades to direct connections.
package identity

import (
	"log/slog"
	"sync"
	"time"

	"github.com/use-agent/pricescope/config"
	"github.com/use-agent/pricescope/models"
)

// Identity is the (user-agent, proxy) pair used for one fetch attempt.
// Proxy is empty for a direct connection. Identities are issued, used by a
// single attempt, and reported on; they are never mutated.
type Identity struct {
	UserAgent string
	Proxy     string
}

// Direct reports whether the identity carries no proxy.
func (id Identity) Direct() bool { return id.Proxy == "" }

type proxyHealth struct {
	failures         int
	lastFailure      time.Time
	quarantinedUntil time.Time
}

// Pool hands out identities and records their outcomes. One Pool instance is
// shared by every fallback engine across concurrent queries; all health
// mutations are serialized by the mutex.
type Pool struct {
	mu         sync.Mutex
	userAgents []string
	uaIndex    int
	proxies    []string
	health     map[string]*proxyHealth

	threshold int
	cooldown  time.Duration

	now func() time.Time // swapped in tests
}

// NewPool creates a Pool from the identity configuration. The builtin
// user-agent set is always present; configured extras are appended.
func NewPool(cfg config.IdentityConfig) *Pool {
	threshold := cfg.QuarantineThreshold
	if threshold <= 0 {
		threshold = 3
	}
	cooldown := cfg.QuarantineCooldown
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}

	uas := make([]string, 0, len(builtinUserAgents)+len(cfg.ExtraUserAgents))
	uas = append(uas, builtinUserAgents...)
	uas = append(uas, cfg.ExtraUserAgents...)

	health := make(map[string]*proxyHealth, len(cfg.Proxies))
	proxies := make([]string, 0, len(cfg.Proxies))
	for _, p := range cfg.Proxies {
		if _, dup := health[p]; dup {
			continue
		}
		proxies = append(proxies, p)
		health[p] = &proxyHealth{}
	}

	return &Pool{
		userAgents: uas,
		proxies:    proxies,
		health:     health,
		threshold:  threshold,
		cooldown:   cooldown,
		now:        time.Now,
	}
}

// Issue selects a user agent (round-robin) and the least-recently-failed
// available proxy for the given source. It never blocks: if every proxy is
// quarantined or none are configured, the identity is a direct connection.
func (p *Pool) Issue(source models.SourceID) Identity {
	p.mu.Lock()
	defer p.mu.Unlock()

	ua := p.userAgents[p.uaIndex%len(p.userAgents)]
	p.uaIndex++

	proxy := p.pickProxyLocked()
	if proxy == "" && len(p.proxies) > 0 {
		slog.Debug("all proxies quarantined, issuing direct identity", "source", source)
	}
	return Identity{UserAgent: ua, Proxy: proxy}
}

// pickProxyLocked returns the available proxy whose last failure is oldest,
// expiring quarantines as a side effect. Caller holds p.mu.
func (p *Pool) pickProxyLocked() string {
	now := p.now()
	best := ""
	var bestFail time.Time
	found := false

	for _, proxy := range p.proxies {
		h := p.health[proxy]
		if !h.quarantinedUntil.IsZero() {
			if now.Before(h.quarantinedUntil) {
				continue
			}
			// Cooldown lapsed: the proxy re-enters with a clean slate.
			h.quarantinedUntil = time.Time{}
			h.failures = 0
		}
		if !found || h.lastFailure.Before(bestFail) {
			best = proxy
			bestFail = h.lastFailure
			found = true
		}
	}
	return best
}

// ReportSuccess marks the identity's proxy fully healthy.
func (p *Pool) ReportSuccess(id Identity) {
	if id.Direct() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.health[id.Proxy]; ok {
		h.failures = 0
		h.lastFailure = time.Time{}
	}
}

// ReportFailure increments the proxy's consecutive-failure counter and
// quarantines it once the counter reaches the threshold.
func (p *Pool) ReportFailure(id Identity) {
	if id.Direct() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.health[id.Proxy]
	if !ok {
		return
	}
	h.failures++
	h.lastFailure = p.now()
	if h.failures >= p.threshold && h.quarantinedUntil.IsZero() {
		h.quarantinedUntil = p.now().Add(p.cooldown)
		slog.Warn("proxy quarantined",
			"proxy", id.Proxy,
			"failures", h.failures,
			"until", h.quarantinedUntil,
		)
	}
}

// Status returns a snapshot for observability. It takes the same mutex as
// Issue but only long enough to count; it never blocks issuance meaningfully.
func (p *Pool) Status() models.PoolStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	available := 0
	for _, proxy := range p.proxies {
		h := p.health[proxy]
		if h.quarantinedUntil.IsZero() || !now.Before(h.quarantinedUntil) {
			available++
		}
	}
	return models.PoolStatus{
		TotalProxies:     len(p.proxies),
		AvailableProxies: available,
		UserAgents:       len(p.userAgents),
	}
}
