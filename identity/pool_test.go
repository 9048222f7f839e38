package identity

import (
	"testing"
	"time"

	"github.com/use-agent/pricescope/config"
)

func newTestPool(t *testing.T, proxies []string) (*Pool, *time.Time) {
	t.Helper()
	p := NewPool(config.IdentityConfig{
		Proxies:             proxies,
		QuarantineThreshold: 3,
		QuarantineCooldown:  5 * time.Minute,
	})
	clock := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }
	return p, &clock
}

func TestIssue_RoundRobinUserAgents(t *testing.T) {
	p, _ := newTestPool(t, nil)

	first := p.Issue("amazon")
	second := p.Issue("amazon")
	if first.UserAgent == second.UserAgent {
		t.Errorf("consecutive issues reused user agent %q", first.UserAgent)
	}

	// Issuing through the whole pool wraps back to the first agent.
	n := p.Status().UserAgents
	for i := 0; i < n-2; i++ {
		p.Issue("amazon")
	}
	wrapped := p.Issue("amazon")
	if wrapped.UserAgent != first.UserAgent {
		t.Errorf("rotation did not wrap: got %q, want %q", wrapped.UserAgent, first.UserAgent)
	}
}

func TestIssue_NoProxiesMeansDirect(t *testing.T) {
	p, _ := newTestPool(t, nil)
	id := p.Issue("flipkart")
	if !id.Direct() {
		t.Errorf("expected direct identity, got proxy %q", id.Proxy)
	}
}

func TestReportFailure_QuarantinesAtThreshold(t *testing.T) {
	p, _ := newTestPool(t, []string{"http://proxy-a:8080"})
	id := Identity{UserAgent: "ua", Proxy: "http://proxy-a:8080"}

	p.ReportFailure(id)
	p.ReportFailure(id)
	if got := p.Status().AvailableProxies; got != 1 {
		t.Fatalf("proxy quarantined below threshold: available = %d, want 1", got)
	}

	p.ReportFailure(id)
	if got := p.Status().AvailableProxies; got != 0 {
		t.Errorf("proxy not quarantined at threshold: available = %d, want 0", got)
	}

	issued := p.Issue("amazon")
	if !issued.Direct() {
		t.Errorf("quarantined proxy was issued: %q", issued.Proxy)
	}
}

func TestReportSuccess_ResetsFailureCount(t *testing.T) {
	p, _ := newTestPool(t, []string{"http://proxy-a:8080"})
	id := Identity{UserAgent: "ua", Proxy: "http://proxy-a:8080"}

	p.ReportFailure(id)
	p.ReportFailure(id)
	p.ReportSuccess(id)

	// Two more failures stay below the threshold after the reset.
	p.ReportFailure(id)
	p.ReportFailure(id)
	if got := p.Status().AvailableProxies; got != 1 {
		t.Errorf("failure count not reset by success: available = %d, want 1", got)
	}
}

func TestQuarantine_CooldownExpiry(t *testing.T) {
	p, clock := newTestPool(t, []string{"http://proxy-a:8080"})
	id := Identity{UserAgent: "ua", Proxy: "http://proxy-a:8080"}

	for i := 0; i < 3; i++ {
		p.ReportFailure(id)
	}
	if got := p.Status().AvailableProxies; got != 0 {
		t.Fatalf("proxy not quarantined: available = %d", got)
	}

	// One second before cooldown lapses the proxy stays excluded.
	*clock = clock.Add(5*time.Minute - time.Second)
	if issued := p.Issue("amazon"); !issued.Direct() {
		t.Errorf("proxy issued before cooldown lapsed: %q", issued.Proxy)
	}

	// At cooldown the proxy re-enters with a clean slate.
	*clock = clock.Add(2 * time.Second)
	issued := p.Issue("amazon")
	if issued.Proxy != "http://proxy-a:8080" {
		t.Fatalf("proxy not reinstated after cooldown: got %q", issued.Proxy)
	}

	// The slate is clean: it takes a full threshold of new failures to
	// quarantine again.
	p.ReportFailure(id)
	p.ReportFailure(id)
	if got := p.Status().AvailableProxies; got != 1 {
		t.Errorf("failure count carried across quarantine: available = %d, want 1", got)
	}
}

func TestIssue_PrefersLeastRecentlyFailedProxy(t *testing.T) {
	p, clock := newTestPool(t, []string{"http://proxy-a:8080", "http://proxy-b:8080"})

	p.ReportFailure(Identity{Proxy: "http://proxy-a:8080", UserAgent: "ua"})
	*clock = clock.Add(time.Minute)
	p.ReportFailure(Identity{Proxy: "http://proxy-b:8080", UserAgent: "ua"})

	issued := p.Issue("amazon")
	if issued.Proxy != "http://proxy-a:8080" {
		t.Errorf("expected least-recently-failed proxy a, got %q", issued.Proxy)
	}
}

func TestNewPool_DeduplicatesProxies(t *testing.T) {
	p, _ := newTestPool(t, []string{"http://proxy-a:8080", "http://proxy-a:8080"})
	if got := p.Status().TotalProxies; got != 1 {
		t.Errorf("duplicate proxy not collapsed: total = %d, want 1", got)
	}
}

func TestStatus_CountsQuarantineAsUnavailable(t *testing.T) {
	p, _ := newTestPool(t, []string{"http://proxy-a:8080", "http://proxy-b:8080"})
	id := Identity{UserAgent: "ua", Proxy: "http://proxy-b:8080"}
	for i := 0; i < 3; i++ {
		p.ReportFailure(id)
	}

	st := p.Status()
	if st.TotalProxies != 2 {
		t.Errorf("total = %d, want 2", st.TotalProxies)
	}
	if st.AvailableProxies != 1 {
		t.Errorf("available = %d, want 1", st.AvailableProxies)
	}
}
