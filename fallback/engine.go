package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/use-agent/pricescope/config"
	"github.com/use-agent/pricescope/identity"
	"github.com/use-agent/pricescope/metrics"
	"github.com/use-agent/pricescope/models"
	"github.com/use-agent/pricescope/source"
)

// Engine runs the hybrid fetch procedure for one source: static fetch,
// classification, optional render escalation, bounded retries. One Engine is
// safe for concurrent use across sources and queries; all mutable state
// lives in the shared identity pool.
type Engine struct {
	pool    *identity.Pool
	cfg     config.ScrapeConfig
	metrics *metrics.Metrics

	sleep func(ctx context.Context, d time.Duration) error // swapped in tests
}

// NewEngine creates an Engine drawing identities from pool. m may be nil.
func NewEngine(pool *identity.Pool, cfg config.ScrapeConfig, m *metrics.Metrics) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2
	}
	return &Engine{
		pool:    pool,
		cfg:     cfg,
		metrics: m,
		sleep:   sleepCtx,
	}
}

// Run executes the full attempt loop for one source and query. It returns
// either a raw offer or a typed failure, never both and never an error: any
// condition short of success is absorbed into the failure's kind.
func (e *Engine) Run(ctx context.Context, adapter source.Adapter, query string) (*models.RawOffer, *models.FetchFailure) {
	sourceID := adapter.ID()
	var last *models.FetchFailure

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			e.metrics.IncRetry(string(sourceID))
			if err := e.sleep(ctx, e.cfg.RetryDelay); err != nil {
				return nil, timeoutFailure(sourceID, "cancelled between attempts")
			}
		}
		if ctx.Err() != nil {
			return nil, timeoutFailure(sourceID, "cancelled before attempt")
		}

		offer, failure, terminal := e.attempt(ctx, adapter, query, attempt)
		if offer != nil {
			return offer, nil
		}
		last = failure
		if terminal {
			return nil, failure
		}
	}

	if last == nil {
		last = &models.FetchFailure{
			Source: sourceID,
			Kind:   models.FailExhaustedRetries,
			Detail: fmt.Sprintf("no result after %d attempts", e.cfg.MaxAttempts),
		}
	} else {
		last.Detail = fmt.Sprintf("exhausted %d attempts: %s", e.cfg.MaxAttempts, last.Detail)
	}
	return nil, last
}

// attempt performs one full static(+render) cycle. terminal marks failures
// that retrying cannot improve (parse failures, caller cancellation).
func (e *Engine) attempt(ctx context.Context, adapter source.Adapter, query string, attempt int) (*models.RawOffer, *models.FetchFailure, bool) {
	sourceID := adapter.ID()

	ident := e.pool.Issue(sourceID)
	start := time.Now()
	fields, err := e.fetchStatic(ctx, adapter, query, ident)
	e.metrics.ObserveFetch(string(sourceID), time.Since(start))

	if err != nil {
		e.pool.ReportFailure(ident)
		kind := classifyFetchErr(err)
		e.metrics.IncFetch(string(sourceID), string(models.ViaStatic), string(kind))
		slog.Debug("static fetch failed",
			"source", sourceID, "attempt", attempt, "kind", kind, "error", err)
		return nil, &models.FetchFailure{Source: sourceID, Kind: kind, Detail: err.Error()}, ctx.Err() != nil
	}

	switch decision := Classify(fields, e.cfg); decision {
	case BotDetected:
		e.pool.ReportFailure(ident)
		e.metrics.IncFetch(string(sourceID), string(models.ViaStatic), string(models.FailBotDetected))
		slog.Info("bot challenge detected", "source", sourceID, "attempt", attempt)
		return nil, &models.FetchFailure{
			Source: sourceID,
			Kind:   models.FailBotDetected,
			Detail: "challenge markers in static response",
		}, false

	case NeedsRender:
		// The static transport worked; only the content was insufficient.
		e.pool.ReportSuccess(ident)
		e.metrics.IncEscalation(string(sourceID))
		slog.Debug("escalating to rendered fetch", "source", sourceID, "attempt", attempt)
		return e.renderAttempt(ctx, adapter, query, attempt)

	default:
		e.pool.ReportSuccess(ident)
		e.metrics.IncFetch(string(sourceID), string(models.ViaStatic), "ok")
		return newOffer(sourceID, fields, models.ViaStatic), nil, false
	}
}

// renderAttempt runs the rendered fetch with a fresh identity.
func (e *Engine) renderAttempt(ctx context.Context, adapter source.Adapter, query string, attempt int) (*models.RawOffer, *models.FetchFailure, bool) {
	sourceID := adapter.ID()
	ident := e.pool.Issue(sourceID)

	renderCtx, cancel := context.WithTimeout(ctx, e.cfg.RenderTimeout)
	defer cancel()

	start := time.Now()
	fields, err := adapter.FetchRendered(renderCtx, query, ident)
	e.metrics.ObserveFetch(string(sourceID), time.Since(start))

	if err != nil {
		e.pool.ReportFailure(ident)
		kind := classifyFetchErr(err)
		e.metrics.IncFetch(string(sourceID), string(models.ViaRendered), string(kind))
		slog.Debug("rendered fetch failed",
			"source", sourceID, "attempt", attempt, "kind", kind, "error", err)
		return nil, &models.FetchFailure{Source: sourceID, Kind: kind, Detail: err.Error()}, ctx.Err() != nil
	}

	// The render completed; the identity is healthy regardless of content.
	e.pool.ReportSuccess(ident)

	if !HasRequiredFields(fields) {
		e.metrics.IncFetch(string(sourceID), string(models.ViaRendered), string(models.FailParse))
		return nil, &models.FetchFailure{
			Source: sourceID,
			Kind:   models.FailParse,
			Detail: "required fields missing after render",
		}, true
	}

	e.metrics.IncFetch(string(sourceID), string(models.ViaRendered), "ok")
	return newOffer(sourceID, fields, models.ViaRendered), nil, false
}

func (e *Engine) fetchStatic(ctx context.Context, adapter source.Adapter, query string, ident identity.Identity) (*models.RawFields, error) {
	staticCtx, cancel := context.WithTimeout(ctx, e.cfg.StaticTimeout)
	defer cancel()
	return adapter.FetchStatic(staticCtx, query, ident)
}

func newOffer(sourceID models.SourceID, fields *models.RawFields, via models.FetchVia) *models.RawOffer {
	return &models.RawOffer{
		Source:       sourceID,
		Title:        fields.Title,
		PriceText:    fields.PriceText,
		CurrencyHint: fields.CurrencyHint,
		RatingText:   fields.RatingText,
		Availability: fields.Availability,
		Seller:       fields.Seller,
		URL:          fields.URL,
		FetchedVia:   via,
		FetchedAt:    time.Now(),
	}
}

func timeoutFailure(sourceID models.SourceID, detail string) *models.FetchFailure {
	return &models.FetchFailure{Source: sourceID, Kind: models.FailTimeout, Detail: detail}
}

// classifyFetchErr maps a transport error onto the failure taxonomy.
func classifyFetchErr(err error) models.FailureKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.FailTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.FailTimeout
	}
	return models.FailNetwork
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
