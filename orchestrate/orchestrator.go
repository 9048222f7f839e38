// Package orchestrate runs one fallback-engine invocation per configured
// source concurrently, enforces per-source and global deadlines, and
// aggregates whatever completed into a single outcome. Individual source
// failures never fail the run; only an invalid query does.
package orchestrate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/use-agent/pricescope/config"
	"github.com/use-agent/pricescope/fallback"
	"github.com/use-agent/pricescope/metrics"
	"github.com/use-agent/pricescope/models"
	"github.com/use-agent/pricescope/ranking"
	"github.com/use-agent/pricescope/source"
)

// Orchestrator fans a query out to every registered source and collects the
// per-source outcomes. Safe for concurrent use; concurrent runs share only
// the identity pool behind the fallback engine.
type Orchestrator struct {
	registry *source.Registry
	engine   *fallback.Engine
	ranker   *ranking.Engine
	cfg      config.ScrapeConfig
	metrics  *metrics.Metrics

	mu      sync.Mutex
	lastRun []models.SourceStatus
}

// New creates an Orchestrator. The global deadline is clamped to at least
// the per-source timeout so a single slow source cannot starve the run's
// scheduling headroom.
func New(registry *source.Registry, engine *fallback.Engine, ranker *ranking.Engine, cfg config.ScrapeConfig, m *metrics.Metrics) *Orchestrator {
	if cfg.GlobalDeadline < cfg.SourceTimeout {
		cfg.GlobalDeadline = cfg.SourceTimeout
	}
	return &Orchestrator{
		registry: registry,
		engine:   engine,
		ranker:   ranker,
		cfg:      cfg,
		metrics:  m,
	}
}

// sourceResult is the single-writer hand-off from a source task to the
// collection loop. Tasks only ever send; the orchestrator alone writes the
// outcome map.
type sourceResult struct {
	id      models.SourceID
	offer   *models.RawOffer
	failure *models.FetchFailure
	elapsed time.Duration
}

// Search is the core's sole entry point: it validates the query, runs the
// scrape, and hands the outcome to the ranking engine. Only an invalid
// query is returned as an error.
func (o *Orchestrator) Search(ctx context.Context, query string, only []models.SourceID) (*models.RankedResult, error) {
	outcome, err := o.Run(ctx, query, only)
	if err != nil {
		return nil, err
	}
	result := o.ranker.Rank(outcome)
	return result, nil
}

// Run executes one scrape across the selected sources (all registered ones
// when only is empty) and returns the per-source outcome map.
func (o *Orchestrator) Run(ctx context.Context, query string, only []models.SourceID) (*models.ScrapeOutcome, error) {
	if err := models.ValidateQuery(query); err != nil {
		return nil, err
	}

	adapters := o.selectAdapters(only)
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.GlobalDeadline)
	defer cancel()

	// Buffered so a task finishing after the deadline can still send its
	// result and exit instead of leaking.
	results := make(chan sourceResult, len(adapters))

	for _, adapter := range adapters {
		go o.runSource(runCtx, adapter, query, results)
	}

	perSource, statuses := o.collectResults(runCtx, adapters, results, start)

	elapsed := time.Since(start)
	o.metrics.ObserveRun(elapsed)
	o.setLastRun(statuses)

	slog.Info("scrape run complete",
		"query", query,
		"sources", len(adapters),
		"succeeded", countOK(perSource),
		"elapsed", elapsed,
	)

	return &models.ScrapeOutcome{
		Query:     query,
		PerSource: perSource,
		Elapsed:   elapsed,
	}, nil
}

// collectResults gathers one result per adapter until the run context
// expires, then backfills timeout entries for the sources that never
// delivered. Each source is written exactly once.
func (o *Orchestrator) collectResults(ctx context.Context, adapters []source.Adapter, results <-chan sourceResult, start time.Time) (map[models.SourceID]models.SourceResult, []models.SourceStatus) {
	perSource := make(map[models.SourceID]models.SourceResult, len(adapters))
	statuses := make([]models.SourceStatus, 0, len(adapters))

	record := func(res sourceResult) {
		perSource[res.id] = models.SourceResult{Offer: res.offer, Failure: res.failure}
		statuses = append(statuses, statusFor(res))
	}

	remaining := len(adapters)
collect:
	for remaining > 0 {
		select {
		case res := <-results:
			remaining--
			record(res)
		case <-ctx.Done():
			break collect
		}
	}

	// The deadline fired. Results already sitting in the buffered channel
	// finished in time; take them before declaring anything timed out.
drain:
	for remaining > 0 {
		select {
		case res := <-results:
			remaining--
			record(res)
		default:
			break drain
		}
	}

	for _, adapter := range adapters {
		id := adapter.ID()
		if _, ok := perSource[id]; ok {
			continue
		}
		failure := &models.FetchFailure{
			Source: id,
			Kind:   models.FailTimeout,
			Detail: "global deadline reached",
		}
		perSource[id] = models.SourceResult{Failure: failure}
		statuses = append(statuses, models.SourceStatus{
			Source:      id,
			FailureKind: models.FailTimeout,
			ElapsedMs:   time.Since(start).Milliseconds(),
		})
	}

	return perSource, statuses
}

// runSource executes one source task under its own timeout and delivers
// exactly one result.
func (o *Orchestrator) runSource(ctx context.Context, adapter source.Adapter, query string, results chan<- sourceResult) {
	srcCtx, cancel := context.WithTimeout(ctx, o.cfg.SourceTimeout)
	defer cancel()

	start := time.Now()
	offer, failure := o.engine.Run(srcCtx, adapter, query)
	results <- sourceResult{
		id:      adapter.ID(),
		offer:   offer,
		failure: failure,
		elapsed: time.Since(start),
	}
}

func (o *Orchestrator) selectAdapters(only []models.SourceID) []source.Adapter {
	if len(only) == 0 {
		return o.registry.All()
	}
	// Unknown IDs are dropped. A list of only unknown IDs yields an empty
	// run rather than silently widening the request to every source.
	var out []source.Adapter
	for _, id := range only {
		if a := o.registry.Get(id); a != nil {
			out = append(out, a)
		}
	}
	return out
}

// LastRun returns the per-source status of the most recent run, for the
// status endpoint and external collectors.
func (o *Orchestrator) LastRun() []models.SourceStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.SourceStatus, len(o.lastRun))
	copy(out, o.lastRun)
	return out
}

func (o *Orchestrator) setLastRun(statuses []models.SourceStatus) {
	o.mu.Lock()
	o.lastRun = statuses
	o.mu.Unlock()
}

func statusFor(res sourceResult) models.SourceStatus {
	s := models.SourceStatus{
		Source:    res.id,
		OK:        res.offer != nil,
		ElapsedMs: res.elapsed.Milliseconds(),
	}
	if res.offer != nil {
		s.FetchedVia = res.offer.FetchedVia
	} else if res.failure != nil {
		s.FailureKind = res.failure.Kind
	}
	return s
}

func countOK(perSource map[models.SourceID]models.SourceResult) int {
	n := 0
	for _, r := range perSource {
		if r.OK() {
			n++
		}
	}
	return n
}
