package internal

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Source is one upstream activity feed. Fetch never returns an error on its
// own: failures travel inside the FetchResult next to any partial items.
type Source interface {
	Name() string
	Kind() SourceKind
	Fetch(ctx context.Context, window time.Duration) FetchResult
}

// Pipeline runs every source, stores what they produced and prunes old items
type Pipeline struct {
	sources             []Source
	store               *ItemStore
	metrics             *Metrics
	retention           time.Duration
	defaultLookbackDays int
	now                 func() time.Time
}

// NewPipeline wires sources to store. Items are merged in sources order.
func NewPipeline(store *ItemStore, cfg Config, sources ...Source) *Pipeline {
	return &Pipeline{
		sources:             sources,
		store:               store,
		retention:           cfg.Retention,
		defaultLookbackDays: cfg.LookbackDays,
		now:                 time.Now,
	}
}

// NewPipelineFromConfig builds the standard code-host and relay-network pipeline
func NewPipelineFromConfig(store *ItemStore, cfg Config) *Pipeline {
	return NewPipeline(store, cfg, NewCodeHost(cfg.CodeHost), NewRelayNetwork(cfg.Relay))
}

// WithMetrics attaches metrics
func (p *Pipeline) WithMetrics(m *Metrics) *Pipeline {
	p.metrics = m
	return p
}

// WithClock replaces the time source used for run timing
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Run fetches from every source concurrently, upserts the merged items and
// prunes anything older than the retention period. A lookbackDays of zero or
// less uses the configured default. Source failures are logged and never fail
// the run; only store failures are returned.
func (p *Pipeline) Run(ctx context.Context, lookbackDays int) (RunSummary, error) {
	started := p.now()
	if lookbackDays <= 0 {
		lookbackDays = p.defaultLookbackDays
	}
	window := time.Duration(lookbackDays) * 24 * time.Hour

	LogInfo("Starting sitrep ingestion (lookback %d days)", lookbackDays)

	results := make([]FetchResult, len(p.sources))
	var g errgroup.Group
	for i, src := range p.sources {
		g.Go(func() error {
			results[i] = src.Fetch(ctx, window)
			return nil
		})
	}
	_ = g.Wait()

	var items []NormalizedItem
	for _, res := range results {
		p.metrics.ObserveFetch(res)
		if res.Err != nil {
			LogWarn("%s fetch reported errors (%d items kept): %v", res.Source, len(res.Items), res.Err)
		}
		LogInfo("Fetched %d items from %s", len(res.Items), res.Source)
		items = append(items, res.Items...)
	}

	upserted := p.store.UpsertEach(ctx, items)
	summary := RunSummary{Created: upserted.Created, Skipped: upserted.Skipped}
	// upserts are committed before the prune, so they are recorded even if it fails
	defer func() { p.metrics.ObserveRun(summary, started, p.now()) }()

	deleted, err := p.store.Prune(ctx, p.retention)
	if err != nil {
		LogError("Error pruning old items: %v", err)
		return summary, err
	}
	summary.Deleted = deleted

	LogInfo("Sitrep ingestion complete: %d created, %d skipped, %d deleted", summary.Created, summary.Skipped, summary.Deleted)
	return summary, nil
}
