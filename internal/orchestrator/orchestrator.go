// Package orchestrator coordinates the scrape, select, and dispatch
// phases of a pipeline run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/contentops/contentpipe/internal/metrics"
	"github.com/contentops/contentpipe/internal/pipeline"
)

// monthlyRunEstimate projects one run per day when extrapolating cost
// usage to a month.
const monthlyRunEstimate = 30

// Fetcher discovers candidate items for one source.
type Fetcher interface {
	Fetch(ctx context.Context, source pipeline.Source, seen map[string]struct{}) ([]pipeline.Item, pipeline.SourceResult, error)
}

// Scorer assigns a relevance score in [0,1].
type Scorer interface {
	Score(item pipeline.Item) float64
}

// Selector picks items for dispatch from a scored pool.
type Selector interface {
	SelectDiverse(items []pipeline.Item, maxItems int, ensureDiversity bool) []pipeline.Item
	SelectTiered(items []pipeline.Item, maxItems int) []pipeline.Item
}

// QuotaGate reports remaining daily submission headroom.
type QuotaGate interface {
	Remaining(ctx context.Context) (int, error)
}

// Dispatcher submits one item to the workflow platform. A non-nil job is
// returned whenever a job record was created, even on failure.
type Dispatcher interface {
	Dispatch(ctx context.Context, item pipeline.Item) (*pipeline.SubmissionJob, error)
}

// Config carries the orchestration knobs.
type Config struct {
	MinRelevance       float64
	MaxItemsPerRun     int
	PoolLimit          int
	Diversity          bool
	Tiered             bool
	MonthlyCostCeiling int
	TrackCostUsage     bool
}

// Orchestrator runs the pipeline phases. Per-source and per-item failures
// are isolated and reported as counts; only infrastructure failures
// (registry, store, quota) abort a run.
type Orchestrator struct {
	sources    pipeline.SourceRegistry
	content    pipeline.ContentStore
	fetcher    Fetcher
	scorer     Scorer
	selector   Selector
	quota      QuotaGate
	dispatcher Dispatcher
	publisher  pipeline.Publisher
	clock      pipeline.Clock
	cfg        Config
	logger     *zap.Logger
}

// New creates an Orchestrator. The publisher may be nil, disabling run
// summary events.
func New(
	sources pipeline.SourceRegistry,
	content pipeline.ContentStore,
	fetcher Fetcher,
	scorer Scorer,
	selector Selector,
	quota QuotaGate,
	dispatcher Dispatcher,
	publisher pipeline.Publisher,
	clock pipeline.Clock,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		sources:    sources,
		content:    content,
		fetcher:    fetcher,
		scorer:     scorer,
		selector:   selector,
		quota:      quota,
		dispatcher: dispatcher,
		publisher:  publisher,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
}

// ScrapeSources fetches, scores, and stores candidates for every active
// source.
func (o *Orchestrator) ScrapeSources(ctx context.Context) (pipeline.RunSummary, error) {
	summary, err := o.scrape(ctx)
	if err != nil {
		return summary, err
	}
	o.publish(ctx, "scrape", summary)
	return summary, nil
}

// SelectAndDispatch reads the scored pool, selects up to maxItems within
// the daily quota, and submits them.
func (o *Orchestrator) SelectAndDispatch(ctx context.Context, maxItems int, minRelevance float64) (pipeline.RunSummary, error) {
	summary, err := o.dispatch(ctx, maxItems, minRelevance)
	if err != nil {
		return summary, err
	}
	o.publish(ctx, "dispatch", summary)
	return summary, nil
}

// RunAll runs a scrape followed by a dispatch and reports the combined
// outcome.
func (o *Orchestrator) RunAll(ctx context.Context) (pipeline.RunSummary, error) {
	scraped, err := o.scrape(ctx)
	if err != nil {
		return scraped, err
	}
	dispatched, err := o.dispatch(ctx, o.cfg.MaxItemsPerRun, o.cfg.MinRelevance)
	if err != nil {
		return scraped, err
	}

	combined := pipeline.RunSummary{
		StartedAt:      scraped.StartedAt,
		FinishedAt:     dispatched.FinishedAt,
		ItemsScraped:   scraped.ItemsScraped,
		ItemsSelected:  dispatched.ItemsSelected,
		JobsSubmitted:  dispatched.JobsSubmitted,
		JobsFailed:     dispatched.JobsFailed,
		QuotaRemaining: dispatched.QuotaRemaining,
		CostUnits:      scraped.CostUnits,
		Sources:        scraped.Sources,
	}
	o.publish(ctx, "run", combined)
	return combined, nil
}

func (o *Orchestrator) scrape(ctx context.Context) (pipeline.RunSummary, error) {
	start := o.clock.Now()
	summary := pipeline.RunSummary{StartedAt: start}

	sources, err := o.sources.ListActive(ctx)
	if err != nil {
		return summary, fmt.Errorf("list active sources: %w", err)
	}
	o.logger.Info("scraping sources", zap.Int("count", len(sources)))

	seen := make(map[string]struct{})
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		items, result, err := o.fetcher.Fetch(ctx, source, seen)
		if err != nil {
			// One broken source never sinks the run.
			o.logger.Error("source fetch failed",
				zap.String("source", source.Name),
				zap.Error(err),
			)
			summary.Sources = append(summary.Sources, result)
			summary.CostUnits += result.CostUnits
			continue
		}

		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			relevance := o.scorer.Score(item)
			id, err := o.content.Insert(ctx, item)
			if err != nil {
				if errors.Is(err, pipeline.ErrDuplicateURL) {
					metrics.ObserveItemRejected("duplicate")
					continue
				}
				o.logger.Error("failed to store item",
					zap.String("url", item.URL),
					zap.Error(err),
				)
				continue
			}
			if err := o.content.UpdateScore(ctx, id, relevance); err != nil {
				o.logger.Error("failed to store score",
					zap.String("url", item.URL),
					zap.Error(err),
				)
			}
			result.Stored++
		}

		if err := o.sources.UpdateLastFetched(ctx, source.ID, o.clock.Now()); err != nil {
			o.logger.Warn("failed to update last fetched",
				zap.String("source", source.Name),
				zap.Error(err),
			)
		}

		summary.Sources = append(summary.Sources, result)
		summary.ItemsScraped += result.Scraped
		summary.CostUnits += result.CostUnits
	}

	summary.FinishedAt = o.clock.Now()
	metrics.ObserveCostUnits(summary.CostUnits)
	metrics.ObserveRunDuration("scrape", summary.FinishedAt.Sub(start))
	o.checkCostProjection(summary.CostUnits)

	o.logger.Info("scrape completed",
		zap.Int("sources", len(sources)),
		zap.Int("items_scraped", summary.ItemsScraped),
		zap.Int("cost_units", summary.CostUnits),
	)
	return summary, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, maxItems int, minRelevance float64) (pipeline.RunSummary, error) {
	start := o.clock.Now()
	summary := pipeline.RunSummary{StartedAt: start, FinishedAt: start}

	remaining, err := o.quota.Remaining(ctx)
	if err != nil {
		return summary, fmt.Errorf("check quota: %w", err)
	}
	summary.QuotaRemaining = remaining
	if remaining <= 0 {
		o.logger.Warn("daily submission quota exhausted, skipping dispatch")
		return summary, nil
	}
	if maxItems > remaining {
		o.logger.Info("quota clips batch size",
			zap.Int("requested", maxItems),
			zap.Int("remaining", remaining),
		)
		maxItems = remaining
	}

	pool, err := o.content.ListUnprocessed(ctx, minRelevance, o.cfg.PoolLimit)
	if err != nil {
		return summary, fmt.Errorf("read candidate pool: %w", err)
	}
	if len(pool) == 0 {
		o.logger.Info("no candidates above relevance threshold",
			zap.Float64("min_relevance", minRelevance),
		)
		summary.FinishedAt = o.clock.Now()
		return summary, nil
	}

	var selected []pipeline.Item
	if o.cfg.Tiered {
		selected = o.selector.SelectTiered(pool, maxItems)
	} else {
		selected = o.selector.SelectDiverse(pool, maxItems, o.cfg.Diversity)
	}
	// Tier floors can overshoot small targets; the quota is a hard cap.
	if len(selected) > remaining {
		selected = selected[:remaining]
	}
	summary.ItemsSelected = len(selected)
	metrics.ObserveItemsSelected(len(selected))

	initiated := 0
	for _, item := range selected {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		job, err := o.dispatcher.Dispatch(ctx, item)
		if job != nil {
			initiated++
		}
		if err != nil {
			o.logger.Error("dispatch failed",
				zap.String("url", item.URL),
				zap.Error(err),
			)
			summary.JobsFailed++
			continue
		}
		summary.JobsSubmitted++
	}

	summary.QuotaRemaining = remaining - initiated
	if summary.QuotaRemaining < 0 {
		summary.QuotaRemaining = 0
	}
	summary.FinishedAt = o.clock.Now()
	metrics.ObserveRunDuration("dispatch", summary.FinishedAt.Sub(start))

	o.logger.Info("dispatch completed",
		zap.Int("selected", summary.ItemsSelected),
		zap.Int("submitted", summary.JobsSubmitted),
		zap.Int("failed", summary.JobsFailed),
		zap.Int("quota_remaining", summary.QuotaRemaining),
	)
	return summary, nil
}

// checkCostProjection warns when the run's cost usage, projected to a
// month of daily runs, would exceed the configured ceiling.
func (o *Orchestrator) checkCostProjection(runCost int) {
	if !o.cfg.TrackCostUsage || o.cfg.MonthlyCostCeiling <= 0 {
		return
	}
	projected := runCost * monthlyRunEstimate
	if projected > o.cfg.MonthlyCostCeiling {
		o.logger.Warn("projected monthly cost exceeds ceiling",
			zap.Int("run_cost_units", runCost),
			zap.Int("projected_monthly", projected),
			zap.Int("ceiling", o.cfg.MonthlyCostCeiling),
		)
	}
}

func (o *Orchestrator) publish(ctx context.Context, event string, summary pipeline.RunSummary) {
	if o.publisher == nil {
		return
	}
	if _, err := o.publisher.Publish(ctx, event, summary); err != nil {
		o.logger.Warn("failed to publish run summary",
			zap.String("event", event),
			zap.Error(err),
		)
	}
}
