// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"net/http"

	pubsubv2 "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/contentops/contentpipe/internal/api"
	"github.com/contentops/contentpipe/internal/clock/system"
	"github.com/contentops/contentpipe/internal/config"
	"github.com/contentops/contentpipe/internal/dispatch"
	"github.com/contentops/contentpipe/internal/feed"
	"github.com/contentops/contentpipe/internal/fetch"
	"github.com/contentops/contentpipe/internal/hash/sha256"
	uuidgen "github.com/contentops/contentpipe/internal/id/uuid"
	"github.com/contentops/contentpipe/internal/logging"
	"github.com/contentops/contentpipe/internal/metrics"
	"github.com/contentops/contentpipe/internal/orchestrator"
	"github.com/contentops/contentpipe/internal/pipeline"
	pubsubpublisher "github.com/contentops/contentpipe/internal/publish/pubsub"
	"github.com/contentops/contentpipe/internal/quota"
	"github.com/contentops/contentpipe/internal/score"
	collyscraper "github.com/contentops/contentpipe/internal/scraper/colly"
	"github.com/contentops/contentpipe/internal/selection"
	"github.com/contentops/contentpipe/internal/storage/memory"
	"github.com/contentops/contentpipe/internal/storage/postgres"
	"github.com/contentops/contentpipe/internal/workflow"
)

// App holds the shared, long-lived services for the pipeline. It is
// initialized once at startup and passed to the commands that need it.
type App struct {
	Config       config.Config
	Logger       *zap.Logger
	Sources      pipeline.SourceRegistry
	Content      pipeline.ContentStore
	Jobs         pipeline.JobStore
	Feeds        pipeline.FeedReader
	Workflow     pipeline.WorkflowClient
	Orchestrator *orchestrator.Orchestrator
	Server       *api.Server

	pool         *pgxpool.Pool
	pubsubClient *pubsubv2.Client
}

// New builds the full service graph from the config. It fails fast when
// any critical service cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()

	a := &App{Config: cfg, Logger: logger}
	clk := system.New()
	ids := uuidgen.New()
	hasher := sha256.New()

	switch cfg.DB.Provider {
	case "postgres":
		logger.Info("connecting to postgres")
		pool, err := postgres.Connect(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		a.pool = pool
		a.Sources = postgres.NewSourceStore(pool)
		a.Content = postgres.NewContentStore(pool)
		a.Jobs = postgres.NewJobStore(pool)
	case "", "memory":
		logger.Info("using in-memory stores", zap.Int("configured_sources", len(cfg.Sources)))
		a.Sources = memory.NewSourceRegistry(seedSources(cfg.Sources)...)
		a.Content = memory.NewContentStore()
		a.Jobs = memory.NewJobStore(clk)
	default:
		return nil, fmt.Errorf("unknown db provider: %s", cfg.DB.Provider)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout()}
	a.Feeds = feed.New(httpClient, cfg.Discovery.FeedFreshnessDays, clk, logger)
	scraper := collyscraper.New(collyscraper.Config{
		UserAgent: cfg.Discovery.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
	}, logger)

	fetcher := fetch.New(a.Feeds, scraper, a.Content, hasher, clk, ids, fetch.Options{
		UseFeeds:           cfg.Discovery.UseFeeds,
		FallbackToCrawl:    cfg.Discovery.FallbackToCrawl,
		MaxArticlesPerFeed: cfg.Discovery.MaxArticlesPerFeed,
		MaxCrawlPages:      cfg.Discovery.MaxCrawlPages,
		Dedup:              cfg.Discovery.Dedup,
		Quality: fetch.QualityPolicy{
			MinContentLength:   cfg.Discovery.MinContentLength,
			MaxListingLinks:    cfg.Discovery.MaxListingLinks,
			ShortBodyLength:    cfg.Discovery.ShortBodyLength,
			MinTextBlocks:      cfg.Discovery.MinTextBlocks,
			TextBlockMinLength: cfg.Discovery.TextBlockMinLength,
		},
	}, logger)

	scorer := score.New(cfg.Discovery.RelevanceKeywords, clk, logger)
	selector := selection.New(logger)

	retry := pipeline.NewRetryPolicy(cfg.HTTP.MaxRetries, cfg.BackoffInitial(), cfg.BackoffMax())
	a.Workflow = workflow.New(workflow.Config{
		BaseURL:    cfg.Workflow.BaseURL,
		ServiceKey: cfg.Workflow.ServiceKey,
		WorkflowID: cfg.Workflow.WorkflowID,
		Timeout:    cfg.HTTPTimeout(),
	}, retry, logger)

	gate := quota.New(a.Jobs, clk, cfg.Selection.DailyLimit, logger)
	coordinator := dispatch.New(a.Workflow, a.Jobs, a.Content, clk, ids, cfg.Workflow.WorkflowID, logger)

	var publisher pipeline.Publisher
	if cfg.PubSub.Enabled {
		logger.Info("connecting to pubsub",
			zap.String("project", cfg.PubSub.ProjectID),
			zap.String("topic", cfg.PubSub.TopicName),
		)
		client, err := pubsubv2.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("init pubsub: %w", err)
		}
		a.pubsubClient = client
		publisher = pubsubpublisher.New(client.Publisher(cfg.PubSub.TopicName))
	}

	a.Orchestrator = orchestrator.New(
		a.Sources,
		a.Content,
		fetcher,
		scorer,
		selector,
		gate,
		coordinator,
		publisher,
		clk,
		orchestrator.Config{
			MinRelevance:       cfg.Selection.MinRelevance,
			MaxItemsPerRun:     cfg.Selection.MaxItemsPerRun,
			PoolLimit:          cfg.Selection.PoolLimit,
			Diversity:          cfg.Selection.Diversity,
			Tiered:             cfg.Selection.Tiered,
			MonthlyCostCeiling: cfg.Discovery.MonthlyCostCeiling,
			TrackCostUsage:     cfg.Discovery.TrackCostUsage,
		},
		logger,
	)

	a.Server = api.NewServer(a.Orchestrator, a.Jobs, a.Workflow, cfg, logger)

	logger.Info("application services initialized")
	return a, nil
}

// Close shuts down all held services. Called by a Cobra hook after the
// command finishes.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.Logger.Warn("error closing pubsub client", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}

// seedSources converts configured source entries into registry records.
// IDs are derived from the URL so they stay stable across restarts.
func seedSources(sources []config.SourceConfig) []pipeline.Source {
	out := make([]pipeline.Source, 0, len(sources))
	for _, src := range sources {
		out = append(out, pipeline.Source{
			ID:            uuid.NewSHA1(uuid.NameSpaceURL, []byte(src.URL)),
			Name:          src.Name,
			URL:           src.URL,
			Category:      src.Category,
			FeedURL:       src.FeedURL,
			HasFeed:       src.HasFeed,
			MaxCrawlPages: src.MaxCrawlPages,
			Active:        !src.Disabled,
		})
	}
	return out
}
