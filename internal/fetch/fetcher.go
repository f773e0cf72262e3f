package fetch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/contentops/contentpipe/internal/metrics"
	"github.com/contentops/contentpipe/internal/pipeline"
)

// crawlCostFloor is the minimum cost estimate charged for a crawl run,
// matching the remote scraping service's crawl pricing.
const crawlCostFloor = 10

// Options controls discovery behavior for all sources.
type Options struct {
	UseFeeds           bool
	FallbackToCrawl    bool
	MaxArticlesPerFeed int
	MaxCrawlPages      int
	Dedup              bool
	Quality            QualityPolicy
}

// SourceFetcher discovers candidate items for one source at a time.
// It performs no persistence; dedup consults the content store read-only.
type SourceFetcher struct {
	feeds  pipeline.FeedReader
	pages  pipeline.PageScraper
	store  pipeline.ContentStore
	hasher pipeline.Hasher
	clock  pipeline.Clock
	ids    pipeline.IDGenerator
	opts   Options
	logger *zap.Logger
}

// New creates a SourceFetcher.
func New(
	feeds pipeline.FeedReader,
	pages pipeline.PageScraper,
	store pipeline.ContentStore,
	hasher pipeline.Hasher,
	clock pipeline.Clock,
	ids pipeline.IDGenerator,
	opts Options,
	logger *zap.Logger,
) *SourceFetcher {
	return &SourceFetcher{
		feeds:  feeds,
		pages:  pages,
		store:  store,
		hasher: hasher,
		clock:  clock,
		ids:    ids,
		opts:   opts,
		logger: logger,
	}
}

// Fetch discovers items for a source. Feed discovery runs first when the
// source declares a usable feed; the bounded crawl is the fallback. The
// seen set dedups URLs within the current run across sources; callers may
// pass nil to disable it.
func (f *SourceFetcher) Fetch(ctx context.Context, source pipeline.Source, seen map[string]struct{}) ([]pipeline.Item, pipeline.SourceResult, error) {
	result := pipeline.SourceResult{Name: source.Name, Category: source.Category}

	if f.opts.UseFeeds && source.HasFeed && source.FeedURL != "" {
		items, err := f.fetchFromFeed(ctx, source, seen, &result)
		if err == nil && len(items) > 0 {
			result.Method = pipeline.DiscoveryFeed
			return items, result, nil
		}
		if err != nil {
			f.logger.Warn("feed discovery failed",
				zap.String("source", source.Name),
				zap.String("feed_url", source.FeedURL),
				zap.Error(err),
			)
		}
		if !f.opts.FallbackToCrawl {
			result.Method = pipeline.DiscoveryFeed
			return items, result, err
		}
		f.logger.Info("falling back to crawl",
			zap.String("source", source.Name),
			zap.Int("feed_items", len(items)),
		)
	}

	items, err := f.crawlSource(ctx, source, seen, &result)
	result.Method = pipeline.DiscoveryCrawl
	if err != nil {
		return nil, result, fmt.Errorf("crawl source %s: %w", source.Name, err)
	}
	return items, result, nil
}

// fetchFromFeed discovers items through the source's feed. The per-source
// article cap applies to retrieved entries before dedup, preserving feed
// order. A full-body fetch costs one unit; falling back to the feed
// summary costs nothing beyond any unit already spent.
func (f *SourceFetcher) fetchFromFeed(ctx context.Context, source pipeline.Source, seen map[string]struct{}, result *pipeline.SourceResult) ([]pipeline.Item, error) {
	entries, err := f.feeds.FetchEntries(ctx, source.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed entries: %w", err)
	}

	if f.opts.MaxArticlesPerFeed > 0 && len(entries) > f.opts.MaxArticlesPerFeed {
		f.logger.Info("limiting feed entries",
			zap.String("source", source.Name),
			zap.Int("available", len(entries)),
			zap.Int("limit", f.opts.MaxArticlesPerFeed),
		)
		entries = entries[:f.opts.MaxArticlesPerFeed]
	}

	var items []pipeline.Item
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return items, err
		}
		if entry.Link == "" {
			f.logger.Warn("feed entry has no link, skipping",
				zap.String("source", source.Name),
				zap.String("title", entry.Title),
			)
			continue
		}
		if !IsArticleURL(entry.Link, entry.Title) {
			metrics.ObserveItemRejected("non_article")
			continue
		}
		if skip, err := f.isDuplicate(ctx, entry.Link, seen); err != nil {
			return items, err
		} else if skip {
			metrics.ObserveItemRejected("duplicate")
			continue
		}

		item, err := f.itemFromFeedEntry(ctx, source, entry, result)
		if err != nil {
			f.logger.Error("error processing feed entry",
				zap.String("source", source.Name),
				zap.String("url", entry.Link),
				zap.Error(err),
			)
			continue
		}
		if item == nil {
			continue
		}

		if seen != nil {
			seen[entry.Link] = struct{}{}
		}
		items = append(items, *item)
		result.Scraped++
		metrics.ObserveItemScraped(source.URL, string(pipeline.DiscoveryFeed))
	}

	return items, nil
}

// itemFromFeedEntry builds an item from a feed entry, preferring a full
// page fetch and degrading to the feed-provided body or summary.
func (f *SourceFetcher) itemFromFeedEntry(ctx context.Context, source pipeline.Source, entry pipeline.FeedEntry, result *pipeline.SourceResult) (*pipeline.Item, error) {
	var page pipeline.Page
	fetched := false

	// The unit is spent on the attempt whether or not it pays off.
	result.CostUnits++
	cost := 1
	p, err := f.pages.FetchPage(ctx, entry.Link)
	if err != nil {
		f.logger.Warn("full fetch failed, using feed data",
			zap.String("url", entry.Link),
			zap.Error(err),
		)
		cost = 0
	} else if reason, ok := f.opts.Quality.Check(p.Text); !ok {
		metrics.ObserveItemRejected(reason)
		f.logger.Debug("fetched page failed quality gate, using feed data",
			zap.String("url", entry.Link),
			zap.String("reason", reason),
		)
		cost = 0
	} else {
		page = p
		fetched = true
	}

	var body, title, summary, author string
	publishedAt := entry.PublishedAt
	if fetched {
		body = page.Text
		title = page.Title
		if title == "" {
			title = entry.Title
		}
		summary = page.Summary
		if summary == "" {
			summary = entry.Summary
		}
		author = page.Author
		if author == "" {
			author = entry.Author
		}
		if page.PublishedAt != nil {
			publishedAt = page.PublishedAt
		}
	} else {
		body = entry.Body
		if body == "" {
			body = entry.Summary
		}
		title = entry.Title
		summary = entry.Summary
		author = entry.Author
	}
	if body == "" {
		return nil, nil
	}
	if summary == "" {
		summary = firstChars(body, 500)
	}

	return f.buildItem(source, entry.Link, title, body, summary, author, publishedAt, pipeline.DiscoveryFeed, cost)
}

// crawlSource discovers items by crawling the source's base URL. Crawled
// pages pass the same article filters plus the quality gate.
func (f *SourceFetcher) crawlSource(ctx context.Context, source pipeline.Source, seen map[string]struct{}, result *pipeline.SourceResult) ([]pipeline.Item, error) {
	maxPages := source.MaxCrawlPages
	if maxPages <= 0 {
		maxPages = f.opts.MaxCrawlPages
	}

	pages, err := f.pages.Crawl(ctx, source.URL, maxPages)
	if err != nil {
		return nil, fmt.Errorf("crawl %s: %w", source.URL, err)
	}

	var items []pipeline.Item
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return items, err
		}
		if !IsArticleURL(page.URL, page.Title) {
			metrics.ObserveItemRejected("non_article")
			continue
		}
		if reason, ok := f.opts.Quality.Check(page.Text); !ok {
			metrics.ObserveItemRejected(reason)
			continue
		}
		if skip, err := f.isDuplicate(ctx, page.URL, seen); err != nil {
			return items, err
		} else if skip {
			metrics.ObserveItemRejected("duplicate")
			continue
		}

		summary := page.Summary
		if summary == "" {
			summary = firstChars(page.Text, 500)
		}
		item, err := f.buildItem(source, page.URL, page.Title, page.Text, summary, page.Author, page.PublishedAt, pipeline.DiscoveryCrawl, 1)
		if err != nil {
			f.logger.Error("error processing crawled page",
				zap.String("url", page.URL),
				zap.Error(err),
			)
			continue
		}

		if seen != nil {
			seen[page.URL] = struct{}{}
		}
		items = append(items, *item)
		result.Scraped++
		metrics.ObserveItemScraped(source.URL, string(pipeline.DiscoveryCrawl))
	}

	// Crawls bill a floor regardless of yield.
	cost := len(items)
	if cost < crawlCostFloor {
		cost = crawlCostFloor
	}
	result.CostUnits += cost

	return items, nil
}

func (f *SourceFetcher) isDuplicate(ctx context.Context, url string, seen map[string]struct{}) (bool, error) {
	if !f.opts.Dedup {
		return false, nil
	}
	if seen != nil {
		if _, ok := seen[url]; ok {
			return true, nil
		}
	}
	exists, err := f.store.URLExists(ctx, url)
	if err != nil {
		return false, fmt.Errorf("check url exists: %w", err)
	}
	return exists, nil
}

func (f *SourceFetcher) buildItem(
	source pipeline.Source,
	url, title, body, summary, author string,
	publishedAt *time.Time,
	method pipeline.DiscoveryMethod,
	cost int,
) (*pipeline.Item, error) {
	id, err := f.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate item id: %w", err)
	}
	hash, err := f.hasher.Hash([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("hash content: %w", err)
	}

	sourceID := source.ID
	return &pipeline.Item{
		ID:          id,
		SourceID:    &sourceID,
		URL:         url,
		Title:       title,
		Body:        body,
		Summary:     summary,
		Author:      author,
		PublishedAt: publishedAt,
		FetchedAt:   f.clock.Now(),
		ContentHash: hash,
		Keywords:    ExtractKeywords(title + " " + body),
		Provenance: pipeline.Provenance{
			Method:    method,
			CostUnits: cost,
		},
		SourceName: source.Name,
	}, nil
}

func firstChars(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
