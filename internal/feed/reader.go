// Package feed reads RSS/Atom feeds and normalizes their entries.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/contentops/contentpipe/internal/pipeline"
)

// Reader implements pipeline.FeedReader on top of gofeed. Entries older
// than the freshness window are dropped; undated entries are kept and
// penalized later by the freshness score component instead.
type Reader struct {
	parser        *gofeed.Parser
	freshnessDays int
	clock         pipeline.Clock
	logger        *zap.Logger
}

// New creates a Reader. A nil client falls back to http.DefaultClient.
func New(client *http.Client, freshnessDays int, clock pipeline.Clock, logger *zap.Logger) *Reader {
	parser := gofeed.NewParser()
	if client != nil {
		parser.Client = client
	}
	return &Reader{
		parser:        parser,
		freshnessDays: freshnessDays,
		clock:         clock,
		logger:        logger,
	}
}

// FetchEntries fetches and parses a feed, returning recent entries in
// feed order.
func (r *Reader) FetchEntries(ctx context.Context, feedURL string) ([]pipeline.FeedEntry, error) {
	parsed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, &pipeline.DiscoveryError{URL: feedURL, Err: fmt.Errorf("parse feed: %w", err)}
	}

	cutoff := r.clock.Now().AddDate(0, 0, -r.freshnessDays)

	var entries []pipeline.FeedEntry
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		publishedAt := publishedTime(item)
		if publishedAt != nil && publishedAt.Before(cutoff) {
			continue
		}

		entries = append(entries, pipeline.FeedEntry{
			Title:       item.Title,
			Link:        item.Link,
			Summary:     item.Description,
			Body:        item.Content,
			Author:      authorName(item),
			Tags:        item.Categories,
			PublishedAt: publishedAt,
		})
	}

	r.logger.Info("feed fetched",
		zap.String("url", feedURL),
		zap.String("feed_title", parsed.Title),
		zap.Int("total_entries", len(parsed.Items)),
		zap.Int("recent_entries", len(entries)),
	)

	return entries, nil
}

// Validate checks that a feed is reachable, parseable, and non-empty.
func (r *Reader) Validate(ctx context.Context, feedURL string) error {
	parsed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	if len(parsed.Items) == 0 {
		return fmt.Errorf("feed %s has no entries", feedURL)
	}
	return nil
}

func publishedTime(item *gofeed.Item) *time.Time {
	switch {
	case item.PublishedParsed != nil:
		t := item.PublishedParsed.UTC()
		return &t
	case item.UpdatedParsed != nil:
		t := item.UpdatedParsed.UTC()
		return &t
	default:
		return nil
	}
}

func authorName(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	return ""
}
