package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/contentops/contentpipe/internal/pipeline"
)

// SourceStore implements pipeline.SourceRegistry on Postgres.
type SourceStore struct {
	pool dbPool
}

// NewSourceStore constructs a SourceStore from an existing pool.
func NewSourceStore(pool dbPool) *SourceStore {
	return &SourceStore{pool: pool}
}

// Close releases the underlying pool resources.
func (s *SourceStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// ListActive returns active sources ordered by name.
func (s *SourceStore) ListActive(ctx context.Context) ([]pipeline.Source, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, name, url, category, feed_url, has_feed, max_crawl_pages, active, last_fetched_at
FROM sources
WHERE active = TRUE
ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}
	defer rows.Close()

	var sources []pipeline.Source
	for rows.Next() {
		var (
			src     pipeline.Source
			feedURL *string
			lastAt  *time.Time
		)
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &src.Category, &feedURL, &src.HasFeed, &src.MaxCrawlPages, &src.Active, &lastAt); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		if feedURL != nil {
			src.FeedURL = *feedURL
		}
		src.LastFetchedAt = lastAt
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source rows: %w", err)
	}
	return sources, nil
}

// UpdateLastFetched records when a source was last fetched.
func (s *SourceStore) UpdateLastFetched(ctx context.Context, sourceID uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE sources SET last_fetched_at = $2 WHERE id = $1`, sourceID, at)
	if err != nil {
		return fmt.Errorf("update last fetched: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pipeline.ErrNotFound
	}
	return nil
}
