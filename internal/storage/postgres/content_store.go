package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/contentops/contentpipe/internal/pipeline"
)

// ContentStore implements pipeline.ContentStore on Postgres. URL
// uniqueness is enforced by a unique constraint on items.url so dedup
// holds under concurrent writers.
type ContentStore struct {
	pool dbPool
}

// NewContentStore constructs a ContentStore from an existing pool.
func NewContentStore(pool dbPool) *ContentStore {
	return &ContentStore{pool: pool}
}

// Close releases the underlying pool resources.
func (s *ContentStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Insert stores an item, translating a unique-constraint violation into
// ErrDuplicateURL.
func (s *ContentStore) Insert(ctx context.Context, item pipeline.Item) (uuid.UUID, error) {
	_, err := s.pool.Exec(ctx, `
INSERT INTO items (
	id, source_id, url, title, body, summary, author,
	published_at, fetched_at, content_hash, keywords,
	score, processed, discovery_method, cost_units, source_name
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
)`,
		item.ID,
		item.SourceID,
		item.URL,
		item.Title,
		item.Body,
		item.Summary,
		item.Author,
		item.PublishedAt,
		item.FetchedAt,
		item.ContentHash,
		item.Keywords,
		item.Score,
		item.Processed,
		string(item.Provenance.Method),
		item.Provenance.CostUnits,
		item.SourceName,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, pipeline.ErrDuplicateURL
		}
		return uuid.Nil, fmt.Errorf("insert item: %w", err)
	}
	return item.ID, nil
}

// URLExists reports whether an item with the URL is already stored.
func (s *ContentStore) URLExists(ctx context.Context, url string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM items WHERE url = $1)`, url).Scan(&exists); err != nil {
		return false, fmt.Errorf("check url exists: %w", err)
	}
	return exists, nil
}

// ListUnprocessed returns unprocessed items scoring at least minScore,
// best first.
func (s *ContentStore) ListUnprocessed(ctx context.Context, minScore float64, limit int) ([]pipeline.Item, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, source_id, url, title, body, summary, author,
       published_at, fetched_at, content_hash, keywords,
       score, processed, discovery_method, cost_units, source_name
FROM items
WHERE processed = FALSE AND score IS NOT NULL AND score >= $1
ORDER BY score DESC
LIMIT $2`, minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed items: %w", err)
	}
	defer rows.Close()

	var items []pipeline.Item
	for rows.Next() {
		var (
			item   pipeline.Item
			method string
		)
		if err := rows.Scan(
			&item.ID,
			&item.SourceID,
			&item.URL,
			&item.Title,
			&item.Body,
			&item.Summary,
			&item.Author,
			&item.PublishedAt,
			&item.FetchedAt,
			&item.ContentHash,
			&item.Keywords,
			&item.Score,
			&item.Processed,
			&method,
			&item.Provenance.CostUnits,
			&item.SourceName,
		); err != nil {
			return nil, fmt.Errorf("scan item row: %w", err)
		}
		item.Provenance.Method = pipeline.DiscoveryMethod(method)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item rows: %w", err)
	}
	return items, nil
}

// UpdateScore sets an item's relevance score.
func (s *ContentStore) UpdateScore(ctx context.Context, itemID uuid.UUID, score float64) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE items SET score = $2 WHERE id = $1`, itemID, score)
	if err != nil {
		return fmt.Errorf("update item score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pipeline.ErrNotFound
	}
	return nil
}

// MarkProcessed flips an item's processed flag.
func (s *ContentStore) MarkProcessed(ctx context.Context, itemID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE items SET processed = TRUE WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("mark item processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pipeline.ErrNotFound
	}
	return nil
}
