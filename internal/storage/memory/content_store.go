package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/contentops/contentpipe/internal/pipeline"
)

// ContentStore keeps candidate items in memory with URL uniqueness
// enforced, mirroring the postgres unique constraint.
type ContentStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]pipeline.Item
	byURL map[string]uuid.UUID
}

// NewContentStore constructs a ContentStore.
func NewContentStore() *ContentStore {
	return &ContentStore{
		items: make(map[uuid.UUID]pipeline.Item),
		byURL: make(map[string]uuid.UUID),
	}
}

// Insert stores an item, rejecting duplicate URLs.
func (s *ContentStore) Insert(_ context.Context, item pipeline.Item) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byURL[item.URL]; exists {
		return uuid.Nil, pipeline.ErrDuplicateURL
	}
	s.items[item.ID] = item
	s.byURL[item.URL] = item.ID
	return item.ID, nil
}

// URLExists reports whether an item with the URL is already stored.
func (s *ContentStore) URLExists(_ context.Context, url string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.byURL[url]
	return exists, nil
}

// ListUnprocessed returns unprocessed items with a score of at least
// minScore, ordered by descending score and limited to limit.
func (s *ContentStore) ListUnprocessed(_ context.Context, minScore float64, limit int) ([]pipeline.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []pipeline.Item
	for _, item := range s.items {
		if item.Processed || item.Score == nil || *item.Score < minScore {
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].Score > *out[j].Score
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateScore sets an item's relevance score.
func (s *ContentStore) UpdateScore(_ context.Context, itemID uuid.UUID, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return pipeline.ErrNotFound
	}
	item.Score = &score
	s.items[itemID] = item
	return nil
}

// MarkProcessed flips an item's processed flag.
func (s *ContentStore) MarkProcessed(_ context.Context, itemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return pipeline.ErrNotFound
	}
	item.Processed = true
	s.items[itemID] = item
	return nil
}

// Get fetches an item by ID.
func (s *ContentStore) Get(_ context.Context, itemID uuid.UUID) (pipeline.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[itemID]
	if !ok {
		return pipeline.Item{}, pipeline.ErrNotFound
	}
	return item, nil
}
