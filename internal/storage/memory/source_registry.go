// Package memory provides in-memory store implementations for
// development and testing.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/contentops/contentpipe/internal/pipeline"
)

// SourceRegistry keeps registered sources in memory.
type SourceRegistry struct {
	mu      sync.RWMutex
	sources map[uuid.UUID]pipeline.Source
	order   []uuid.UUID
}

// NewSourceRegistry constructs a SourceRegistry seeded with the given
// sources.
func NewSourceRegistry(sources ...pipeline.Source) *SourceRegistry {
	r := &SourceRegistry{sources: make(map[uuid.UUID]pipeline.Source)}
	for _, s := range sources {
		r.sources[s.ID] = s
		r.order = append(r.order, s.ID)
	}
	return r
}

// Add registers a source.
func (r *SourceRegistry) Add(source pipeline.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sources[source.ID]; !exists {
		r.order = append(r.order, source.ID)
	}
	r.sources[source.ID] = source
}

// ListActive returns active sources in registration order.
func (r *SourceRegistry) ListActive(_ context.Context) ([]pipeline.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []pipeline.Source
	for _, id := range r.order {
		if s, ok := r.sources[id]; ok && s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

// UpdateLastFetched records when a source was last fetched.
func (r *SourceRegistry) UpdateLastFetched(_ context.Context, sourceID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sources[sourceID]
	if !ok {
		return pipeline.ErrNotFound
	}
	ts := at
	s.LastFetchedAt = &ts
	r.sources[sourceID] = s
	return nil
}
