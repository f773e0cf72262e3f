package selection

import (
	"sort"

	"go.uber.org/zap"

	"github.com/google/uuid"

	"github.com/contentops/contentpipe/internal/pipeline"
)

// Tier boundaries for tiered selection.
const (
	tier1Threshold = 0.8
	tier2Threshold = 0.6
	tier3Threshold = 0.5
)

// Selector picks items for dispatch from a scored pool.
type Selector struct {
	logger *zap.Logger
}

// New creates a Selector.
func New(logger *zap.Logger) *Selector {
	return &Selector{logger: logger}
}

func scoreOf(item pipeline.Item) float64 {
	if item.Score == nil {
		return 0
	}
	return *item.Score
}

func sortByScoreDesc(items []pipeline.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return scoreOf(items[i]) > scoreOf(items[j])
	})
}

// SelectDiverse picks up to maxItems from the pool, spreading the
// allocation evenly across content categories. When the pool already fits
// within maxItems it is returned unchanged. With diversity disabled the
// top maxItems by score are returned.
func (s *Selector) SelectDiverse(items []pipeline.Item, maxItems int, ensureDiversity bool) []pipeline.Item {
	if len(items) == 0 {
		return nil
	}
	if len(items) <= maxItems {
		return items
	}

	if !ensureDiversity {
		sorted := make([]pipeline.Item, len(items))
		copy(sorted, items)
		sortByScoreDesc(sorted)
		return sorted[:maxItems]
	}

	s.logger.Info("selecting diverse content",
		zap.Int("total_available", len(items)),
		zap.Int("target_count", maxItems),
	)

	// Bucket by category, preserving first-encounter order of categories.
	byCategory := make(map[pipeline.Category][]pipeline.Item)
	var categories []pipeline.Category
	for _, item := range items {
		cat := Classify(item)
		if _, ok := byCategory[cat]; !ok {
			categories = append(categories, cat)
		}
		byCategory[cat] = append(byCategory[cat], item)
	}
	for _, cat := range categories {
		sortByScoreDesc(byCategory[cat])
	}

	// Even allocation per category; the remainder goes to the categories
	// encountered first.
	base := maxItems / len(categories)
	remainder := maxItems % len(categories)

	var selected []pipeline.Item
	for i, cat := range categories {
		allocation := base
		if i < remainder {
			allocation++
		}
		bucket := byCategory[cat]
		if allocation > len(bucket) {
			allocation = len(bucket)
		}
		selected = append(selected, bucket[:allocation]...)

		s.logger.Debug("selected from category",
			zap.String("category", string(cat)),
			zap.Int("allocated", allocation),
			zap.Int("available", len(bucket)),
		)
	}

	// Backfill from the leftover pool by score when thin categories left
	// slots unused.
	if len(selected) < maxItems {
		chosen := make(map[uuid.UUID]struct{}, len(selected))
		for _, item := range selected {
			chosen[item.ID] = struct{}{}
		}
		var remaining []pipeline.Item
		for _, item := range items {
			if _, ok := chosen[item.ID]; !ok {
				remaining = append(remaining, item)
			}
		}
		sortByScoreDesc(remaining)
		needed := maxItems - len(selected)
		if needed > len(remaining) {
			needed = len(remaining)
		}
		selected = append(selected, remaining[:needed]...)
	}

	sortByScoreDesc(selected)
	if len(selected) > maxItems {
		selected = selected[:maxItems]
	}
	return selected
}

// SelectTiered picks items in quality tiers: excellent items first, then a
// diverse slice of great items, then good items to fill. The tier caps are
// floors rather than strict shares, so small targets can be exceeded when
// high tiers are full.
func (s *Selector) SelectTiered(items []pipeline.Item, maxItems int) []pipeline.Item {
	s.logger.Info("selecting tiered content", zap.Int("total_available", len(items)))

	var tier1 []pipeline.Item
	for _, item := range items {
		if scoreOf(item) >= tier1Threshold {
			tier1 = append(tier1, item)
		}
	}
	sortByScoreDesc(tier1)
	tier1Limit := max(int(float64(maxItems)*0.4), 5)
	if tier1Limit > len(tier1) {
		tier1Limit = len(tier1)
	}
	selected := make([]pipeline.Item, tier1Limit)
	copy(selected, tier1[:tier1Limit])

	chosen := make(map[uuid.UUID]struct{}, len(selected))
	for _, item := range selected {
		chosen[item.ID] = struct{}{}
	}

	var tier2 []pipeline.Item
	for _, item := range items {
		sc := scoreOf(item)
		if sc >= tier2Threshold && sc < tier1Threshold {
			if _, ok := chosen[item.ID]; !ok {
				tier2 = append(tier2, item)
			}
		}
	}
	tier2Limit := max(int(float64(maxItems)*0.5), 7)
	if tier2Limit > len(tier2) {
		tier2Limit = len(tier2)
	}
	if len(tier2) > 0 {
		for _, item := range s.SelectDiverse(tier2, tier2Limit, true) {
			selected = append(selected, item)
			chosen[item.ID] = struct{}{}
		}
	}

	if len(selected) < maxItems {
		var tier3 []pipeline.Item
		for _, item := range items {
			sc := scoreOf(item)
			if sc >= tier3Threshold && sc < tier2Threshold {
				if _, ok := chosen[item.ID]; !ok {
					tier3 = append(tier3, item)
				}
			}
		}
		sortByScoreDesc(tier3)
		needed := maxItems - len(selected)
		if needed > len(tier3) {
			needed = len(tier3)
		}
		selected = append(selected, tier3[:needed]...)
	}

	s.logger.Info("tiered selection completed",
		zap.Int("tier1_count", tier1Limit),
		zap.Int("total_selected", len(selected)),
	)

	return selected
}
