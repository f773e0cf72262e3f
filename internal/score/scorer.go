// Package score computes relevance scores for acquired content items.
package score

import (
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/contentops/contentpipe/internal/pipeline"
)

// Component weights. They sum to 1.0 so the final score stays in [0,1].
const (
	keywordWeight   = 0.4
	titleWeight     = 0.3
	qualityWeight   = 0.2
	freshnessWeight = 0.1

	// keywordSaturation is the distinct-match count at which the keyword
	// component reaches its maximum.
	keywordSaturation = 5
)

// DefaultKeywords is the built-in relevance vocabulary used when no
// override is configured.
var DefaultKeywords = []string{
	"automation", "ai", "artificial intelligence", "machine learning",
	"workflow", "process", "business", "efficiency", "productivity",
	"digital transformation", "rpa", "intelligent automation",
	"enterprise", "saas", "b2b", "technology", "innovation",
	"integration", "orchestration", "optimization", "streamline",
}

// Scorer assigns a relevance score in [0,1] to an item based on keyword
// matches, title relevance, content quality, and recency.
type Scorer struct {
	keywords []string
	clock    pipeline.Clock
	logger   *zap.Logger
}

// New creates a Scorer. An empty keyword slice falls back to
// DefaultKeywords. Keywords are matched case-insensitively.
func New(keywords []string, clock pipeline.Clock, logger *zap.Logger) *Scorer {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lowered := make([]string, len(keywords))
	for i, kw := range keywords {
		lowered[i] = strings.ToLower(kw)
	}
	return &Scorer{keywords: lowered, clock: clock, logger: logger}
}

// Score computes the weighted relevance score for an item, rounded to
// three decimal places.
func (s *Scorer) Score(item pipeline.Item) float64 {
	keywordScore := s.keywordComponent(item)
	titleScore := s.titleComponent(item)
	qualityScore := s.qualityComponent(item)
	freshnessScore := s.freshnessComponent(item)

	total := keywordScore*keywordWeight +
		titleScore*titleWeight +
		qualityScore*qualityWeight +
		freshnessScore*freshnessWeight

	rounded := math.Round(total*1000) / 1000

	s.logger.Debug("calculated relevance score",
		zap.String("url", item.URL),
		zap.Float64("score", rounded),
		zap.Float64("keyword_score", keywordScore),
		zap.Float64("title_score", titleScore),
		zap.Float64("quality_score", qualityScore),
		zap.Float64("freshness_score", freshnessScore),
	)

	return rounded
}

// keywordComponent counts distinct vocabulary entries appearing in the
// title, summary, or extracted keywords. Five or more matches saturate.
func (s *Scorer) keywordComponent(item pipeline.Item) float64 {
	text := strings.ToLower(item.Title + " " + item.Summary + " " + strings.Join(item.Keywords, " "))

	matched := 0
	for _, kw := range s.keywords {
		if strings.Contains(text, kw) {
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	return math.Min(float64(matched)/keywordSaturation, 1.0)
}

// titleComponent is binary: any vocabulary entry in the title scores 1.
func (s *Scorer) titleComponent(item pipeline.Item) float64 {
	if item.Title == "" {
		return 0
	}
	title := strings.ToLower(item.Title)
	for _, kw := range s.keywords {
		if strings.Contains(title, kw) {
			return 1.0
		}
	}
	return 0
}

// qualityComponent rewards body length, a usable summary, and author
// attribution. The sub-scores are additive and capped at 1.0.
func (s *Scorer) qualityComponent(item pipeline.Item) float64 {
	quality := 0.0
	switch n := len(item.Body); {
	case n > 1000:
		quality += 0.5
	case n > 500:
		quality += 0.3
	case n > 200:
		quality += 0.1
	}
	if len(item.Summary) > 50 {
		quality += 0.3
	}
	if item.Author != "" {
		quality += 0.2
	}
	return math.Min(quality, 1.0)
}

// freshnessComponent steps down with publication age. Undated items get
// a neutral 0.5.
func (s *Scorer) freshnessComponent(item pipeline.Item) float64 {
	if item.PublishedAt == nil {
		return 0.5
	}
	age := s.clock.Now().Sub(item.PublishedAt.UTC())
	switch {
	case age < 24*time.Hour:
		return 1.0
	case age < 7*24*time.Hour:
		return 0.8
	case age < 30*24*time.Hour:
		return 0.6
	case age < 90*24*time.Hour:
		return 0.4
	default:
		return 0.2
	}
}
