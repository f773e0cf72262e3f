// Package selection classifies scored items and picks a diverse,
// quality-ordered subset for dispatch.
package selection

import (
	"strings"

	"github.com/contentops/contentpipe/internal/pipeline"
)

// Indicator phrases per category. Matching is substring-based over the
// lowercased title and summary.
var (
	newsIndicators = []string{
		"announce", "launch", "release", "new", "latest", "update",
	}
	thoughtIndicators = []string{
		"future", "trend", "prediction", "analysis", "insight", "perspective",
	}
	caseStudyIndicators = []string{
		"success", "case study", "customer", "client", "implementation", "roi", "results",
	}
)

// Classify buckets an item into a content category by counting indicator
// phrases. Ties resolve in favor of industry news, then thought
// leadership. Items matching nothing default to industry news.
func Classify(item pipeline.Item) pipeline.Category {
	text := strings.ToLower(item.Title + " " + item.Summary)

	count := func(indicators []string) int {
		n := 0
		for _, ind := range indicators {
			if strings.Contains(text, ind) {
				n++
			}
		}
		return n
	}

	news := count(newsIndicators)
	thought := count(thoughtIndicators)
	caseStudy := count(caseStudyIndicators)

	best := pipeline.CategoryNews
	bestScore := news
	if thought > bestScore {
		best = pipeline.CategoryThoughtLeadership
		bestScore = thought
	}
	if caseStudy > bestScore {
		best = pipeline.CategoryCaseStudy
		bestScore = caseStudy
	}
	if bestScore == 0 {
		return pipeline.CategoryNews
	}
	return best
}
