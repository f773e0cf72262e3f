// Package fetch discovers candidate items from registered sources via
// feeds or crawling, applying article filters and a content quality gate.
package fetch

import (
	"strings"
)

// URL path fragments that mark listing, archive, or syndication pages
// rather than articles.
var invalidURLPatterns = []string{
	"/page/",
	"/category/",
	"/archives/",
	"/archive/",
	"/tag/",
	"/tags/",
	"/author/",
	"/feed/",
	"/rss",
}

// Title fragments typical of archive and pagination pages. A title must
// match at least two before it disqualifies an otherwise valid URL.
var archiveTitleIndicators = []string{
	"page ",
	" of ",
	"archives",
	"category:",
	"tag:",
}

// IsArticleURL reports whether a URL looks like an individual article.
// The title check is deliberately strict: a single indicator is common in
// legitimate headlines, two or more almost always means an archive page.
func IsArticleURL(rawURL, title string) bool {
	lowered := strings.ToLower(rawURL)
	for _, pattern := range invalidURLPatterns {
		if strings.Contains(lowered, pattern) {
			return false
		}
	}

	if title != "" {
		titleLower := strings.ToLower(title)
		hits := 0
		for _, ind := range archiveTitleIndicators {
			if strings.Contains(titleLower, ind) {
				hits++
			}
		}
		if hits >= 2 {
			return false
		}
	}

	return true
}

// QualityPolicy holds the thresholds of the content quality gate.
type QualityPolicy struct {
	MinContentLength   int
	MaxListingLinks    int
	ShortBodyLength    int
	MinTextBlocks      int
	TextBlockMinLength int
}

// DefaultQualityPolicy mirrors the gate applied to production sources.
func DefaultQualityPolicy() QualityPolicy {
	return QualityPolicy{
		MinContentLength:   500,
		MaxListingLinks:    20,
		ShortBodyLength:    2000,
		MinTextBlocks:      3,
		TextBlockMinLength: 50,
	}
}

// Rejection reasons reported by Check, used as metric labels.
const (
	RejectEmpty         = "empty"
	RejectTooShort      = "too_short"
	RejectLinkListing   = "link_listing"
	RejectThinParagraph = "thin_paragraphs"
)

// Check validates body text against the policy. It returns ok=true for
// acceptable content, otherwise a rejection reason.
func (p QualityPolicy) Check(body string) (reason string, ok bool) {
	if body == "" {
		return RejectEmpty, false
	}
	if len(body) < p.MinContentLength {
		return RejectTooShort, false
	}

	// Markdown-style link density: many links in a short body means a
	// listing page, not an article.
	linkCount := strings.Count(body, "[")
	if linkCount > p.MaxListingLinks && len(body) < p.ShortBodyLength {
		return RejectLinkListing, false
	}

	blocks := 0
	for _, line := range strings.Split(body, "\n") {
		if len(strings.TrimSpace(line)) > p.TextBlockMinLength {
			blocks++
		}
	}
	if blocks < p.MinTextBlocks {
		return RejectThinParagraph, false
	}

	return "", true
}
