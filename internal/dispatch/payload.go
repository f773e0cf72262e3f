// Package dispatch builds workflow payloads and submits selected items to
// the external platform.
package dispatch

import (
	"sort"
	"strings"
	"time"

	"github.com/contentops/contentpipe/internal/pipeline"
)

// unknownDate is the sentinel sent when an item has no publish date; the
// platform's input nodes reject null values.
const unknownDate = "N/A"

// fieldMapping binds one item field to the display-name patterns that
// identify its slot in the workflow schema.
type fieldMapping struct {
	name     string
	patterns []string
	strict   bool
	value    func(item pipeline.Item) string
}

// fieldMappings in priority order. The main content field is strict: its
// display name must equal a pattern, or contain one alongside the word
// "raw", so a loose substring can never swallow the content slot.
var fieldMappings = []fieldMapping{
	{
		name:     "main_content",
		patterns: []string{"raw_ai_text", "raw ai text", "raw_ai_industry", "raw ai industry"},
		strict:   true,
		value:    func(item pipeline.Item) string { return item.Body },
	},
	{
		name:     "article_title",
		patterns: []string{"article_title", "article title", "article-title"},
		value:    func(item pipeline.Item) string { return item.Title },
	},
	{
		name:     "article_url",
		patterns: []string{"article_url", "article url", "article-url"},
		value:    func(item pipeline.Item) string { return item.URL },
	},
	{
		name:     "keywords",
		patterns: []string{"keywords", "keyword"},
		value:    func(item pipeline.Item) string { return strings.Join(item.Keywords, ", ") },
	},
	{
		name:     "content_source",
		patterns: []string{"content_source", "content source", "content-source"},
		value:    func(item pipeline.Item) string { return item.SourceName },
	},
	{
		name:     "published_date",
		patterns: []string{"published_date", "published date", "published-date", "publish date"},
		value: func(item pipeline.Item) string {
			if item.PublishedAt == nil {
				return unknownDate
			}
			return item.PublishedAt.UTC().Format(time.RFC3339)
		},
	},
}

// BuildPayload maps item fields onto the workflow's input variables by
// display-name pattern matching. It fails with ErrMainContentUnmapped when
// no schema variable accepts the item body, before any record or remote
// call is made.
func BuildPayload(item pipeline.Item, schema map[string]pipeline.InputVariable) (map[string]pipeline.PayloadValue, error) {
	// Deterministic variable order keeps mapping stable across runs.
	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)

	payload := make(map[string]pipeline.PayloadValue)
	mainMapped := false
	used := make(map[string]bool, len(fieldMappings))

	for _, varName := range names {
		variable := schema[varName]
		display := strings.ToLower(variable.DisplayName)

		for _, field := range fieldMappings {
			if used[field.name] {
				continue
			}
			if !matches(field, display) {
				continue
			}
			varType := variable.Type
			if varType == "" {
				varType = "str"
			}
			payload[varName] = pipeline.PayloadValue{
				Value: field.value(item),
				Type:  varType,
			}
			used[field.name] = true
			if field.name == "main_content" {
				mainMapped = true
			}
			break
		}
	}

	if !mainMapped {
		return nil, pipeline.ErrMainContentUnmapped
	}
	return payload, nil
}

func matches(field fieldMapping, display string) bool {
	for _, pattern := range field.patterns {
		if field.strict {
			if display == pattern || (strings.Contains(display, pattern) && strings.Contains(display, "raw")) {
				return true
			}
			continue
		}
		if strings.Contains(display, pattern) {
			return true
		}
	}
	return false
}
