// Package pipeline defines the core types and collaborator interfaces for
// the content acquisition and dispatch pipeline.
package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// DiscoveryMethod records how a candidate item was found.
type DiscoveryMethod string

// Discovery methods recorded in item provenance.
const (
	DiscoveryFeed  DiscoveryMethod = "feed"
	DiscoveryCrawl DiscoveryMethod = "crawl"
)

// Category classifies an item's content for selection and payload building.
type Category string

// Content categories. Ties and all-zero indicator counts default to news.
const (
	CategoryNews              Category = "industry_news"
	CategoryThoughtLeadership Category = "thought_leadership"
	CategoryCaseStudy         Category = "case_study"
)

// JobStatus is the lifecycle state of a submission job. Transitions are
// monotonic: INITIATED -> SUBMITTED or INITIATED -> FAILED.
type JobStatus string

// Submission job status values persisted in the job store.
const (
	JobStatusInitiated JobStatus = "INITIATED"
	JobStatusSubmitted JobStatus = "SUBMITTED"
	JobStatusFailed    JobStatus = "FAILED"
)

// Source describes one registered content source. Sources are created by
// operator configuration and never hard-deleted; deactivation clears the
// Active flag.
type Source struct {
	ID            uuid.UUID         `json:"id"`
	Name          string            `json:"name"`
	URL           string            `json:"url"`
	Category      string            `json:"category"`
	FeedURL       string            `json:"feed_url,omitempty"`
	HasFeed       bool              `json:"has_feed"`
	MaxCrawlPages int               `json:"max_crawl_pages"`
	Active        bool              `json:"active"`
	LastFetchedAt *time.Time        `json:"last_fetched_at,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Provenance records how an item was discovered and what it cost.
type Provenance struct {
	Method    DiscoveryMethod `json:"method"`
	CostUnits int             `json:"cost_units"`
}

// Item is a discovered, not-yet-dispatched content unit. URL is the unique
// key across all stored items. Score is nil until the item has been scored
// and lies in [0,1] afterwards. Processed flips false->true exactly once,
// after a successful submission.
type Item struct {
	ID          uuid.UUID  `json:"id"`
	SourceID    *uuid.UUID `json:"source_id,omitempty"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Summary     string     `json:"summary"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`
	ContentHash string     `json:"content_hash"`
	Keywords    []string   `json:"keywords"`
	Score       *float64   `json:"score,omitempty"`
	Processed   bool       `json:"processed"`
	Provenance  Provenance `json:"provenance"`
	SourceName  string     `json:"source_name,omitempty"`
}

// PayloadValue is one typed input-variable value submitted to the workflow
// platform.
type PayloadValue struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

// SubmissionJob tracks one dispatch attempt against the workflow platform.
// The record is persisted in INITIATED status before any remote call so a
// submission attempt survives a crash.
type SubmissionJob struct {
	ID          uuid.UUID               `json:"id"`
	ItemID      uuid.UUID               `json:"item_id"`
	WorkflowID  string                  `json:"workflow_id"`
	ExecutionID string                  `json:"execution_id,omitempty"`
	Status      JobStatus               `json:"status"`
	Payload     map[string]PayloadValue `json:"payload,omitempty"`
	Result      map[string]string       `json:"result,omitempty"`
	ErrorText   string                  `json:"error_text,omitempty"`
	InitiatedAt time.Time               `json:"initiated_at"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
}

// FeedEntry is one normalized entry from an RSS/Atom feed.
type FeedEntry struct {
	Title       string
	Link        string
	Summary     string
	Body        string
	Author      string
	Tags        []string
	PublishedAt *time.Time
}

// Page is the result of scraping a single URL.
type Page struct {
	URL         string
	Title       string
	Text        string
	HTML        string
	Summary     string
	Author      string
	PublishedAt *time.Time
}

// InputVariable describes one workflow input slot from the platform schema.
type InputVariable struct {
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
}

// SourceResult is the per-source breakdown reported in a run summary.
type SourceResult struct {
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Method    DiscoveryMethod `json:"method,omitempty"`
	Scraped   int             `json:"scraped"`
	Stored    int             `json:"stored"`
	CostUnits int             `json:"cost_units"`
}

// RunSummary reports the outcome of one pipeline invocation. Partial
// failures are reported as counts, never surfaced as errors.
type RunSummary struct {
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
	ItemsScraped   int            `json:"items_scraped"`
	ItemsSelected  int            `json:"items_selected"`
	JobsSubmitted  int            `json:"jobs_submitted"`
	JobsFailed     int            `json:"jobs_failed"`
	QuotaRemaining int            `json:"quota_remaining"`
	CostUnits      int            `json:"cost_units"`
	Sources        []SourceResult `json:"sources,omitempty"`
}
