package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SourceRegistry reads and maintains the registered content sources.
type SourceRegistry interface {
	ListActive(ctx context.Context) ([]Source, error)
	UpdateLastFetched(ctx context.Context, sourceID uuid.UUID, at time.Time) error
}

// ContentStore persists candidate items. Insert must reject a URL that is
// already stored (ErrDuplicateURL) so deduplication holds under concurrent
// writers.
type ContentStore interface {
	Insert(ctx context.Context, item Item) (uuid.UUID, error)
	URLExists(ctx context.Context, url string) (bool, error)
	ListUnprocessed(ctx context.Context, minScore float64, limit int) ([]Item, error)
	UpdateScore(ctx context.Context, itemID uuid.UUID, score float64) error
	MarkProcessed(ctx context.Context, itemID uuid.UUID) error
}

// JobStore persists submission job lifecycle state.
type JobStore interface {
	Create(ctx context.Context, job SubmissionJob) error
	UpdateStatus(ctx context.Context, jobID uuid.UUID, status JobStatus, errText string, result map[string]string) error
	CountInitiatedSince(ctx context.Context, since time.Time) (int, error)
	Get(ctx context.Context, jobID uuid.UUID) (SubmissionJob, error)
}

// FeedReader fetches and normalizes RSS/Atom feed entries.
type FeedReader interface {
	FetchEntries(ctx context.Context, feedURL string) ([]FeedEntry, error)
	Validate(ctx context.Context, feedURL string) error
}

// PageScraper fetches a single page or crawls a site up to maxPages.
// Failures are errors, never partial results.
type PageScraper interface {
	FetchPage(ctx context.Context, url string) (Page, error)
	Crawl(ctx context.Context, baseURL string, maxPages int) ([]Page, error)
}

// WorkflowClient talks to the external workflow-execution platform.
type WorkflowClient interface {
	InputSchema(ctx context.Context) (map[string]InputVariable, error)
	Initiate(ctx context.Context, title, description string) (string, error)
	Execute(ctx context.Context, executionID string, payload map[string]PayloadValue) error
	Status(ctx context.Context, executionID string) (string, error)
}

// Publisher pushes run-summary events to an external topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes content digests for duplicate detection.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs.
type IDGenerator interface {
	NewID() (uuid.UUID, error)
}

// RetryPolicy decides whether and when a failed remote call is retried.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}
