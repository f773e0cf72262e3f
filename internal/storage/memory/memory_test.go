package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/contentops/contentpipe/internal/pipeline"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func scored(url string, score float64, processed bool) pipeline.Item {
	return pipeline.Item{
		ID:        uuid.New(),
		URL:       url,
		Score:     &score,
		Processed: processed,
	}
}

func TestSourceRegistryListActive(t *testing.T) {
	t.Parallel()

	active := pipeline.Source{ID: uuid.New(), Name: "a", Active: true}
	inactive := pipeline.Source{ID: uuid.New(), Name: "b", Active: false}
	r := NewSourceRegistry(active, inactive)

	got, err := r.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "a", got[0].Name)
}

func TestSourceRegistryUpdateLastFetched(t *testing.T) {
	t.Parallel()

	src := pipeline.Source{ID: uuid.New(), Name: "a", Active: true}
	r := NewSourceRegistry(src)

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, r.UpdateLastFetched(context.Background(), src.ID, at))

	got, err := r.ListActive(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got[0].LastFetchedAt)
	require.Equal(t, at, *got[0].LastFetchedAt)

	require.ErrorIs(t, r.UpdateLastFetched(context.Background(), uuid.New(), at), pipeline.ErrNotFound)
}

func TestContentStoreDuplicateURL(t *testing.T) {
	t.Parallel()

	s := NewContentStore()
	item := scored("https://example.com/a", 0.7, false)

	_, err := s.Insert(context.Background(), item)
	require.NoError(t, err)

	dup := scored("https://example.com/a", 0.9, false)
	_, err = s.Insert(context.Background(), dup)
	require.ErrorIs(t, err, pipeline.ErrDuplicateURL)

	exists, err := s.URLExists(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestContentStoreListUnprocessed(t *testing.T) {
	t.Parallel()

	s := NewContentStore()
	ctx := context.Background()

	low := scored("https://example.com/low", 0.3, false)
	mid := scored("https://example.com/mid", 0.6, false)
	high := scored("https://example.com/high", 0.9, false)
	done := scored("https://example.com/done", 0.95, true)
	unscored := pipeline.Item{ID: uuid.New(), URL: "https://example.com/raw"}

	for _, item := range []pipeline.Item{low, mid, high, done, unscored} {
		_, err := s.Insert(ctx, item)
		require.NoError(t, err)
	}

	got, err := s.ListUnprocessed(ctx, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "https://example.com/high", got[0].URL)
	require.Equal(t, "https://example.com/mid", got[1].URL)

	limited, err := s.ListUnprocessed(ctx, 0.0, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, "https://example.com/high", limited[0].URL)
}

func TestContentStoreScoreAndProcessed(t *testing.T) {
	t.Parallel()

	s := NewContentStore()
	ctx := context.Background()

	item := pipeline.Item{ID: uuid.New(), URL: "https://example.com/a"}
	_, err := s.Insert(ctx, item)
	require.NoError(t, err)

	require.NoError(t, s.UpdateScore(ctx, item.ID, 0.8))
	require.NoError(t, s.MarkProcessed(ctx, item.ID))

	got, err := s.Get(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Score)
	require.Equal(t, 0.8, *got.Score)
	require.True(t, got.Processed)

	require.ErrorIs(t, s.UpdateScore(ctx, uuid.New(), 0.5), pipeline.ErrNotFound)
}

func TestJobStoreLifecycle(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s := NewJobStore(fixedClock{now: now})
	ctx := context.Background()

	job := pipeline.SubmissionJob{
		ID:          uuid.New(),
		ItemID:      uuid.New(),
		WorkflowID:  "wf-123",
		Status:      pipeline.JobStatusInitiated,
		InitiatedAt: now.Add(-time.Hour),
	}
	require.NoError(t, s.Create(ctx, job))
	require.Error(t, s.Create(ctx, job))

	require.NoError(t, s.UpdateStatus(ctx, job.ID, pipeline.JobStatusSubmitted, "", map[string]string{
		"execution_id": "exec-42",
	}))

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, pipeline.JobStatusSubmitted, got.Status)
	require.Equal(t, "exec-42", got.ExecutionID)
	require.NotNil(t, got.CompletedAt)

	// Terminal statuses never transition again.
	require.Error(t, s.UpdateStatus(ctx, job.ID, pipeline.JobStatusFailed, "late failure", nil))
}

func TestJobStoreCountInitiatedSince(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s := NewJobStore(fixedClock{now: now})
	ctx := context.Background()

	midnight := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	today := pipeline.SubmissionJob{ID: uuid.New(), Status: pipeline.JobStatusInitiated, InitiatedAt: now.Add(-time.Hour)}
	failed := pipeline.SubmissionJob{ID: uuid.New(), Status: pipeline.JobStatusFailed, InitiatedAt: now.Add(-2 * time.Hour)}
	yesterday := pipeline.SubmissionJob{ID: uuid.New(), Status: pipeline.JobStatusSubmitted, InitiatedAt: midnight.Add(-time.Hour)}

	for _, job := range []pipeline.SubmissionJob{today, failed, yesterday} {
		require.NoError(t, s.Create(ctx, job))
	}

	// Failed jobs still count against the daily budget.
	count, err := s.CountInitiatedSince(ctx, midnight)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}
