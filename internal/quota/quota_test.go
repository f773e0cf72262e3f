package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/contentops/contentpipe/internal/metrics"
	"github.com/contentops/contentpipe/internal/pipeline"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

type fakeJobStore struct {
	count     int
	countErr  error
	gotSince  time.Time
	sinceSeen bool
}

func (f *fakeJobStore) Create(_ context.Context, _ pipeline.SubmissionJob) error { return nil }

func (f *fakeJobStore) UpdateStatus(_ context.Context, _ uuid.UUID, _ pipeline.JobStatus, _ string, _ map[string]string) error {
	return nil
}

func (f *fakeJobStore) CountInitiatedSince(_ context.Context, since time.Time) (int, error) {
	f.gotSince = since
	f.sinceSeen = true
	return f.count, f.countErr
}

func (f *fakeJobStore) Get(_ context.Context, _ uuid.UUID) (pipeline.SubmissionJob, error) {
	return pipeline.SubmissionJob{}, pipeline.ErrNotFound
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestRemaining(t *testing.T) {
	t.Parallel()

	jobs := &fakeJobStore{count: 12}
	clock := fixedClock{now: time.Date(2026, 3, 10, 18, 45, 0, 0, time.UTC)}

	g := New(jobs, clock, 30, zap.NewNop())
	remaining, err := g.Remaining(context.Background())
	require.NoError(t, err)
	require.Equal(t, 18, remaining)

	require.True(t, jobs.sinceSeen)
	require.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), jobs.gotSince)
}

func TestRemainingFloorsAtZero(t *testing.T) {
	t.Parallel()

	jobs := &fakeJobStore{count: 45}
	clock := fixedClock{now: time.Date(2026, 3, 10, 18, 45, 0, 0, time.UTC)}

	g := New(jobs, clock, 30, zap.NewNop())
	remaining, err := g.Remaining(context.Background())
	require.NoError(t, err)
	require.Zero(t, remaining)
}

func TestRemainingMidnightBoundaryInUTC(t *testing.T) {
	t.Parallel()

	jobs := &fakeJobStore{}
	loc := time.FixedZone("UTC+9", 9*3600)
	// Local time is past midnight on the 11th; UTC is still the 10th.
	clock := fixedClock{now: time.Date(2026, 3, 11, 2, 0, 0, 0, loc)}

	g := New(jobs, clock, 30, zap.NewNop())
	_, err := g.Remaining(context.Background())
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), jobs.gotSince)
}

func TestRemainingStoreError(t *testing.T) {
	t.Parallel()

	jobs := &fakeJobStore{countErr: errors.New("db down")}
	clock := fixedClock{now: time.Date(2026, 3, 10, 18, 45, 0, 0, time.UTC)}

	g := New(jobs, clock, 30, zap.NewNop())
	_, err := g.Remaining(context.Background())
	require.Error(t, err)
}
