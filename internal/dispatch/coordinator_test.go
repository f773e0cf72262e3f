package dispatch

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

type fakeWorkflow struct {
	schema      map[string]pipeline.InputVariable
	schemaErr   error
	executionID string
	initiateErr error
	executeErr  error

	gotTitle   string
	gotPayload map[string]pipeline.PayloadValue
}

func (f *fakeWorkflow) InputSchema(_ context.Context) (map[string]pipeline.InputVariable, error) {
	return f.schema, f.schemaErr
}

func (f *fakeWorkflow) Initiate(_ context.Context, title, _ string) (string, error) {
	f.gotTitle = title
	if f.initiateErr != nil {
		return "", f.initiateErr
	}
	return f.executionID, nil
}

func (f *fakeWorkflow) Execute(_ context.Context, _ string, payload map[string]pipeline.PayloadValue) error {
	f.gotPayload = payload
	return f.executeErr
}

func (f *fakeWorkflow) Status(_ context.Context, _ string) (string, error) {
	return "IN PROGRESS", nil
}

type fakeJobStore struct {
	created    []pipeline.SubmissionJob
	createErr  error
	statuses   []pipeline.JobStatus
	lastErrTxt string
}

func (f *fakeJobStore) Create(_ context.Context, job pipeline.SubmissionJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, job)
	return nil
}

func (f *fakeJobStore) UpdateStatus(_ context.Context, _ uuid.UUID, status pipeline.JobStatus, errText string, _ map[string]string) error {
	f.statuses = append(f.statuses, status)
	f.lastErrTxt = errText
	return nil
}

func (f *fakeJobStore) CountInitiatedSince(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func (f *fakeJobStore) Get(_ context.Context, _ uuid.UUID) (pipeline.SubmissionJob, error) {
	return pipeline.SubmissionJob{}, pipeline.ErrNotFound
}

type fakeContentStore struct {
	processed []uuid.UUID
}

func (f *fakeContentStore) Insert(_ context.Context, _ pipeline.Item) (uuid.UUID, error) {
	return uuid.Nil, errors.New("not implemented")
}

func (f *fakeContentStore) URLExists(_ context.Context, _ string) (bool, error) { return false, nil }

func (f *fakeContentStore) ListUnprocessed(_ context.Context, _ float64, _ int) ([]pipeline.Item, error) {
	return nil, nil
}

func (f *fakeContentStore) UpdateScore(_ context.Context, _ uuid.UUID, _ float64) error { return nil }

func (f *fakeContentStore) MarkProcessed(_ context.Context, id uuid.UUID) error {
	f.processed = append(f.processed, id)
	return nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type v7IDs struct{}

func (v7IDs) NewID() (uuid.UUID, error) { return uuid.NewV7() }

func dispatchItem() pipeline.Item {
	return pipeline.Item{
		ID:         uuid.New(),
		URL:        "https://example.com/posts/one",
		Title:      "Vendor announces automation platform",
		Body:       "full article body",
		Keywords:   []string{"automation"},
		SourceName: "Example Blog",
	}
}

func newCoordinator(wf *fakeWorkflow, jobs *fakeJobStore, content *fakeContentStore) *Coordinator {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return New(wf, jobs, content, fixedClock{now: now}, v7IDs{}, "wf-123", zap.NewNop())
}

func TestDispatchSuccess(t *testing.T) {
	t.Parallel()

	wf := &fakeWorkflow{schema: sampleSchema(), executionID: "exec-42"}
	jobs := &fakeJobStore{}
	content := &fakeContentStore{}
	item := dispatchItem()

	job, err := newCoordinator(wf, jobs, content).Dispatch(context.Background(), item)
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Equal(t, pipeline.JobStatusSubmitted, job.Status)
	require.Equal(t, "exec-42", job.ExecutionID)

	// Record of intent persisted as INITIATED before the remote call.
	require.Len(t, jobs.created, 1)
	require.Equal(t, pipeline.JobStatusInitiated, jobs.created[0].Status)
	require.Equal(t, item.ID, jobs.created[0].ItemID)
	require.Equal(t, []pipeline.JobStatus{pipeline.JobStatusSubmitted}, jobs.statuses)

	require.Equal(t, []uuid.UUID{item.ID}, content.processed)
	require.Contains(t, wf.gotTitle, "Generate industry_news post:")
	require.Equal(t, "full article body", wf.gotPayload["var_text"].Value)
}

func TestDispatchMappingFailureLeavesNoRecord(t *testing.T) {
	t.Parallel()

	wf := &fakeWorkflow{schema: map[string]pipeline.InputVariable{
		"var_title": {DisplayName: "Article Title", Type: "str"},
	}}
	jobs := &fakeJobStore{}
	content := &fakeContentStore{}

	job, err := newCoordinator(wf, jobs, content).Dispatch(context.Background(), dispatchItem())
	require.ErrorIs(t, err, pipeline.ErrMainContentUnmapped)
	require.Nil(t, job)
	require.Empty(t, jobs.created)
	require.Empty(t, content.processed)
}

func TestDispatchPlatformFailureMarksJobFailed(t *testing.T) {
	t.Parallel()

	wf := &fakeWorkflow{
		schema:      sampleSchema(),
		initiateErr: &pipeline.PlatformError{StatusCode: 500, Message: "boom"},
	}
	jobs := &fakeJobStore{}
	content := &fakeContentStore{}

	job, err := newCoordinator(wf, jobs, content).Dispatch(context.Background(), dispatchItem())
	require.Error(t, err)
	require.NotNil(t, job)
	require.Equal(t, pipeline.JobStatusFailed, job.Status)

	require.Len(t, jobs.created, 1)
	require.Equal(t, []pipeline.JobStatus{pipeline.JobStatusFailed}, jobs.statuses)
	require.Contains(t, jobs.lastErrTxt, "boom")

	// The item stays unprocessed and eligible for a later attempt.
	require.Empty(t, content.processed)
}

func TestDispatchExecuteFailureMarksJobFailed(t *testing.T) {
	t.Parallel()

	wf := &fakeWorkflow{
		schema:      sampleSchema(),
		executionID: "exec-42",
		executeErr:  &pipeline.PlatformError{StatusCode: 503, Message: "unavailable"},
	}
	jobs := &fakeJobStore{}
	content := &fakeContentStore{}

	job, err := newCoordinator(wf, jobs, content).Dispatch(context.Background(), dispatchItem())
	require.Error(t, err)
	require.Equal(t, pipeline.JobStatusFailed, job.Status)
	require.Empty(t, content.processed)
}

func TestDispatchSchemaFailure(t *testing.T) {
	t.Parallel()

	wf := &fakeWorkflow{schemaErr: errors.New("unreachable")}
	jobs := &fakeJobStore{}
	content := &fakeContentStore{}

	_, err := newCoordinator(wf, jobs, content).Dispatch(context.Background(), dispatchItem())
	require.Error(t, err)
	require.Empty(t, jobs.created)
}
