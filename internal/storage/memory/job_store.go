package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/contentops/contentpipe/internal/pipeline"
)

// JobStore keeps submission jobs in memory.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[uuid.UUID]pipeline.SubmissionJob
	clock pipeline.Clock
}

// NewJobStore constructs a JobStore.
func NewJobStore(clock pipeline.Clock) *JobStore {
	return &JobStore{
		jobs:  make(map[uuid.UUID]pipeline.SubmissionJob),
		clock: clock,
	}
}

// Create stores a new submission job.
func (s *JobStore) Create(_ context.Context, job pipeline.SubmissionJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

// UpdateStatus moves a job to a terminal status. Transitions are
// monotonic: a job already in SUBMITTED or FAILED is never changed.
func (s *JobStore) UpdateStatus(_ context.Context, jobID uuid.UUID, status pipeline.JobStatus, errText string, result map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return pipeline.ErrNotFound
	}
	if job.Status != pipeline.JobStatusInitiated {
		return fmt.Errorf("job %s already in terminal status %s", jobID, job.Status)
	}
	job.Status = status
	job.ErrorText = errText
	if result != nil {
		job.Result = result
		if execID, ok := result["execution_id"]; ok {
			job.ExecutionID = execID
		}
	}
	now := s.clock.Now()
	job.CompletedAt = &now
	s.jobs[jobID] = job
	return nil
}

// CountInitiatedSince counts jobs initiated at or after the cutoff,
// regardless of their current status.
func (s *JobStore) CountInitiatedSince(_ context.Context, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, job := range s.jobs {
		if !job.InitiatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// Get fetches a job by ID.
func (s *JobStore) Get(_ context.Context, jobID uuid.UUID) (pipeline.SubmissionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return pipeline.SubmissionJob{}, pipeline.ErrNotFound
	}
	return job, nil
}
