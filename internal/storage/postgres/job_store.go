package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/contentops/contentpipe/internal/pipeline"
)

// JobStore implements pipeline.JobStore on Postgres.
type JobStore struct {
	pool dbPool
}

// NewJobStore constructs a JobStore from an existing pool.
func NewJobStore(pool dbPool) *JobStore {
	return &JobStore{pool: pool}
}

// Close releases the underlying pool resources.
func (s *JobStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Create stores a new submission job.
func (s *JobStore) Create(ctx context.Context, job pipeline.SubmissionJob) error {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("marshal job payload: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `
INSERT INTO submission_jobs (
	id, item_id, workflow_id, execution_id, status,
	payload, error_text, initiated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		job.ID,
		job.ItemID,
		job.WorkflowID,
		job.ExecutionID,
		string(job.Status),
		payload,
		job.ErrorText,
		job.InitiatedAt,
	); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateStatus moves a job out of INITIATED. The WHERE clause keeps the
// transition monotonic: terminal rows are never rewritten.
func (s *JobStore) UpdateStatus(ctx context.Context, jobID uuid.UUID, status pipeline.JobStatus, errText string, result map[string]string) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal job result: %w", err)
	}
	executionID := ""
	if result != nil {
		executionID = result["execution_id"]
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE submission_jobs
SET status = $2,
    error_text = $3,
    result = $4,
    execution_id = COALESCE(NULLIF($5, ''), execution_id),
    completed_at = NOW()
WHERE id = $1 AND status = 'INITIATED'`,
		jobID, string(status), errText, resultJSON, executionID)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pipeline.ErrNotFound
	}
	return nil
}

// CountInitiatedSince counts jobs initiated at or after the cutoff.
func (s *JobStore) CountInitiatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM submission_jobs WHERE initiated_at >= $1`, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return count, nil
}

// Get fetches a job by ID.
func (s *JobStore) Get(ctx context.Context, jobID uuid.UUID) (pipeline.SubmissionJob, error) {
	var (
		job       pipeline.SubmissionJob
		status    string
		payload   []byte
		result    []byte
		execID    *string
		errText   *string
		completed *time.Time
	)
	err := s.pool.QueryRow(ctx, `
SELECT id, item_id, workflow_id, execution_id, status,
       payload, result, error_text, initiated_at, completed_at
FROM submission_jobs
WHERE id = $1`, jobID).Scan(
		&job.ID,
		&job.ItemID,
		&job.WorkflowID,
		&execID,
		&status,
		&payload,
		&result,
		&errText,
		&job.InitiatedAt,
		&completed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pipeline.SubmissionJob{}, pipeline.ErrNotFound
		}
		return pipeline.SubmissionJob{}, fmt.Errorf("get job: %w", err)
	}

	job.Status = pipeline.JobStatus(status)
	if execID != nil {
		job.ExecutionID = *execID
	}
	if errText != nil {
		job.ErrorText = *errText
	}
	job.CompletedAt = completed
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &job.Payload); err != nil {
			return pipeline.SubmissionJob{}, fmt.Errorf("unmarshal job payload: %w", err)
		}
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &job.Result); err != nil {
			return pipeline.SubmissionJob{}, fmt.Errorf("unmarshal job result: %w", err)
		}
	}
	return job, nil
}
