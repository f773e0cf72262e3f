package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/contentops/contentpipe/internal/metrics"
	"github.com/contentops/contentpipe/internal/pipeline"
	"github.com/contentops/contentpipe/internal/selection"
)

// Coordinator submits one selected item to the workflow platform and
// tracks the attempt in the job store. Submission is fire and forget:
// the platform queues the job and completion is never awaited here.
type Coordinator struct {
	workflow   pipeline.WorkflowClient
	jobs       pipeline.JobStore
	content    pipeline.ContentStore
	clock      pipeline.Clock
	ids        pipeline.IDGenerator
	workflowID string
	logger     *zap.Logger
}

// New creates a Coordinator.
func New(
	workflow pipeline.WorkflowClient,
	jobs pipeline.JobStore,
	content pipeline.ContentStore,
	clock pipeline.Clock,
	ids pipeline.IDGenerator,
	workflowID string,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		workflow:   workflow,
		jobs:       jobs,
		content:    content,
		clock:      clock,
		ids:        ids,
		workflowID: workflowID,
		logger:     logger,
	}
}

// Dispatch submits an item. The payload is mapped before any record is
// written, so a mapping failure leaves no trace. An INITIATED job record
// is persisted before the remote calls; it then moves to SUBMITTED (and
// the item is marked processed) or FAILED (item stays eligible).
func (c *Coordinator) Dispatch(ctx context.Context, item pipeline.Item) (*pipeline.SubmissionJob, error) {
	category := selection.Classify(item)

	schema, err := c.workflow.InputSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch input schema: %w", err)
	}

	payload, err := BuildPayload(item, schema)
	if err != nil {
		c.logger.Error("payload mapping failed",
			zap.String("item_id", item.ID.String()),
			zap.String("url", item.URL),
			zap.Error(err),
		)
		return nil, err
	}

	jobID, err := c.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate job id: %w", err)
	}
	job := pipeline.SubmissionJob{
		ID:          jobID,
		ItemID:      item.ID,
		WorkflowID:  c.workflowID,
		Status:      pipeline.JobStatusInitiated,
		Payload:     payload,
		InitiatedAt: c.clock.Now(),
	}
	if err := c.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job record: %w", err)
	}
	metrics.ObserveJob(string(pipeline.JobStatusInitiated))

	title := fmt.Sprintf("Generate %s post: %s", category, truncate(item.Title, 50))
	description := fmt.Sprintf("Generate social media content from: %s", item.URL)

	executionID, err := c.workflow.Initiate(ctx, title, description)
	if err == nil {
		err = c.workflow.Execute(ctx, executionID, payload)
	}
	if err != nil {
		c.failJob(ctx, &job, err)
		return &job, fmt.Errorf("submit job: %w", err)
	}

	job.ExecutionID = executionID
	job.Status = pipeline.JobStatusSubmitted
	if err := c.jobs.UpdateStatus(ctx, job.ID, pipeline.JobStatusSubmitted, "", map[string]string{
		"execution_id": executionID,
	}); err != nil {
		// The remote job is already queued; surface the bookkeeping
		// failure but keep the submitted state in the returned job.
		c.logger.Error("failed to record submitted status",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
	metrics.ObserveJob(string(pipeline.JobStatusSubmitted))

	if err := c.content.MarkProcessed(ctx, item.ID); err != nil {
		c.logger.Error("failed to mark item processed",
			zap.String("item_id", item.ID.String()),
			zap.Error(err),
		)
	}

	c.logger.Info("job submitted",
		zap.String("job_id", job.ID.String()),
		zap.String("execution_id", executionID),
		zap.String("category", string(category)),
		zap.String("url", item.URL),
	)

	return &job, nil
}

func (c *Coordinator) failJob(ctx context.Context, job *pipeline.SubmissionJob, cause error) {
	job.Status = pipeline.JobStatusFailed
	job.ErrorText = cause.Error()
	if err := c.jobs.UpdateStatus(ctx, job.ID, pipeline.JobStatusFailed, cause.Error(), nil); err != nil {
		c.logger.Error("failed to record failed status",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
	metrics.ObserveJob(string(pipeline.JobStatusFailed))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
