// Package workflow implements the HTTP client for the external
// workflow-execution platform.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/contentops/contentpipe/internal/pipeline"
)

// Client implements pipeline.WorkflowClient. The input schema is fetched
// once and cached for the client's lifetime.
type Client struct {
	baseURL    string
	serviceKey string
	workflowID string
	httpClient *http.Client
	retry      pipeline.RetryPolicy
	logger     *zap.Logger

	mu     sync.Mutex
	schema map[string]pipeline.InputVariable
}

// Config holds client construction parameters.
type Config struct {
	BaseURL    string
	ServiceKey string
	WorkflowID string
	Timeout    time.Duration
}

// New creates a Client. A zero timeout defaults to 30 seconds.
func New(cfg Config, retry pipeline.RetryPolicy, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		serviceKey: cfg.ServiceKey,
		workflowID: cfg.WorkflowID,
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry,
		logger:     logger,
	}
}

// schemaResponse is the wire shape of the workflow detail endpoint.
type schemaResponse struct {
	Name             string                    `json:"name"`
	JobPayloadSchema map[string]schemaVariable `json:"jobPayloadSchema"`
}

type schemaVariable struct {
	VariableName string `json:"variable_name"`
	DisplayName  string `json:"display_name"`
	Type         string `json:"type"`
}

// InputSchema returns the workflow's declared input variables keyed by
// variable name. The first successful fetch is cached.
func (c *Client) InputSchema(ctx context.Context) (map[string]pipeline.InputVariable, error) {
	c.mu.Lock()
	if c.schema != nil {
		cached := c.schema
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	var resp schemaResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/workflow/%s", c.workflowID), nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch workflow schema: %w", err)
	}

	schema := make(map[string]pipeline.InputVariable, len(resp.JobPayloadSchema))
	for name, v := range resp.JobPayloadSchema {
		key := v.VariableName
		if key == "" {
			key = name
		}
		varType := v.Type
		if varType == "" {
			varType = "str"
		}
		schema[key] = pipeline.InputVariable{
			DisplayName: v.DisplayName,
			Type:        varType,
		}
	}

	c.mu.Lock()
	c.schema = schema
	c.mu.Unlock()

	c.logger.Info("workflow schema cached",
		zap.String("workflow_id", c.workflowID),
		zap.String("workflow_name", resp.Name),
		zap.Int("variables", len(schema)),
	)

	return schema, nil
}

// Initiate creates a new job execution and returns its ID.
func (c *Client) Initiate(ctx context.Context, title, description string) (string, error) {
	body := map[string]string{
		"workflowId":  c.workflowID,
		"title":       title,
		"description": description,
	}
	var resp struct {
		JobExecutionID string `json:"jobExecutionId"`
	}
	if err := c.do(ctx, http.MethodPost, "/job/initiate", body, &resp); err != nil {
		return "", fmt.Errorf("initiate job: %w", err)
	}
	if resp.JobExecutionID == "" {
		return "", &pipeline.PlatformError{Message: "no jobExecutionId in response"}
	}

	c.logger.Info("job initiated", zap.String("execution_id", resp.JobExecutionID))
	return resp.JobExecutionID, nil
}

// Execute submits the payload for an initiated job. The platform queues
// the job; completion is not awaited.
func (c *Client) Execute(ctx context.Context, executionID string, payload map[string]pipeline.PayloadValue) error {
	body := map[string]any{
		"jobExecutionId":           executionID,
		"jobPayloadSchemaInstance": payload,
	}
	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodPost, "/job/execute", body, &resp); err != nil {
		return fmt.Errorf("execute job: %w", err)
	}
	if !resp.Success {
		c.logger.Warn("job execution response unclear", zap.String("execution_id", executionID))
	}
	return nil
}

// Status returns the platform-side status of an execution.
func (c *Client) Status(ctx context.Context, executionID string) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/job/%s/status", executionID), nil, &resp); err != nil {
		return "", fmt.Errorf("get job status: %w", err)
	}
	if resp.Status == "" {
		return "UNKNOWN", nil
	}
	return resp.Status, nil
}

// do performs one API call with retry, decoding a JSON response into out
// when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	return pipeline.Retry(ctx, c.retry, func() error {
		var reader io.Reader
		if encoded != nil {
			reader = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("x-service-key", c.serviceKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("read response body: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &pipeline.PlatformError{
				StatusCode: resp.StatusCode,
				Message:    errorMessage(payload, resp.StatusCode),
			}
		}

		if out != nil && len(payload) > 0 {
			if err := json.Unmarshal(payload, out); err != nil {
				return &pipeline.PlatformError{
					StatusCode: resp.StatusCode,
					Message:    fmt.Sprintf("invalid JSON response: %v", err),
				}
			}
		}
		return nil
	})
}

// errorMessage pulls a human-readable message out of an error body.
func errorMessage(body []byte, status int) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}
