// Package quota enforces the daily submission budget.
package quota

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/contentops/contentpipe/internal/metrics"
	"github.com/contentops/contentpipe/internal/pipeline"
)

// Gate computes remaining daily submission headroom. The day boundary is
// 00:00 UTC regardless of server locale.
type Gate struct {
	jobs       pipeline.JobStore
	clock      pipeline.Clock
	dailyLimit int
	logger     *zap.Logger
}

// New creates a Gate.
func New(jobs pipeline.JobStore, clock pipeline.Clock, dailyLimit int, logger *zap.Logger) *Gate {
	return &Gate{jobs: jobs, clock: clock, dailyLimit: dailyLimit, logger: logger}
}

// Remaining returns the daily limit minus jobs initiated since midnight
// UTC, floored at zero. Every initiated job counts against the budget,
// including ones that later failed.
func (g *Gate) Remaining(ctx context.Context) (int, error) {
	now := g.clock.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	count, err := g.jobs.CountInitiatedSince(ctx, midnight)
	if err != nil {
		return 0, fmt.Errorf("count jobs since midnight: %w", err)
	}

	remaining := g.dailyLimit - count
	if remaining < 0 {
		remaining = 0
	}
	metrics.SetQuotaRemaining(remaining)

	g.logger.Debug("quota check",
		zap.Int("daily_limit", g.dailyLimit),
		zap.Int("used_today", count),
		zap.Int("remaining", remaining),
	)

	return remaining, nil
}
