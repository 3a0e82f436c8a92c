package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// RepublishTask sweeps articles whose channel post failed earlier and
// retries publication. The posted-flag guard in the publisher makes the
// sweep safe to run repeatedly, so queue retries are fine here.
type RepublishTask struct {
	Task
	orchestrator PipelineRunner
	limit        int
}

func NewRepublishTask(orchestrator PipelineRunner, limit int) *RepublishTask {
	return &RepublishTask{
		Task:         NewTask(TaskTypeRepublish, DefaultMaxRetries),
		orchestrator: orchestrator,
		limit:        limit,
	}
}

func (t *RepublishTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	posted, err := t.orchestrator.Republish(ctx, t.limit)
	if err != nil {
		return fmt.Errorf("republish sweep failed: %w", err)
	}

	slog.Info("Task completed",
		"type", "Republish",
		"duration", t.GetDuration(),
		"posted", posted)

	return nil
}
