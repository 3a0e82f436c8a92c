package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// ProcessRawTask works through the unprocessed backlog without fetching
// any source. Like SyncNewsTask it records its own run and is not
// retried by the queue.
type ProcessRawTask struct {
	Task
	orchestrator PipelineRunner
}

func NewProcessRawTask(orchestrator PipelineRunner) *ProcessRawTask {
	return &ProcessRawTask{
		Task:         NewTask(TaskTypeProcessRaw, 0),
		orchestrator: orchestrator,
	}
}

func (t *ProcessRawTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	summary, err := t.orchestrator.ProcessRaw(ctx)
	if err != nil {
		return fmt.Errorf("backlog processing failed: %w", err)
	}

	slog.Info("Task completed",
		"type", "ProcessRaw",
		"run_id", summary.RunID,
		"duration", t.GetDuration(),
		"items_processed", summary.ItemsProcessed,
		"articles_created", summary.ArticlesCreated,
		"posted", summary.Posted,
		"errors", len(summary.Errors))

	return nil
}
