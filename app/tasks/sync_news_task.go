package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// SyncNewsTask runs one full pipeline pass: fetch every enabled source,
// intake, transform, publish. The run records its own outcome in the
// pipeline_runs table, so the queue never retries it — a retry would
// open a second run for the same trigger.
type SyncNewsTask struct {
	Task
	orchestrator PipelineRunner
}

func NewSyncNewsTask(orchestrator PipelineRunner) *SyncNewsTask {
	return &SyncNewsTask{
		Task:         NewTask(TaskTypeSyncNews, 0),
		orchestrator: orchestrator,
	}
}

func (t *SyncNewsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	summary, err := t.orchestrator.Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncNews",
		"run_id", summary.RunID,
		"duration", t.GetDuration(),
		"items_found", summary.ItemsFound,
		"items_processed", summary.ItemsProcessed,
		"articles_created", summary.ArticlesCreated,
		"posted", summary.Posted,
		"errors", len(summary.Errors))

	return nil
}
