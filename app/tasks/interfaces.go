package tasks

import (
	"context"

	"github.com/dkotenko/newsmill/app/pipeline"
)

// PipelineRunner is the slice of the orchestrator the background tasks
// drive.
type PipelineRunner interface {
	Run(ctx context.Context) (*pipeline.RunSummary, error)
	ProcessRaw(ctx context.Context) (*pipeline.RunSummary, error)
	Republish(ctx context.Context, limit int) (int, error)
}

// TaskSchedulerInterface defines the interface for background task
// scheduling. Used by the main application and the job bridge to manage
// pipeline task processing.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
