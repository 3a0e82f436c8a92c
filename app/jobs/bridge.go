package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dkotenko/newsmill/app/tasks"
)

// ErrUnknownJob marks a trigger request naming no registered job.
var ErrUnknownJob = errors.New("unknown job")

// Job names accepted by the trigger surface.
const (
	JobSyncNews     = "sync-news"
	JobProcessRaw   = "process-raw"
	JobTelegramPost = "telegram-post"
)

const dedupTTL = 10 * time.Minute

// Result reports how a trigger was handled. Mode is one of "queued",
// "duplicate", or "dry-run".
type Result struct {
	Queued bool
	Mode   string
}

// Bridge turns external trigger requests into queued tasks. The
// caller-supplied idempotency key is the dedup key, so replays of the
// same request collapse to one queued execution. Without a dedup store
// the bridge degrades to a dry-run no-op instead of executing work
// outside the queue's dedup guarantee.
type Bridge struct {
	scheduler    tasks.TaskSchedulerInterface
	orchestrator tasks.PipelineRunner
	dedup        DedupStore
	batchSize    int
}

func NewBridge(scheduler tasks.TaskSchedulerInterface, orchestrator tasks.PipelineRunner, dedup DedupStore, batchSize int) *Bridge {
	return &Bridge{
		scheduler:    scheduler,
		orchestrator: orchestrator,
		dedup:        dedup,
		batchSize:    batchSize,
	}
}

// Trigger enqueues the task matching jobName. An empty idempotency key
// skips dedup and always enqueues.
func (b *Bridge) Trigger(ctx context.Context, jobName, idempotencyKey string) (*Result, error) {
	task, err := b.buildTask(jobName)
	if err != nil {
		return nil, err
	}

	if b.dedup == nil {
		slog.Info("No job queue backend configured, trigger is a dry run", "job", jobName)
		return &Result{Queued: false, Mode: "dry-run"}, nil
	}

	if idempotencyKey != "" {
		claimed, err := b.dedup.Claim(ctx, jobName+":"+idempotencyKey, dedupTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if !claimed {
			slog.Info("Duplicate trigger collapsed", "job", jobName, "idempotency_key", idempotencyKey)
			return &Result{Queued: false, Mode: "duplicate"}, nil
		}
	}

	if err := b.scheduler.EnqueueTask(task); err != nil {
		return nil, fmt.Errorf("failed to enqueue %s: %w", jobName, err)
	}

	slog.Info("Job queued", "job", jobName, "task_id", task.GetID())

	return &Result{Queued: true, Mode: "queued"}, nil
}

func (b *Bridge) buildTask(jobName string) (tasks.TaskInterface, error) {
	switch jobName {
	case JobSyncNews:
		return tasks.NewSyncNewsTask(b.orchestrator), nil
	case JobProcessRaw:
		return tasks.NewProcessRawTask(b.orchestrator), nil
	case JobTelegramPost:
		return tasks.NewRepublishTask(b.orchestrator, b.batchSize), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, jobName)
	}
}
