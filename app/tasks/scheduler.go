package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dkotenko/newsmill/app/cfg"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	orchestrator   PipelineRunner
	interval       time.Duration
	republishEvery int
	batchSize      int
	workerCount    int
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	taskQueue      chan TaskInterface
}

func NewScheduler(orchestrator PipelineRunner) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		orchestrator:   orchestrator,
		interval:       time.Duration(cfg.SchedulerInterval) * time.Second,
		republishEvery: cfg.RepublishEvery,
		batchSize:      cfg.BatchSize,
		workerCount:    cfg.WorkerCount,
		ctx:            ctx,
		cancel:         cancel,
		taskQueue:      make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		tick := 0
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				tick++
				s.enqueueScheduledTasks(tick)
			}
		}
	}()
}

// Stop cancels the scheduler context and waits for workers to drain.
// The task queue is never closed: the job bridge may still call
// EnqueueTask during shutdown, and a send to a closed channel panics.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	// Checked before the send: a select with both a ready send case
	// and a ready Done case picks one at random.
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("scheduler stopped: %w", err)
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	if err := s.EnqueueTask(NewSyncNewsTask(s.orchestrator)); err != nil {
		slog.Warn("Failed to enqueue startup SyncNewsTask", "error", err)
	}
}

// enqueueScheduledTasks runs every tick: a full pipeline pass each
// interval, plus the republish sweep every republishEvery ticks.
func (s *Scheduler) enqueueScheduledTasks(tick int) {
	if err := s.EnqueueTask(NewSyncNewsTask(s.orchestrator)); err != nil {
		slog.Warn("Failed to enqueue SyncNewsTask", "error", err)
	}

	if s.republishEvery > 0 && tick%s.republishEvery == 0 {
		if err := s.EnqueueTask(NewRepublishTask(s.orchestrator, s.batchSize)); err != nil {
			slog.Warn("Failed to enqueue RepublishTask", "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case task := <-s.taskQueue:
			s.executeTask(id, task)
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 10*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else if task.GetMaxRetries() > 0 {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
