package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkotenko/newsmill/app/pipeline"
)

type mockRunner struct {
	mu             sync.Mutex
	runs           int
	processRawRuns int
	republishRuns  int
	runErr         error
}

func (m *mockRunner) Run(ctx context.Context) (*pipeline.RunSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	if m.runErr != nil {
		return nil, m.runErr
	}
	return &pipeline.RunSummary{RunID: "run-1", Status: "completed"}, nil
}

func (m *mockRunner) ProcessRaw(ctx context.Context) (*pipeline.RunSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processRawRuns++
	return &pipeline.RunSummary{RunID: "run-2", Status: "completed"}, nil
}

func (m *mockRunner) Republish(ctx context.Context, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.republishRuns++
	return 0, nil
}

func (m *mockRunner) counts() (int, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs, m.processRawRuns, m.republishRuns
}

func newTestScheduler(runner PipelineRunner) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		orchestrator:   runner,
		interval:       time.Hour,
		republishEvery: 2,
		batchSize:      10,
		workerCount:    1,
		ctx:            ctx,
		cancel:         cancel,
		taskQueue:      make(chan TaskInterface, 10),
	}
}

func TestNewTaskUniqueIDs(t *testing.T) {
	first := NewTask(TaskTypeSyncNews, 0)
	second := NewTask(TaskTypeSyncNews, 0)

	if first.ID == second.ID {
		t.Errorf("Expected unique task IDs, got %s twice", first.ID)
	}
	if first.Type != TaskTypeSyncNews {
		t.Errorf("Unexpected task type: %s", first.Type)
	}
}

func TestPipelineTasksAreNotRetried(t *testing.T) {
	syncTask := NewSyncNewsTask(&mockRunner{})
	if syncTask.CanRetry() {
		t.Error("SyncNewsTask must not be retried by the queue")
	}

	processTask := NewProcessRawTask(&mockRunner{})
	if processTask.CanRetry() {
		t.Error("ProcessRawTask must not be retried by the queue")
	}

	republishTask := NewRepublishTask(&mockRunner{}, 10)
	if !republishTask.CanRetry() {
		t.Error("RepublishTask is idempotent and should be retryable")
	}
}

func TestSchedulerExecutesEnqueuedTask(t *testing.T) {
	runner := &mockRunner{}
	scheduler := newTestScheduler(runner)

	for i := 0; i < scheduler.workerCount; i++ {
		scheduler.wg.Add(1)
		go scheduler.worker(i)
	}

	if err := scheduler.EnqueueTask(NewSyncNewsTask(runner)); err != nil {
		t.Fatalf("EnqueueTask failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		runs, _, _ := runner.counts()
		if runs == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Task was never executed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	scheduler.Stop()
}

func TestSchedulerEnqueueAfterStop(t *testing.T) {
	scheduler := newTestScheduler(&mockRunner{})
	scheduler.cancel()

	// Must fail every time, not just when the select happens to pick
	// the cancelled-context case.
	for i := 0; i < 100; i++ {
		err := scheduler.EnqueueTask(NewSyncNewsTask(&mockRunner{}))
		if err == nil {
			t.Fatalf("Expected an error when enqueueing after stop (attempt %d)", i+1)
		}
	}
}

func TestSchedulerEnqueueDuringShutdownDoesNotPanic(t *testing.T) {
	runner := &mockRunner{}
	scheduler := newTestScheduler(runner)
	scheduler.Start()
	scheduler.Stop()

	for i := 0; i < 50; i++ {
		if err := scheduler.EnqueueTask(NewSyncNewsTask(runner)); err == nil {
			t.Fatal("Expected an error when enqueueing after Stop")
		}
	}
}

func TestSchedulerQueueFull(t *testing.T) {
	scheduler := newTestScheduler(&mockRunner{})
	scheduler.taskQueue = make(chan TaskInterface, 1)

	if err := scheduler.EnqueueTask(NewSyncNewsTask(&mockRunner{})); err != nil {
		t.Fatalf("First enqueue failed: %v", err)
	}
	if err := scheduler.EnqueueTask(NewSyncNewsTask(&mockRunner{})); err == nil {
		t.Error("Expected queue-full error")
	}
}

func TestEnqueueScheduledTasksRepublishCadence(t *testing.T) {
	runner := &mockRunner{}
	scheduler := newTestScheduler(runner)
	scheduler.taskQueue = make(chan TaskInterface, 20)

	for tick := 1; tick <= 4; tick++ {
		scheduler.enqueueScheduledTasks(tick)
	}
	close(scheduler.taskQueue)

	syncCount, republishCount := 0, 0
	for task := range scheduler.taskQueue {
		switch task.GetType() {
		case TaskTypeSyncNews:
			syncCount++
		case TaskTypeRepublish:
			republishCount++
		}
	}

	if syncCount != 4 {
		t.Errorf("Expected a sync task per tick, got %d", syncCount)
	}
	if republishCount != 2 {
		t.Errorf("Expected a republish task every 2 ticks, got %d", republishCount)
	}
}

func TestExecuteTaskDoesNotRetryPipelineTask(t *testing.T) {
	runner := &mockRunner{runErr: errors.New("run exploded")}
	scheduler := newTestScheduler(runner)

	task := NewSyncNewsTask(runner)
	scheduler.executeTask(0, task)

	time.Sleep(50 * time.Millisecond)

	runs, _, _ := runner.counts()
	if runs != 1 {
		t.Errorf("Failed pipeline task must not be re-executed, got %d runs", runs)
	}
	if task.GetRetryCount() != 0 {
		t.Errorf("Expected retry count 0, got %d", task.GetRetryCount())
	}
}
