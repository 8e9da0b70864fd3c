package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/adetobi/trendpulse/app/cfg"
	"github.com/adetobi/trendpulse/app/content"
	"github.com/adetobi/trendpulse/app/database"
	"github.com/adetobi/trendpulse/app/monitor"
	"github.com/adetobi/trendpulse/app/normalize"
	"github.com/adetobi/trendpulse/app/sources"
)

func TestNewTask(t *testing.T) {
	task := NewTask(TaskTypeCollectSource, "naija-tweets")

	if task.ID == "" {
		t.Error("Expected generated task id")
	}
	if task.Type != TaskTypeCollectSource {
		t.Errorf("Expected type collect_source, got '%s'", task.Type)
	}
	if task.SourceName != "naija-tweets" {
		t.Errorf("Expected source name 'naija-tweets', got '%s'", task.SourceName)
	}
	if task.MaxRetries != DefaultMaxRetries {
		t.Errorf("Expected default max retries %d, got %d", DefaultMaxRetries, task.MaxRetries)
	}
}

func TestTaskRetryAccounting(t *testing.T) {
	task := NewTask(TaskTypeCollectSource, "test")

	for i := 0; i < DefaultMaxRetries; i++ {
		if !task.CanRetry() {
			t.Fatalf("Expected retry %d to be allowed", i+1)
		}
		task.IncrementRetryCount()
	}

	if task.CanRetry() {
		t.Error("Expected retries exhausted")
	}
	if task.GetRetryCount() != DefaultMaxRetries {
		t.Errorf("Expected retry count %d, got %d", DefaultMaxRetries, task.GetRetryCount())
	}
}

func TestTaskDuration(t *testing.T) {
	task := NewTask(TaskTypeCollectSource, "test")

	if task.GetDuration() != 0 {
		t.Errorf("Expected zero duration before start, got %v", task.GetDuration())
	}

	task.Start()
	time.Sleep(5 * time.Millisecond)

	if task.GetDuration() <= 0 {
		t.Errorf("Expected positive duration after start, got %v", task.GetDuration())
	}
}

func TestSweepTaskNeverRetries(t *testing.T) {
	task := NewEnrichmentSweepTask(content.TaskSentiment, nil, 100)

	if task.CanRetry() {
		t.Error("Expected sweep tasks to never retry; the next trigger recomputes the set")
	}
	if task.GetSourceName() != "sentiment" {
		t.Errorf("Expected sweep task named after its enrichment task, got '%s'", task.GetSourceName())
	}
}

// fakeTask records executions for scheduler tests.
type fakeTask struct {
	Task
	executed chan string
}

func (t *fakeTask) Execute(ctx context.Context) error {
	t.executed <- t.ID
	return nil
}

func testScheduler(t *testing.T) *Scheduler {
	t.Helper()

	cfg.Set(&cfg.Cfg{
		WorkerCount:       2,
		SchedulerInterval: 3600,
		UserAgent:         "Test Agent",
	})

	db, err := database.NewConnection(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatal(err)
	}

	contentRepo := database.NewContentRepo(db)
	sourceMon := monitor.NewSourceMonitor(database.NewSourceRepo(db), 5, 10)

	s := NewScheduler(sources.NewConfigCache(t.TempDir()), contentRepo,
		sourceMon, nil, normalize.NewNormalizer())
	return s.(*Scheduler)
}

func TestSchedulerExecutesEnqueuedTask(t *testing.T) {
	scheduler := testScheduler(t)
	scheduler.Start()
	defer scheduler.Stop()

	executed := make(chan string, 1)
	task := &fakeTask{Task: NewTask(TaskTypeCollectSource, "test"), executed: executed}

	if err := scheduler.EnqueueTask(task); err != nil {
		t.Fatal(err)
	}

	select {
	case id := <-executed:
		if id != task.ID {
			t.Errorf("Expected task %s executed, got %s", task.ID, id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Task was not executed within 5s")
	}
}

func TestSchedulerQueueFull(t *testing.T) {
	scheduler := testScheduler(t)
	// not started: nothing drains the queue

	blocked := make(chan string)
	var err error
	for i := 0; i < 400; i++ {
		task := &fakeTask{Task: NewTask(TaskTypeCollectSource, "test"), executed: blocked}
		if err = scheduler.EnqueueTask(task); err != nil {
			break
		}
	}

	if err == nil {
		t.Fatal("Expected queue-full error")
	}
}

// failingTask always errors so the scheduler schedules a retry.
type failingTask struct {
	Task
	executed chan string
}

func (t *failingTask) Execute(ctx context.Context) error {
	t.executed <- t.ID
	return context.DeadlineExceeded
}

func TestSchedulerStopWithPendingRetry(t *testing.T) {
	scheduler := testScheduler(t)
	scheduler.Start()

	executed := make(chan string, 8)
	task := &failingTask{Task: NewTask(TaskTypeCollectSource, "test"), executed: executed}

	if err := scheduler.EnqueueTask(task); err != nil {
		t.Fatal(err)
	}

	select {
	case <-executed:
	case <-time.After(5 * time.Second):
		t.Fatal("Task was not executed within 5s")
	}

	// a retry goroutine is now waiting on its backoff delay; Stop must wait
	// it out rather than close the queue under it
	done := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return within 5s")
	}
}

func TestSchedulerNewCollectTask(t *testing.T) {
	scheduler := testScheduler(t)

	config := &sources.Config{
		Name:     "naija-tweets",
		Platform: content.PlatformTwitter,
		Type:     content.SourceTypeHashtag,
	}

	task := scheduler.NewCollectTask(config)
	if task.GetType() != TaskTypeCollectSource {
		t.Errorf("Expected collect_source task, got '%s'", task.GetType())
	}
	if task.GetSourceName() != "naija-tweets" {
		t.Errorf("Expected source name carried over, got '%s'", task.GetSourceName())
	}
}
