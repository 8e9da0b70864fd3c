package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/adetobi/trendpulse/app/cfg"
	"github.com/adetobi/trendpulse/app/database"
	"github.com/adetobi/trendpulse/app/monitor"
	"github.com/adetobi/trendpulse/app/normalize"
	"github.com/adetobi/trendpulse/app/sources"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	configCache *sources.ConfigCache
	contentRepo database.ContentRepository
	sourceMon   *monitor.SourceMonitor
	httpClient  *http.Client
	limiter     *sources.CallLimiter
	retryPolicy sources.RetryPolicy
	normalizer  *normalize.Normalizer
	userAgent   string
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(configCache *sources.ConfigCache, contentRepo database.ContentRepository,
	sourceMon *monitor.SourceMonitor, httpClient *http.Client,
	normalizer *normalize.Normalizer) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		configCache: configCache,
		contentRepo: contentRepo,
		sourceMon:   sourceMon,
		httpClient:  httpClient,
		limiter:     sources.NewCallLimiter(),
		retryPolicy: sources.DefaultRetryPolicy(),
		normalizer:  normalizer,
		userAgent:   cfg.UserAgent,
		interval:    time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
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

		s.registerSources()
		s.enqueueDueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// NewCollectTask builds a collection task for a source using the
// scheduler's shared HTTP client, call limiter and retry policy.
func (s *Scheduler) NewCollectTask(sourceConfig *sources.Config) TaskInterface {
	return NewCollectSourceTask(sourceConfig.Name, sourceConfig,
		s.httpClient, s.limiter, s.retryPolicy, s.normalizer,
		s.contentRepo, s.sourceMon, s.userAgent)
}

// registerSources makes sure every configured source has a monitor record
// before the first collection cycle.
func (s *Scheduler) registerSources() {
	sourceConfigs := s.configCache.GetConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No source configurations found")
		return
	}

	slog.Debug("Registering source monitors", "count", len(sourceConfigs))

	for _, sourceConfig := range sourceConfigs {
		if _, err := s.sourceMon.Ensure(sourceConfig); err != nil {
			slog.Warn("Failed to register source monitor", "source", sourceConfig.Name, "error", err)
		}
	}
}

// enqueueDueTasks enqueues one collection task per enabled source that is
// due according to its monitor record.
func (s *Scheduler) enqueueDueTasks() {
	sourceConfigs := s.configCache.GetEnabledConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No enabled source configurations found")
		return
	}

	now := time.Now().UTC()

	for _, sourceConfig := range sourceConfigs {
		rec, err := s.sourceMon.Get(sourceConfig.Type, sourceConfig.Name)
		if err != nil {
			slog.Warn("Failed to get source monitor, skipping", "source", sourceConfig.Name, "error", err)
			continue
		}

		if !s.sourceMon.IsDue(rec, now) {
			slog.Debug("Source not due for collection yet", "source", sourceConfig.Name)
			continue
		}

		collectTask := s.NewCollectTask(sourceConfig)
		if err := s.EnqueueTask(collectTask); err != nil {
			slog.Warn("Failed to enqueue CollectSourceTask", "source", sourceConfig.Name, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
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

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSourceName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			// Retry goroutines join the WaitGroup so Stop cannot close the
			// queue while a re-enqueue is still pending.
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()

				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				case <-time.After(retryDelay):
				}

				if retryErr := s.EnqueueTask(task); retryErr != nil {
					slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
