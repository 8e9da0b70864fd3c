package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/adetobi/trendpulse/app/content"
	"github.com/adetobi/trendpulse/app/enrich"
)

// EnrichmentSweepTask runs one enrichment sweep for one task type. The
// batcher itself records progress on a BatchJob row; sweeps are never
// retried by the scheduler because the next trigger recomputes the
// unprocessed set anyway.
type EnrichmentSweepTask struct {
	Task
	EnrichTask content.TaskType
	batcher    *enrich.Batcher
	limit      int
}

func NewEnrichmentSweepTask(enrichTask content.TaskType, batcher *enrich.Batcher, limit int) *EnrichmentSweepTask {
	task := NewTask(TaskTypeEnrichmentSweep, string(enrichTask))
	task.MaxRetries = 0

	return &EnrichmentSweepTask{
		Task:       task,
		EnrichTask: enrichTask,
		batcher:    batcher,
		limit:      limit,
	}
}

func (t *EnrichmentSweepTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	job, err := t.batcher.RunSweep(ctx, t.EnrichTask, t.limit)
	if errors.Is(err, enrich.ErrSweepRunning) {
		// The previous sweep outlived the trigger cadence. The next one
		// will claim whatever it left unprocessed.
		slog.Info("Sweep still running, skipping trigger", "task", t.EnrichTask)
		return nil
	}
	if err != nil {
		return fmt.Errorf("enrichment sweep failed: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"task", t.EnrichTask,
		"duration", t.GetDuration(),
		"job_id", job.ID,
		"status", job.Status,
		"total", job.Total,
		"processed", job.Processed,
		"failed", job.Failed,
		"skipped", job.Skipped)

	return nil
}
