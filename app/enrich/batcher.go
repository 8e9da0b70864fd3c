package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adetobi/trendpulse/app/content"
	"github.com/adetobi/trendpulse/app/database"
)

// ErrSweepRunning is returned when a sweep for the same task type is already
// in flight. Two concurrent sweeps would claim the same unprocessed set and
// enrich every item in it twice.
var ErrSweepRunning = errors.New("sweep already running")

// Batcher runs one enrichment sweep per call: compute the unprocessed set
// for a task once, analyze each claimed item, persist results and status
// flags in commit batches, and keep a BatchJob audit row current throughout.
// Sweeps are serialized per task type; a concurrent duplicate gets
// ErrSweepRunning instead of a job.
type Batcher struct {
	repo      database.EnrichmentRepository
	analyzer  Analyzer
	batchSize int

	mu      sync.Mutex
	running map[content.TaskType]bool
}

func NewBatcher(repo database.EnrichmentRepository, analyzer Analyzer, batchSize int) *Batcher {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Batcher{
		repo:      repo,
		analyzer:  analyzer,
		batchSize: batchSize,
		running:   make(map[content.TaskType]bool),
	}
}

func (b *Batcher) claim(task content.TaskType) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running[task] {
		return false
	}
	b.running[task] = true
	return true
}

func (b *Batcher) release(task content.TaskType) {
	b.mu.Lock()
	delete(b.running, task)
	b.mu.Unlock()
}

// RunSweep enriches up to limit unprocessed items for one task.
// Job counters satisfy total == processed + failed at every commit point;
// skipped counts items pre-filtered as already done.
func (b *Batcher) RunSweep(ctx context.Context, task content.TaskType, limit int) (*content.BatchJob, error) {
	if !task.Valid() {
		return nil, fmt.Errorf("unknown task type: %q", task)
	}

	if !b.claim(task) {
		return nil, fmt.Errorf("%s: %w", task, ErrSweepRunning)
	}
	defer b.release(task)

	job := &content.BatchJob{
		ID:        uuid.NewString(),
		JobType:   task,
		Status:    content.JobPending,
		StartedAt: time.Now().UTC(),
	}
	if err := b.repo.CreateJob(job); err != nil {
		return nil, fmt.Errorf("failed to create batch job: %w", err)
	}

	skipped, err := b.repo.DoneCount(task)
	if err != nil {
		b.finish(job.ID, content.JobFailed, []string{err.Error()})
		return nil, fmt.Errorf("failed to count already-done items: %w", err)
	}

	candidates, err := b.repo.Unprocessed(task, limit)
	if err != nil {
		b.finish(job.ID, content.JobFailed, []string{err.Error()})
		return nil, fmt.Errorf("failed to compute unprocessed set: %w", err)
	}

	if err := b.repo.SetJobTotal(job.ID, len(candidates), skipped); err != nil {
		return nil, fmt.Errorf("failed to record sweep size: %w", err)
	}

	var processed, failed int
	var jobErrors []string

	for start := 0; start < len(candidates); start += b.batchSize {
		end := start + b.batchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		batchProcessed, batchFailed, batchErrors, err := b.runBatch(ctx, task, candidates[start:end])
		processed += batchProcessed
		failed += batchFailed
		jobErrors = append(jobErrors, batchErrors...)

		if err != nil {
			// Cancellation or database failure mid-sweep: earlier batches
			// are committed, FinishJob reconciles total with what landed.
			jobErrors = append(jobErrors, err.Error())
			b.repo.UpdateJobProgress(job.ID, processed, failed)
			b.finish(job.ID, content.JobFailed, jobErrors)
			return b.repo.GetJob(job.ID)
		}

		if err := b.repo.UpdateJobProgress(job.ID, processed, failed); err != nil {
			slog.Error("Failed to update batch job progress", "job_id", job.ID, "error", err)
		}
	}

	status := content.JobCompleted
	switch {
	case failed > 0 && processed == 0:
		status = content.JobFailed
	case failed > 0:
		status = content.JobPartial
	}

	b.finish(job.ID, status, jobErrors)

	slog.Info("Enrichment sweep completed", "task", task, "job_id", job.ID,
		"total", len(candidates), "processed", processed, "failed", failed,
		"skipped", skipped, "status", status)

	return b.repo.GetJob(job.ID)
}

// runBatch analyzes one commit batch inside a single transaction. Analyzer
// failures are recorded per item and never abort the batch; only database
// errors do.
func (b *Batcher) runBatch(ctx context.Context, task content.TaskType, batch []database.EnrichmentCandidate) (int, int, []string, error) {
	tx, err := b.repo.BeginTx(ctx)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("failed to begin batch transaction: %w", err)
	}
	defer tx.Rollback()

	var processed, failed int
	var batchErrors []string

	for _, candidate := range batch {
		if err := ctx.Err(); err != nil {
			// The transaction is scoped to ctx, so nothing in this batch
			// can commit once the sweep is cancelled.
			return 0, 0, batchErrors, err
		}

		analysis, analyzeErr := b.analyzer.Analyze(ctx, task, Input{
			Text:         candidate.Text,
			LocationHint: candidate.LocationHint,
		})
		if analyzeErr != nil {
			failed++
			batchErrors = append(batchErrors, fmt.Sprintf("%s: %v", candidate.ItemID, analyzeErr))
			if err := b.repo.RecordFailureTx(tx, candidate.ItemID, analyzeErr.Error()); err != nil {
				return 0, 0, batchErrors, err
			}
			continue
		}

		res := database.EnrichmentResult{
			Model:      b.analyzer.Model(),
			Label:      analysis.Label,
			Score:      analysis.Score,
			Confidence: analysis.Confidence,
			Location:   analysis.Location,
			Entities:   analysis.Entities,
			Keywords:   analysis.Keywords,
		}
		if err := b.repo.SaveResultTx(tx, task, candidate.ItemID, res); err != nil {
			return 0, 0, batchErrors, err
		}
		if err := b.repo.MarkDoneTx(tx, task, candidate.ItemID); err != nil {
			return 0, 0, batchErrors, err
		}
		processed++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, batchErrors, fmt.Errorf("failed to commit batch: %w", err)
	}

	return processed, failed, batchErrors, nil
}

func (b *Batcher) finish(jobID string, status content.BatchJobStatus, jobErrors []string) {
	if err := b.repo.FinishJob(jobID, status, jobErrors); err != nil {
		slog.Error("Failed to finish batch job", "job_id", jobID, "error", err)
	}
}
