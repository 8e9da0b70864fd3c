package enrich

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/adetobi/trendpulse/app/content"
	"github.com/adetobi/trendpulse/app/database"
)

func openSweepDB(t *testing.T) (*database.ContentRepo, *database.EnrichmentRepo) {
	t.Helper()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatal(err)
	}

	return database.NewContentRepo(db), database.NewEnrichmentRepo(db)
}

func insertSweepItems(t *testing.T, repo *database.ContentRepo, texts []string) []string {
	t.Helper()
	ids := make([]string, 0, len(texts))
	for i, text := range texts {
		item := &content.ContentItem{
			Platform:    content.PlatformTwitter,
			SourceID:    "sweep-" + strconv.Itoa(i),
			Text:        text,
			Metrics:     content.Metrics{},
			CollectedAt: time.Now().UTC(),
		}
		if _, err := repo.UpsertItem(item); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, item.ID)
	}
	return ids
}

// flakyAnalyzer fails on texts containing the trigger word.
type flakyAnalyzer struct {
	trigger string
}

func (a *flakyAnalyzer) Model() string { return "flaky-test" }

func (a *flakyAnalyzer) Analyze(ctx context.Context, task content.TaskType, input Input) (*Analysis, error) {
	if a.trigger != "" && strings.Contains(input.Text, a.trigger) {
		return nil, errors.New("model unavailable")
	}
	return &Analysis{Label: "neutral", Confidence: 0.5}, nil
}

func TestRunSweepCompletes(t *testing.T) {
	contentRepo, enrichRepo := openSweepDB(t)
	insertSweepItems(t, contentRepo, []string{"one", "two", "three"})

	batcher := NewBatcher(enrichRepo, NewLexiconAnalyzer(), 2)

	job, err := batcher.RunSweep(context.Background(), content.TaskSentiment, 10)
	if err != nil {
		t.Fatal(err)
	}

	if job.Status != content.JobCompleted {
		t.Errorf("Expected completed, got '%s'", job.Status)
	}
	if job.Total != 3 || job.Processed != 3 || job.Failed != 0 || job.Skipped != 0 {
		t.Errorf("Expected total=3 processed=3 failed=0 skipped=0, got %+v", job)
	}
	if job.Total != job.Processed+job.Failed {
		t.Errorf("Job counters violate total == processed + failed: %+v", job)
	}
	if job.CompletedAt == nil {
		t.Errorf("Expected completion timestamp")
	}

	done, err := enrichRepo.DoneCount(content.TaskSentiment)
	if err != nil {
		t.Fatal(err)
	}
	if done != 3 {
		t.Errorf("Expected 3 items sentiment-done, got %d", done)
	}
}

func TestRunSweepSecondPassSkipsDoneItems(t *testing.T) {
	contentRepo, enrichRepo := openSweepDB(t)
	insertSweepItems(t, contentRepo, []string{"one", "two"})

	batcher := NewBatcher(enrichRepo, NewLexiconAnalyzer(), 10)

	if _, err := batcher.RunSweep(context.Background(), content.TaskKeyword, 10); err != nil {
		t.Fatal(err)
	}

	// at most once: the second sweep claims nothing
	job, err := batcher.RunSweep(context.Background(), content.TaskKeyword, 10)
	if err != nil {
		t.Fatal(err)
	}
	if job.Total != 0 || job.Processed != 0 {
		t.Errorf("Expected empty second sweep, got total=%d processed=%d", job.Total, job.Processed)
	}
	if job.Skipped != 2 {
		t.Errorf("Expected 2 skipped on second sweep, got %d", job.Skipped)
	}
	if job.Status != content.JobCompleted {
		t.Errorf("Expected completed, got '%s'", job.Status)
	}
}

func TestRunSweepPartialOnAnalyzerFailure(t *testing.T) {
	contentRepo, enrichRepo := openSweepDB(t)
	ids := insertSweepItems(t, contentRepo, []string{"fine text", "broken payload", "also fine"})

	batcher := NewBatcher(enrichRepo, &flakyAnalyzer{trigger: "broken"}, 2)

	job, err := batcher.RunSweep(context.Background(), content.TaskSentiment, 10)
	if err != nil {
		t.Fatal(err)
	}

	if job.Status != content.JobPartial {
		t.Errorf("Expected partial, got '%s'", job.Status)
	}
	if job.Processed != 2 || job.Failed != 1 {
		t.Errorf("Expected processed=2 failed=1, got processed=%d failed=%d", job.Processed, job.Failed)
	}
	if job.Total != job.Processed+job.Failed {
		t.Errorf("Job counters violate total == processed + failed: %+v", job)
	}
	if len(job.Errors) != 1 {
		t.Errorf("Expected 1 recorded error, got %v", job.Errors)
	}

	// the failed item stays eligible and carries the attempt
	status, err := contentRepo.GetStatus(ids[1])
	if err != nil {
		t.Fatal(err)
	}
	if status.SentimentDone {
		t.Errorf("Expected failed item to stay not-done")
	}
	if status.Attempts != 1 {
		t.Errorf("Expected 1 attempt on failed item, got %d", status.Attempts)
	}

	candidates, err := enrichRepo.Unprocessed(content.TaskSentiment, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 || candidates[0].ItemID != ids[1] {
		t.Errorf("Expected only the failed item as candidate, got %v", candidates)
	}
}

func TestRunSweepAllFail(t *testing.T) {
	contentRepo, enrichRepo := openSweepDB(t)
	insertSweepItems(t, contentRepo, []string{"broken one", "broken two"})

	batcher := NewBatcher(enrichRepo, &flakyAnalyzer{trigger: "broken"}, 10)

	job, err := batcher.RunSweep(context.Background(), content.TaskEntity, 10)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != content.JobFailed {
		t.Errorf("Expected failed when nothing processed, got '%s'", job.Status)
	}
	if job.Failed != 2 {
		t.Errorf("Expected 2 failures, got %d", job.Failed)
	}
}

func TestRunSweepRespectsLimit(t *testing.T) {
	contentRepo, enrichRepo := openSweepDB(t)
	insertSweepItems(t, contentRepo, []string{"a", "b", "c", "d", "e"})

	batcher := NewBatcher(enrichRepo, NewLexiconAnalyzer(), 2)

	job, err := batcher.RunSweep(context.Background(), content.TaskLocation, 3)
	if err != nil {
		t.Fatal(err)
	}
	if job.Total != 3 || job.Processed != 3 {
		t.Errorf("Expected sweep capped at 3, got total=%d processed=%d", job.Total, job.Processed)
	}

	remaining, err := enrichRepo.Unprocessed(content.TaskLocation, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 2 {
		t.Errorf("Expected 2 items left for the next sweep, got %d", len(remaining))
	}
}

// gatedAnalyzer signals each call on started, then blocks until release is
// closed.
type gatedAnalyzer struct {
	started chan struct{}
	release chan struct{}
}

func (a *gatedAnalyzer) Model() string { return "gated-test" }

func (a *gatedAnalyzer) Analyze(ctx context.Context, task content.TaskType, input Input) (*Analysis, error) {
	a.started <- struct{}{}
	<-a.release
	return &Analysis{Label: "neutral", Confidence: 0.5}, nil
}

func TestRunSweepRejectsConcurrentDuplicate(t *testing.T) {
	contentRepo, enrichRepo := openSweepDB(t)
	insertSweepItems(t, contentRepo, []string{"one", "two", "three"})

	analyzer := &gatedAnalyzer{started: make(chan struct{}, 8), release: make(chan struct{})}
	batcher := NewBatcher(enrichRepo, analyzer, 10)

	type sweepResult struct {
		job *content.BatchJob
		err error
	}
	firstDone := make(chan sweepResult, 1)
	go func() {
		job, err := batcher.RunSweep(context.Background(), content.TaskSentiment, 10)
		firstDone <- sweepResult{job, err}
	}()

	// the first sweep holds the sentiment slot mid-analysis
	<-analyzer.started

	if _, err := batcher.RunSweep(context.Background(), content.TaskSentiment, 10); !errors.Is(err, ErrSweepRunning) {
		t.Errorf("Expected concurrent sweep rejected, got %v", err)
	}

	close(analyzer.release)
	first := <-firstDone
	if first.err != nil {
		t.Fatal(first.err)
	}
	if first.job.Status != content.JobCompleted || first.job.Processed != 3 {
		t.Errorf("Expected first sweep to complete 3 items, got %+v", first.job)
	}

	// the slot is released and the rejected sweep claimed nothing
	job, err := batcher.RunSweep(context.Background(), content.TaskSentiment, 10)
	if err != nil {
		t.Fatal(err)
	}
	if job.Total != 0 || job.Skipped != 3 {
		t.Errorf("Expected nothing left to claim, got total=%d skipped=%d", job.Total, job.Skipped)
	}
}

// cancellingAnalyzer cancels the sweep after a fixed number of successful
// calls.
type cancellingAnalyzer struct {
	cancel      context.CancelFunc
	cancelAfter int
	calls       int
}

func (a *cancellingAnalyzer) Model() string { return "cancelling-test" }

func (a *cancellingAnalyzer) Analyze(ctx context.Context, task content.TaskType, input Input) (*Analysis, error) {
	a.calls++
	if a.calls > a.cancelAfter {
		a.cancel()
		return nil, ctx.Err()
	}
	return &Analysis{Label: "neutral", Confidence: 0.5}, nil
}

func TestRunSweepCancelledKeepsCountersConsistent(t *testing.T) {
	contentRepo, enrichRepo := openSweepDB(t)
	insertSweepItems(t, contentRepo, []string{"one", "two", "three", "four"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// first batch of 2 commits, cancellation hits during the second
	batcher := NewBatcher(enrichRepo, &cancellingAnalyzer{cancel: cancel, cancelAfter: 2}, 2)

	job, err := batcher.RunSweep(ctx, content.TaskSentiment, 10)
	if err != nil {
		t.Fatal(err)
	}

	if job.Status != content.JobFailed {
		t.Errorf("Expected cancelled sweep to end failed, got '%s'", job.Status)
	}
	if job.Processed != 2 || job.Failed != 0 {
		t.Errorf("Expected only the committed batch counted, got processed=%d failed=%d",
			job.Processed, job.Failed)
	}
	if job.Total != job.Processed+job.Failed {
		t.Errorf("Job counters violate total == processed + failed: %+v", job)
	}
	if job.CompletedAt == nil {
		t.Errorf("Expected completion timestamp on cancelled job")
	}
	if len(job.Errors) == 0 {
		t.Errorf("Expected cancellation recorded in job errors")
	}

	// the aborted batch rolled back: both items stay candidates
	candidates, err := enrichRepo.Unprocessed(content.TaskSentiment, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 2 {
		t.Errorf("Expected 2 items left for the next sweep, got %d", len(candidates))
	}
}

func TestRunSweepUnknownTask(t *testing.T) {
	_, enrichRepo := openSweepDB(t)

	batcher := NewBatcher(enrichRepo, NewLexiconAnalyzer(), 10)
	if _, err := batcher.RunSweep(context.Background(), content.TaskType("translation"), 10); err == nil {
		t.Fatal("Expected error for unknown task type")
	}
}
