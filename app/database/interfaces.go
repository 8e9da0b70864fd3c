package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/adetobi/trendpulse/app/content"
)

// UpsertOutcome reports whether an upsert created a new row or refreshed an
// existing one.
type UpsertOutcome string

const (
	OutcomeInserted UpsertOutcome = "inserted"
	OutcomeUpdated  UpsertOutcome = "updated"
)

// ProcessingStats is the operator-facing view of enrichment progress.
type ProcessingStats struct {
	Total          int                      `json:"total"`
	FullyProcessed int                      `json:"fully_processed"`
	PerTask        map[content.TaskType]int `json:"per_task_processed"`
}

// EnrichmentCandidate is one item claimed by an enrichment sweep.
type EnrichmentCandidate struct {
	ItemID       string
	Text         string
	LocationHint string
}

type ContentRepository interface {
	UpsertItem(item *content.ContentItem) (UpsertOutcome, error)
	GetItem(platform content.Platform, sourceID string) (*content.ContentItem, error)
	GetStatus(itemID string) (*content.ProcessingStatus, error)
	GetItemsSince(since time.Time, platforms []content.Platform, limit uint64) ([]content.ContentItem, error)
	GetItemCount() (int, error)
	GetProcessingStats() (*ProcessingStats, error)
}

type EnrichmentRepository interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)
	Unprocessed(task content.TaskType, limit int) ([]EnrichmentCandidate, error)
	DoneCount(task content.TaskType) (int, error)
	SaveResultTx(tx *sql.Tx, task content.TaskType, itemID string, res EnrichmentResult) error
	MarkDoneTx(tx *sql.Tx, task content.TaskType, itemID string) error
	RecordFailureTx(tx *sql.Tx, itemID string, errMsg string) error

	CreateJob(job *content.BatchJob) error
	SetJobTotal(jobID string, total, skipped int) error
	UpdateJobProgress(jobID string, processed, failed int) error
	FinishJob(jobID string, status content.BatchJobStatus, errors []string) error
	GetJob(jobID string) (*content.BatchJob, error)
}

type SourceRepository interface {
	GetMonitor(sourceType content.SourceType, sourceName string) (*content.SourceHealth, error)
	ListMonitors() ([]content.SourceHealth, error)
	UpsertMonitor(rec *content.SourceHealth) error
	ResetDailyCounts() error
}

type AggregateRepository interface {
	UpsertHourlyStat(stat *content.PlatformHourlyStat) error
	GetHourlyStats(since time.Time) ([]content.PlatformHourlyStat, error)
}

// EnrichmentResult carries whichever fields the task's result table stores.
type EnrichmentResult struct {
	Model      string
	Label      string
	Score      float64
	Confidence float64
	Location   string
	Entities   []string
	Keywords   []string
}
