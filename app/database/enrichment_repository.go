package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/adetobi/trendpulse/app/content"
)

var _ EnrichmentRepository = (*EnrichmentRepo)(nil)

// EnrichmentRepo handles the per-task result tables, processing_status flag
// updates and batch job audit rows. Result tables are append-only: an item
// may accumulate several results over time, the status flag only needs one.
type EnrichmentRepo struct {
	db *DB
}

func NewEnrichmentRepo(db *DB) *EnrichmentRepo {
	return &EnrichmentRepo{db: db}
}

// taskColumn maps a task type to its processing_status flag column. The map
// is the whitelist that keeps task names out of SQL string building.
func taskColumn(task content.TaskType) (string, error) {
	switch task {
	case content.TaskSentiment:
		return "sentiment_done", nil
	case content.TaskLocation:
		return "location_done", nil
	case content.TaskEntity:
		return "entity_done", nil
	case content.TaskKeyword:
		return "keyword_done", nil
	}
	return "", fmt.Errorf("unknown task type: %q", task)
}

func (r *EnrichmentRepo) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, nil)
}

// Unprocessed returns up to limit items whose flag for the task is still
// false. One query per sweep, not per item.
func (r *EnrichmentRepo) Unprocessed(task content.TaskType, limit int) ([]EnrichmentCandidate, error) {
	column, err := taskColumn(task)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(fmt.Sprintf(`
		SELECT ci.id, ci.text_content, ci.location_hint
		FROM content_items ci
		JOIN processing_status ps ON ps.item_id = ci.id
		WHERE ps.%s = 0
		ORDER BY ci.created_at
		LIMIT ?
	`, column), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unprocessed items: %w", err)
	}
	defer rows.Close()

	var candidates []EnrichmentCandidate
	for rows.Next() {
		var c EnrichmentCandidate
		if err := rows.Scan(&c.ItemID, &c.Text, &c.LocationHint); err != nil {
			return nil, fmt.Errorf("failed to scan candidate row: %w", err)
		}
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidate rows: %w", err)
	}

	return candidates, nil
}

// DoneCount returns how many items already carry a true flag for the task.
func (r *EnrichmentRepo) DoneCount(task content.TaskType) (int, error) {
	column, err := taskColumn(task)
	if err != nil {
		return 0, err
	}

	var count int
	err = r.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM processing_status WHERE %s = 1`, column)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count done items: %w", err)
	}
	return count, nil
}

// SaveResultTx appends one result row to the task's table.
func (r *EnrichmentRepo) SaveResultTx(tx *sql.Tx, task content.TaskType, itemID string, res EnrichmentResult) error {
	var err error

	switch task {
	case content.TaskSentiment:
		_, err = tx.Exec(`
			INSERT INTO sentiment_results (item_id, model, label, score, confidence)
			VALUES (?, ?, ?, ?, ?)
		`, itemID, res.Model, res.Label, res.Score, res.Confidence)
	case content.TaskLocation:
		_, err = tx.Exec(`
			INSERT INTO location_results (item_id, model, location_name, confidence)
			VALUES (?, ?, ?, ?)
		`, itemID, res.Model, res.Location, res.Confidence)
	case content.TaskEntity:
		entitiesJSON, merr := json.Marshal(emptyIfNil(res.Entities))
		if merr != nil {
			return fmt.Errorf("failed to marshal entities: %w", merr)
		}
		_, err = tx.Exec(`
			INSERT INTO entity_results (item_id, model, entities)
			VALUES (?, ?, ?)
		`, itemID, res.Model, string(entitiesJSON))
	case content.TaskKeyword:
		keywordsJSON, merr := json.Marshal(emptyIfNil(res.Keywords))
		if merr != nil {
			return fmt.Errorf("failed to marshal keywords: %w", merr)
		}
		_, err = tx.Exec(`
			INSERT INTO keyword_results (item_id, model, keywords)
			VALUES (?, ?, ?)
		`, itemID, res.Model, string(keywordsJSON))
	default:
		return fmt.Errorf("unknown task type: %q", task)
	}

	if err != nil {
		return fmt.Errorf("failed to save %s result: %w", task, err)
	}
	return nil
}

// MarkDoneTx flips the task's flag and recomputes is_processed from the four
// flags in the same statement, so the derived value can never go stale.
// UPDATE expressions see the pre-update row, so the flipped flag enters the
// conjunction as a literal 1 and only the other three are read back.
func (r *EnrichmentRepo) MarkDoneTx(tx *sql.Tx, task content.TaskType, itemID string) error {
	column, err := taskColumn(task)
	if err != nil {
		return err
	}

	others := ""
	for _, t := range content.AllTasks {
		if t == task {
			continue
		}
		c, _ := taskColumn(t)
		others += " AND " + c
	}

	_, err = tx.Exec(fmt.Sprintf(`
		UPDATE processing_status
		SET %s = 1,
		    is_processed = (1%s),
		    updated_at = ?
		WHERE item_id = ?
	`, column, others), time.Now().UTC(), itemID)
	if err != nil {
		return fmt.Errorf("failed to mark %s done: %w", task, err)
	}

	return nil
}

// RecordFailureTx counts one failed enrichment attempt. The task flag stays
// false so the item is retried on the next sweep.
func (r *EnrichmentRepo) RecordFailureTx(tx *sql.Tx, itemID string, errMsg string) error {
	_, err := tx.Exec(`
		UPDATE processing_status
		SET attempts = attempts + 1, last_error = ?, updated_at = ?
		WHERE item_id = ?
	`, truncateError(errMsg), time.Now().UTC(), itemID)
	if err != nil {
		return fmt.Errorf("failed to record enrichment failure: %w", err)
	}
	return nil
}

func (r *EnrichmentRepo) CreateJob(job *content.BatchJob) error {
	errorsJSON, err := json.Marshal(emptyIfNil(job.Errors))
	if err != nil {
		return fmt.Errorf("failed to marshal job errors: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO batch_jobs (id, job_type, status, total, processed, failed, skipped, errors, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.JobType, job.Status, job.Total, job.Processed, job.Failed,
		job.Skipped, string(errorsJSON), job.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create batch job: %w", err)
	}
	return nil
}

// UpdateJobProgress advances the counters of a running job. Terminal jobs
// are never touched.
func (r *EnrichmentRepo) UpdateJobProgress(jobID string, processed, failed int) error {
	_, err := r.db.Exec(`
		UPDATE batch_jobs
		SET processed = ?, failed = ?
		WHERE id = ? AND status NOT IN ('completed', 'partial', 'failed')
	`, processed, failed, jobID)
	if err != nil {
		return fmt.Errorf("failed to update batch job progress: %w", err)
	}
	return nil
}

// FinishJob moves a job to a terminal status exactly once. Total is
// reconciled down to what was actually attempted, so a sweep aborted by
// cancellation or a database error still ends with
// total == processed + failed.
func (r *EnrichmentRepo) FinishJob(jobID string, status content.BatchJobStatus, jobErrors []string) error {
	errorsJSON, err := json.Marshal(emptyIfNil(jobErrors))
	if err != nil {
		return fmt.Errorf("failed to marshal job errors: %w", err)
	}

	_, err = r.db.Exec(`
		UPDATE batch_jobs
		SET status = ?, errors = ?, completed_at = ?, total = processed + failed
		WHERE id = ? AND status NOT IN ('completed', 'partial', 'failed')
	`, status, string(errorsJSON), time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("failed to finish batch job: %w", err)
	}
	return nil
}

func (r *EnrichmentRepo) GetJob(jobID string) (*content.BatchJob, error) {
	var job content.BatchJob
	var errorsJSON string

	err := r.db.QueryRow(`
		SELECT id, job_type, status, total, processed, failed, skipped, errors, started_at, completed_at
		FROM batch_jobs
		WHERE id = ?
	`, jobID).Scan(
		&job.ID, &job.JobType, &job.Status, &job.Total, &job.Processed,
		&job.Failed, &job.Skipped, &errorsJSON, &job.StartedAt, &job.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch job: %w", err)
	}

	if err := json.Unmarshal([]byte(errorsJSON), &job.Errors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job errors: %w", err)
	}

	return &job, nil
}

// SetJobTotal records the sweep's claimed and skipped counts once the
// unprocessed set is known.
func (r *EnrichmentRepo) SetJobTotal(jobID string, total, skipped int) error {
	_, err := r.db.Exec(`
		UPDATE batch_jobs
		SET total = ?, skipped = ?, status = ?
		WHERE id = ? AND status = 'pending'
	`, total, skipped, content.JobProcessing, jobID)
	if err != nil {
		return fmt.Errorf("failed to set batch job total: %w", err)
	}
	return nil
}

// truncateError caps stored error text, backing off to a rune boundary so
// a multi-byte character is never split.
func truncateError(msg string) string {
	const maxLen = 500
	if len(msg) <= maxLen {
		return msg
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
