package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/adetobi/trendpulse/app/content"
)

var _ SourceRepository = (*SourceRepo)(nil)

// SourceRepo handles the source_monitors table, one row per
// (source_type, source_name).
type SourceRepo struct {
	db *DB
}

func NewSourceRepo(db *DB) *SourceRepo {
	return &SourceRepo{db: db}
}

const monitorColumns = `
	source_type, source_name, platform, status, last_successful_fetch,
	last_attempt, total_items_collected, items_collected_today,
	consecutive_failures, last_error, rate_limit_reset, requests_remaining,
	collection_frequency, priority, updated_at`

func (r *SourceRepo) GetMonitor(sourceType content.SourceType, sourceName string) (*content.SourceHealth, error) {
	row := r.db.QueryRow(`
		SELECT `+monitorColumns+`
		FROM source_monitors
		WHERE source_type = ? AND source_name = ?
	`, sourceType, sourceName)

	rec, err := scanMonitor(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source monitor: %w", err)
	}
	return rec, nil
}

func (r *SourceRepo) ListMonitors() ([]content.SourceHealth, error) {
	rows, err := r.db.Query(`
		SELECT ` + monitorColumns + `
		FROM source_monitors
		ORDER BY priority DESC, source_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list source monitors: %w", err)
	}
	defer rows.Close()

	var monitors []content.SourceHealth
	for rows.Next() {
		rec, err := scanMonitor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monitor row: %w", err)
		}
		monitors = append(monitors, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monitor rows: %w", err)
	}

	return monitors, nil
}

// UpsertMonitor writes the full monitor record, keyed on its natural key.
func (r *SourceRepo) UpsertMonitor(rec *content.SourceHealth) error {
	_, err := r.db.Exec(`
		INSERT INTO source_monitors (
			source_type, source_name, platform, status, last_successful_fetch,
			last_attempt, total_items_collected, items_collected_today,
			consecutive_failures, last_error, rate_limit_reset,
			requests_remaining, collection_frequency, priority, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_type, source_name) DO UPDATE SET
			platform = excluded.platform,
			status = excluded.status,
			last_successful_fetch = excluded.last_successful_fetch,
			last_attempt = excluded.last_attempt,
			total_items_collected = excluded.total_items_collected,
			items_collected_today = excluded.items_collected_today,
			consecutive_failures = excluded.consecutive_failures,
			last_error = excluded.last_error,
			rate_limit_reset = excluded.rate_limit_reset,
			requests_remaining = excluded.requests_remaining,
			collection_frequency = excluded.collection_frequency,
			priority = excluded.priority,
			updated_at = excluded.updated_at
	`, rec.SourceType, rec.SourceName, rec.Platform, rec.Status,
		rec.LastSuccessfulFetch, rec.LastAttempt, rec.TotalItemsCollected,
		rec.ItemsCollectedToday, rec.ConsecutiveFailures,
		truncateError(rec.LastError), rec.RateLimitReset,
		rec.RequestsRemaining, rec.CollectionFrequency, rec.Priority,
		time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert source monitor: %w", err)
	}
	return nil
}

// ResetDailyCounts zeroes items_collected_today for every source. Called by
// the daily trigger.
func (r *SourceRepo) ResetDailyCounts() error {
	_, err := r.db.Exec(`
		UPDATE source_monitors
		SET items_collected_today = 0, updated_at = ?
	`, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to reset daily counts: %w", err)
	}
	return nil
}

func scanMonitor(row rowScanner) (*content.SourceHealth, error) {
	var rec content.SourceHealth
	err := row.Scan(
		&rec.SourceType, &rec.SourceName, &rec.Platform, &rec.Status,
		&rec.LastSuccessfulFetch, &rec.LastAttempt, &rec.TotalItemsCollected,
		&rec.ItemsCollectedToday, &rec.ConsecutiveFailures, &rec.LastError,
		&rec.RateLimitReset, &rec.RequestsRemaining, &rec.CollectionFrequency,
		&rec.Priority, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
