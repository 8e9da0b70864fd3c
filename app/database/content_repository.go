package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/adetobi/trendpulse/app/content"
)

var _ ContentRepository = (*ContentRepo)(nil)

// ContentRepo handles database operations for canonical content items and
// their processing status rows.
type ContentRepo struct {
	db *DB
}

func NewContentRepo(db *DB) *ContentRepo {
	return &ContentRepo{db: db}
}

// UpsertItem writes one item keyed (platform, source_id). A first write
// inserts the row together with its processing_status row; a re-fetch only
// refreshes the mutable fields (metrics, collected_at). The unique
// constraint makes concurrent upserts of the same key converge on one row.
func (r *ContentRepo) UpsertItem(item *content.ContentItem) (UpsertOutcome, error) {
	metricsJSON, err := json.Marshal(item.Metrics)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metrics: %w", err)
	}
	hashtagsJSON, err := json.Marshal(emptyIfNil(item.Hashtags))
	if err != nil {
		return "", fmt.Errorf("failed to marshal hashtags: %w", err)
	}
	mentionsJSON, err := json.Marshal(emptyIfNil(item.Mentions))
	if err != nil {
		return "", fmt.Errorf("failed to marshal mentions: %w", err)
	}
	mediaJSON, err := json.Marshal(emptyIfNil(item.MediaURLs))
	if err != nil {
		return "", fmt.Errorf("failed to marshal media URLs: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin upsert transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT OR IGNORE INTO content_items (
			platform, source_id, source_name, discovery, author, text_content,
			metrics, hashtags, mentions, media_urls, raw_payload,
			location_hint, posted_at, collected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.Platform, item.SourceID, item.SourceName, item.Discovery,
		item.Author, item.Text, string(metricsJSON), string(hashtagsJSON),
		string(mentionsJSON), string(mediaJSON), string(item.RawPayload),
		item.LocationHint, item.PostedAt, item.CollectedAt.UTC())
	if err != nil {
		return "", fmt.Errorf("failed to insert item: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to read rows affected: %w", err)
	}

	var itemID string
	err = tx.QueryRow(`SELECT id FROM content_items WHERE platform = ? AND source_id = ?`,
		item.Platform, item.SourceID).Scan(&itemID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve item id: %w", err)
	}
	item.ID = itemID

	outcome := OutcomeInserted
	if inserted == 0 {
		// Existing row: refresh only the mutable fields. posted_at and
		// raw_payload keep their original values.
		_, err = tx.Exec(`
			UPDATE content_items
			SET metrics = ?, collected_at = ?
			WHERE id = ?
		`, string(metricsJSON), item.CollectedAt.UTC(), itemID)
		if err != nil {
			return "", fmt.Errorf("failed to update mutable fields: %w", err)
		}
		outcome = OutcomeUpdated
	} else {
		_, err = tx.Exec(`INSERT INTO processing_status (item_id) VALUES (?)`, itemID)
		if err != nil {
			return "", fmt.Errorf("failed to create processing status: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit upsert: %w", err)
	}

	return outcome, nil
}

// GetItem retrieves one item by its natural key.
func (r *ContentRepo) GetItem(platform content.Platform, sourceID string) (*content.ContentItem, error) {
	row := r.db.QueryRow(`
		SELECT id, platform, source_id, source_name, discovery, author,
		       text_content, metrics, hashtags, mentions, media_urls,
		       COALESCE(raw_payload, ''), location_hint, posted_at,
		       collected_at, created_at
		FROM content_items
		WHERE platform = ? AND source_id = ?
	`, platform, sourceID)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// GetStatus retrieves the processing status row for one item.
func (r *ContentRepo) GetStatus(itemID string) (*content.ProcessingStatus, error) {
	var s content.ProcessingStatus
	err := r.db.QueryRow(`
		SELECT item_id, sentiment_done, location_done, entity_done,
		       keyword_done, is_processed, attempts, last_error,
		       created_at, updated_at
		FROM processing_status
		WHERE item_id = ?
	`, itemID).Scan(
		&s.ItemID, &s.SentimentDone, &s.LocationDone, &s.EntityDone,
		&s.KeywordDone, &s.IsProcessed, &s.Attempts, &s.LastError,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get processing status: %w", err)
	}
	return &s, nil
}

// GetItemsSince returns items collected on or after since, newest first.
// The filter set varies per call, so the query is built dynamically.
func (r *ContentRepo) GetItemsSince(since time.Time, platforms []content.Platform, limit uint64) ([]content.ContentItem, error) {
	builder := sq.Select(
		"id", "platform", "source_id", "source_name", "discovery", "author",
		"text_content", "metrics", "hashtags", "mentions", "media_urls",
		"COALESCE(raw_payload, '')", "location_hint", "posted_at",
		"collected_at", "created_at",
	).
		From("content_items").
		Where(sq.GtOrEq{"collected_at": since.UTC()}).
		OrderBy("collected_at DESC")

	if len(platforms) > 0 {
		names := make([]string, 0, len(platforms))
		for _, p := range platforms {
			names = append(names, string(p))
		}
		builder = builder.Where(sq.Eq{"platform": names})
	}
	if limit > 0 {
		builder = builder.Limit(limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build window query: %w", err)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []content.ContentItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

// GetItemCount returns the total number of stored items.
func (r *ContentRepo) GetItemCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM content_items").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}
	return count, nil
}

// GetProcessingStats returns overall and per-task enrichment progress.
func (r *ContentRepo) GetProcessingStats() (*ProcessingStats, error) {
	stats := &ProcessingStats{
		PerTask: make(map[content.TaskType]int, 4),
	}

	var sentiment, location, entity, keyword int
	err := r.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(is_processed), 0),
		       COALESCE(SUM(sentiment_done), 0),
		       COALESCE(SUM(location_done), 0),
		       COALESCE(SUM(entity_done), 0),
		       COALESCE(SUM(keyword_done), 0)
		FROM processing_status
	`).Scan(&stats.Total, &stats.FullyProcessed, &sentiment, &location, &entity, &keyword)
	if err != nil {
		return nil, fmt.Errorf("failed to get processing stats: %w", err)
	}

	stats.PerTask[content.TaskSentiment] = sentiment
	stats.PerTask[content.TaskLocation] = location
	stats.PerTask[content.TaskEntity] = entity
	stats.PerTask[content.TaskKeyword] = keyword

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*content.ContentItem, error) {
	var item content.ContentItem
	var metricsJSON, hashtagsJSON, mentionsJSON, mediaJSON, rawPayload string

	err := row.Scan(
		&item.ID, &item.Platform, &item.SourceID, &item.SourceName,
		&item.Discovery, &item.Author, &item.Text, &metricsJSON,
		&hashtagsJSON, &mentionsJSON, &mediaJSON, &rawPayload,
		&item.LocationHint, &item.PostedAt, &item.CollectedAt, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(metricsJSON), &item.Metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}
	if err := json.Unmarshal([]byte(hashtagsJSON), &item.Hashtags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal hashtags: %w", err)
	}
	if err := json.Unmarshal([]byte(mentionsJSON), &item.Mentions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mentions: %w", err)
	}
	if err := json.Unmarshal([]byte(mediaJSON), &item.MediaURLs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal media URLs: %w", err)
	}
	if rawPayload != "" {
		item.RawPayload = []byte(rawPayload)
	}

	return &item, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
