package database

import (
	"fmt"
	"time"

	"github.com/adetobi/trendpulse/app/content"
)

var _ AggregateRepository = (*AggregateRepo)(nil)

// AggregateRepo handles the hourly per-platform rollup rows.
type AggregateRepo struct {
	db *DB
}

func NewAggregateRepo(db *DB) *AggregateRepo {
	return &AggregateRepo{db: db}
}

// UpsertHourlyStat writes one rollup row keyed (hour, platform). Re-running
// an aggregation for the same hour replaces the row with fresh totals.
func (r *AggregateRepo) UpsertHourlyStat(stat *content.PlatformHourlyStat) error {
	_, err := r.db.Exec(`
		INSERT INTO platform_hourly_stats (hour, platform, posts, videos, views, likes, comments, shares)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (hour, platform) DO UPDATE SET
			posts = excluded.posts,
			videos = excluded.videos,
			views = excluded.views,
			likes = excluded.likes,
			comments = excluded.comments,
			shares = excluded.shares
	`, stat.Hour.UTC(), stat.Platform, stat.Posts, stat.Videos, stat.Views,
		stat.Likes, stat.Comments, stat.Shares)
	if err != nil {
		return fmt.Errorf("failed to upsert hourly stat: %w", err)
	}
	return nil
}

func (r *AggregateRepo) GetHourlyStats(since time.Time) ([]content.PlatformHourlyStat, error) {
	rows, err := r.db.Query(`
		SELECT hour, platform, posts, videos, views, likes, comments, shares
		FROM platform_hourly_stats
		WHERE hour >= ?
		ORDER BY hour DESC, platform
	`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to get hourly stats: %w", err)
	}
	defer rows.Close()

	var stats []content.PlatformHourlyStat
	for rows.Next() {
		var s content.PlatformHourlyStat
		err := rows.Scan(&s.Hour, &s.Platform, &s.Posts, &s.Videos, &s.Views,
			&s.Likes, &s.Comments, &s.Shares)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hourly stat row: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hourly stat rows: %w", err)
	}

	return stats, nil
}
