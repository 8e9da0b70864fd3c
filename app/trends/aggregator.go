package trends

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/adetobi/trendpulse/app/content"
	"github.com/adetobi/trendpulse/app/database"
)

// Aggregator rolls recent items into one row per (hour, platform) with total
// posts, videos and engagement counters.
type Aggregator struct {
	contentRepo database.ContentRepository
	aggRepo     database.AggregateRepository
}

func NewAggregator(contentRepo database.ContentRepository, aggRepo database.AggregateRepository) *Aggregator {
	return &Aggregator{contentRepo: contentRepo, aggRepo: aggRepo}
}

// Run aggregates every item collected within the lookback and upserts the
// affected hourly rows. Re-running is idempotent: rows are replaced, not
// accumulated.
func (a *Aggregator) Run(lookback time.Duration) (int, error) {
	since := time.Now().UTC().Add(-lookback).Truncate(time.Hour)

	items, err := a.contentRepo.GetItemsSince(since, nil, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to scan aggregation window: %w", err)
	}

	type key struct {
		hour     time.Time
		platform content.Platform
	}
	buckets := make(map[key]*content.PlatformHourlyStat)

	for _, item := range items {
		k := key{
			hour:     item.CollectedAt.UTC().Truncate(time.Hour),
			platform: item.Platform,
		}
		stat, ok := buckets[k]
		if !ok {
			stat = &content.PlatformHourlyStat{Hour: k.hour, Platform: k.platform}
			buckets[k] = stat
		}

		stat.Posts++
		if isVideoPost(&item) {
			stat.Videos++
		}
		stat.Views += int64(item.Metrics.Metric("views"))
		stat.Likes += int64(item.Metrics.Metric("likes"))
		stat.Comments += int64(item.Metrics.Metric("comments"))
		stat.Shares += int64(item.Metrics.Metric("shares"))
	}

	for _, stat := range buckets {
		if err := a.aggRepo.UpsertHourlyStat(stat); err != nil {
			return 0, fmt.Errorf("failed to store hourly stat: %w", err)
		}
	}

	slog.Debug("Hourly aggregation completed", "items", len(items), "rows", len(buckets))

	return len(buckets), nil
}

var videoExtensions = []string{".mp4", ".m3u8", ".mov", ".webm"}

func isVideoPost(item *content.ContentItem) bool {
	if item.Platform == content.PlatformTikTok {
		return true
	}
	for _, u := range item.MediaURLs {
		lower := strings.ToLower(u)
		for _, ext := range videoExtensions {
			if strings.Contains(lower, ext) {
				return true
			}
		}
	}
	return false
}
