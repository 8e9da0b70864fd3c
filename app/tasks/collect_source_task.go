package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/adetobi/trendpulse/app/content"
	"github.com/adetobi/trendpulse/app/database"
	"github.com/adetobi/trendpulse/app/monitor"
	"github.com/adetobi/trendpulse/app/normalize"
	"github.com/adetobi/trendpulse/app/sources"
)

// CollectSourceTask runs one collection cycle for one source: fetch with
// retry and rate limiting, normalize each record, upsert into storage and
// record the attempt on the source monitor.
type CollectSourceTask struct {
	Task
	SourceConfig *sources.Config
	httpClient   *http.Client
	limiter      *sources.CallLimiter
	retryPolicy  sources.RetryPolicy
	normalizer   *normalize.Normalizer
	contentRepo  database.ContentRepository
	sourceMon    *monitor.SourceMonitor
	userAgent    string
}

func NewCollectSourceTask(sourceName string, sourceConfig *sources.Config,
	httpClient *http.Client, limiter *sources.CallLimiter,
	retryPolicy sources.RetryPolicy, normalizer *normalize.Normalizer,
	contentRepo database.ContentRepository, sourceMon *monitor.SourceMonitor,
	userAgent string) *CollectSourceTask {
	return &CollectSourceTask{
		Task:         NewTask(TaskTypeCollectSource, sourceName),
		SourceConfig: sourceConfig,
		httpClient:   httpClient,
		limiter:      limiter,
		retryPolicy:  retryPolicy,
		normalizer:   normalizer,
		contentRepo:  contentRepo,
		sourceMon:    sourceMon,
		userAgent:    userAgent,
	}
}

func (t *CollectSourceTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.SourceConfig.Settings.Enabled {
		slog.Debug("Source disabled, skipping", "source", t.SourceName)
		return nil
	}

	batch, err := t.fetchBatch(ctx)
	if err != nil {
		return t.handleFetchFailure(err)
	}

	inserted, updated, skipped, err := t.storeBatch(batch)
	if err != nil {
		return fmt.Errorf("failed to store batch: %w", err)
	}

	if err := t.sourceMon.RecordAttempt(t.SourceConfig, inserted+updated, nil); err != nil {
		slog.Error("Failed to record successful attempt", "source", t.SourceName, "error", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"total", len(batch.Records),
		"inserted", inserted,
		"updated", updated,
		"skipped", skipped)

	return nil
}

func (t *CollectSourceTask) fetchBatch(ctx context.Context) (*sources.RawBatch, error) {
	client, err := sources.NewClient(t.SourceConfig, t.httpClient, t.userAgent)
	if err != nil {
		return nil, err
	}

	delay := time.Duration(t.SourceConfig.Settings.InterCallDelay) * time.Second

	var batch *sources.RawBatch
	err = t.limiter.Acquire(ctx, t.SourceName, delay, func(ctx context.Context) error {
		return sources.Retry(ctx, t.retryPolicy, func(ctx context.Context) error {
			var fetchErr error
			batch, fetchErr = client.Fetch(ctx, t.SourceConfig)
			return fetchErr
		})
	})
	if err != nil {
		return nil, err
	}

	return batch, nil
}

// handleFetchFailure records the failed attempt and decides whether the
// scheduler should retry the whole task. Fetch failures are handled state
// (the monitor reflects them), not task errors: local retries already
// happened inside the retry policy.
func (t *CollectSourceTask) handleFetchFailure(fetchErr error) error {
	if errors.Is(fetchErr, context.Canceled) || errors.Is(fetchErr, context.DeadlineExceeded) {
		return fetchErr
	}

	if recordErr := t.sourceMon.RecordAttempt(t.SourceConfig, 0, fetchErr); recordErr != nil {
		slog.Error("Failed to record fetch failure", "source", t.SourceName, "error", recordErr)
	}

	if fe, ok := sources.AsFetchError(fetchErr); ok {
		switch fe.Kind {
		case sources.ErrRateLimited:
			slog.Warn("Source rate limited, deferred until reset",
				"source", t.SourceName, "reset_at", fe.ResetAt, "remaining", fe.Remaining)
		case sources.ErrAuth:
			slog.Error("Source authentication failed", "source", t.SourceName, "error", fetchErr)
		default:
			slog.Warn("Source fetch failed", "source", t.SourceName,
				"kind", fe.Kind, "error", fetchErr)
		}
		return nil
	}

	slog.Warn("Source fetch failed", "source", t.SourceName, "error", fetchErr)
	return nil
}

func (t *CollectSourceTask) storeBatch(batch *sources.RawBatch) (inserted, updated, skipped int, err error) {
	discovery := t.SourceConfig.DiscoveryPriority()

	for _, record := range batch.Records {
		item, normErr := t.normalizer.Run(t.SourceConfig.Platform, record, batch.FetchedAt)
		if normErr != nil {
			if errors.Is(normErr, normalize.ErrNoSourceID) {
				slog.Warn("Skipping record without source id", "source", t.SourceName)
			} else {
				slog.Warn("Skipping unparseable record", "source", t.SourceName, "error", normErr)
			}
			skipped++
			continue
		}

		item.SourceName = t.SourceName
		if discovery != content.DiscoveryUnknown {
			item.Discovery = discovery.String()
		}

		outcome, upsertErr := t.contentRepo.UpsertItem(item)
		if upsertErr != nil {
			return inserted, updated, skipped, fmt.Errorf("failed to upsert item %s/%s: %w",
				item.Platform, item.SourceID, upsertErr)
		}

		if outcome == database.OutcomeInserted {
			inserted++
		} else {
			updated++
		}
	}

	return inserted, updated, skipped, nil
}
