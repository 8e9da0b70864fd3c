package monitor

import (
	"log/slog"
	"time"

	"github.com/adetobi/trendpulse/app/content"
	"github.com/adetobi/trendpulse/app/database"
	"github.com/adetobi/trendpulse/app/sources"
)

// SourceMonitor tracks per-source fetch health. States: active, degraded,
// failed, rate_limited. One failure counter drives one threshold ladder:
// degraded at DegradeThreshold consecutive failures, failed at
// FailThreshold. Any success returns the source to active.
type SourceMonitor struct {
	repo             database.SourceRepository
	degradeThreshold int
	failThreshold    int
}

func NewSourceMonitor(repo database.SourceRepository, degradeThreshold, failThreshold int) *SourceMonitor {
	if failThreshold < degradeThreshold {
		failThreshold = degradeThreshold
	}
	return &SourceMonitor{
		repo:             repo,
		degradeThreshold: degradeThreshold,
		failThreshold:    failThreshold,
	}
}

// Ensure creates or refreshes the monitor record for a configured source.
// First observation starts active.
func (m *SourceMonitor) Ensure(config *sources.Config) (*content.SourceHealth, error) {
	rec, err := m.repo.GetMonitor(config.Type, config.Name)
	if err != nil {
		return nil, err
	}

	if rec == nil {
		rec = &content.SourceHealth{
			SourceType: config.Type,
			SourceName: config.Name,
			Status:     content.SourceActive,
		}
	}

	rec.Platform = config.Platform
	rec.CollectionFrequency = config.Settings.CollectionFrequency
	rec.Priority = config.Settings.Priority

	if err := m.repo.UpsertMonitor(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RecordAttempt updates the monitor after one fetch attempt. Auth errors are
// surfaced on the record but never advance the failure ladder: they are
// configuration defects, not source degradation. Rate-limit errors defer the
// source instead of counting against it.
func (m *SourceMonitor) RecordAttempt(config *sources.Config, itemsCollected int, attemptErr error) error {
	rec, err := m.ensureLoaded(config)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	rec.LastAttempt = &now

	if attemptErr == nil {
		rec.Status = content.SourceActive
		rec.ConsecutiveFailures = 0
		rec.LastSuccessfulFetch = &now
		rec.LastError = ""
		rec.RateLimitReset = nil
		rec.TotalItemsCollected += itemsCollected
		rec.ItemsCollectedToday += itemsCollected
		return m.repo.UpsertMonitor(rec)
	}

	rec.LastError = attemptErr.Error()

	if fe, ok := sources.AsFetchError(attemptErr); ok {
		switch fe.Kind {
		case sources.ErrAuth:
			slog.Error("Source authentication failed, check credentials",
				"source", config.Name, "error", attemptErr)
			return m.repo.UpsertMonitor(rec)
		case sources.ErrRateLimited:
			m.applyRateLimit(rec, fe.ResetAt, fe.Remaining)
			return m.repo.UpsertMonitor(rec)
		}
	}

	rec.ConsecutiveFailures++
	switch {
	case rec.ConsecutiveFailures >= m.failThreshold:
		rec.Status = content.SourceFailed
	case rec.ConsecutiveFailures >= m.degradeThreshold:
		rec.Status = content.SourceDegraded
	}

	if rec.Status != content.SourceActive {
		slog.Warn("Source health downgraded", "source", config.Name,
			"status", rec.Status, "consecutive_failures", rec.ConsecutiveFailures)
	}

	return m.repo.UpsertMonitor(rec)
}

// SetRateLimit records a rate-limit report for a source. The source is only
// marked rate_limited when no requests remain.
func (m *SourceMonitor) SetRateLimit(config *sources.Config, resetAt time.Time, remaining int) error {
	rec, err := m.ensureLoaded(config)
	if err != nil {
		return err
	}

	m.applyRateLimit(rec, resetAt, remaining)
	return m.repo.UpsertMonitor(rec)
}

func (m *SourceMonitor) applyRateLimit(rec *content.SourceHealth, resetAt time.Time, remaining int) {
	rec.RequestsRemaining = remaining
	if remaining == 0 {
		rec.Status = content.SourceRateLimited
		reset := resetAt.UTC()
		rec.RateLimitReset = &reset
	} else {
		rec.Status = content.SourceActive
		rec.RateLimitReset = nil
	}
}

// IsDue reports whether a source should be collected now. A rate-limited
// source is not due until its reset passes, even if the collection frequency
// has elapsed. A never-fetched source is due immediately.
func (m *SourceMonitor) IsDue(rec *content.SourceHealth, now time.Time) bool {
	if rec == nil {
		return true
	}

	if rec.Status == content.SourceRateLimited && rec.RateLimitReset != nil && now.Before(*rec.RateLimitReset) {
		return false
	}

	if rec.LastSuccessfulFetch == nil {
		return true
	}

	next := rec.LastSuccessfulFetch.Add(time.Duration(rec.CollectionFrequency) * time.Second)
	return !now.Before(next)
}

// Get returns the monitor record for one source, nil if never observed.
func (m *SourceMonitor) Get(sourceType content.SourceType, sourceName string) (*content.SourceHealth, error) {
	return m.repo.GetMonitor(sourceType, sourceName)
}

// List returns every monitor record, highest priority first.
func (m *SourceMonitor) List() ([]content.SourceHealth, error) {
	return m.repo.ListMonitors()
}

func (m *SourceMonitor) ensureLoaded(config *sources.Config) (*content.SourceHealth, error) {
	rec, err := m.repo.GetMonitor(config.Type, config.Name)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return m.Ensure(config)
	}
	return rec, nil
}
