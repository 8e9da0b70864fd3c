package api

import (
	"github.com/adetobi/trendpulse/app/cache"
	"github.com/adetobi/trendpulse/app/database"
	"github.com/adetobi/trendpulse/app/enrich"
	"github.com/adetobi/trendpulse/app/monitor"
	"github.com/adetobi/trendpulse/app/sources"
	"github.com/adetobi/trendpulse/app/tasks"
	"github.com/adetobi/trendpulse/app/trends"
)

type Handler struct {
	configCache *sources.ConfigCache
	contentRepo database.ContentRepository
	sourceMon   *monitor.SourceMonitor
	batcher     *enrich.Batcher
	scorer      *trends.Scorer
	aggregator  *trends.Aggregator
	scheduler   tasks.TaskSchedulerInterface
	respCache   *cache.Cache
}
