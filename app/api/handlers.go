package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adetobi/trendpulse/app/cache"
	"github.com/adetobi/trendpulse/app/content"
	"github.com/adetobi/trendpulse/app/database"
	"github.com/adetobi/trendpulse/app/enrich"
	"github.com/adetobi/trendpulse/app/monitor"
	"github.com/adetobi/trendpulse/app/sources"
	"github.com/adetobi/trendpulse/app/tasks"
	"github.com/adetobi/trendpulse/app/trends"
)

func NewHandler(configCache *sources.ConfigCache, contentRepo database.ContentRepository,
	sourceMon *monitor.SourceMonitor, batcher *enrich.Batcher,
	scorer *trends.Scorer, aggregator *trends.Aggregator,
	scheduler tasks.TaskSchedulerInterface, respCache *cache.Cache) *Handler {
	return &Handler{
		configCache: configCache,
		contentRepo: contentRepo,
		sourceMon:   sourceMon,
		batcher:     batcher,
		scorer:      scorer,
		aggregator:  aggregator,
		scheduler:   scheduler,
		respCache:   respCache,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if itemCount, err := h.contentRepo.GetItemCount(); err == nil {
		health["items"] = itemCount
	}

	health["loaded_sources"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.contentRepo.GetProcessingStats()
	if err != nil {
		slog.Error("Database error", "operation", "get_processing_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// APITriggerCollection enqueues an immediate collection cycle for one source.
func (h *Handler) APITriggerCollection(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	sourceConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	if !sourceConfig.Settings.Enabled {
		c.JSON(http.StatusConflict, gin.H{"error": "Source is disabled"})
		return
	}

	task := h.scheduler.NewCollectTask(sourceConfig)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Failed to enqueue collection task", "source", name, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Task queue is full"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Collection triggered",
		"source":  name,
		"task_id": task.GetID(),
	})
}

// APIRunEnrichment runs one enrichment sweep synchronously and returns the
// batch job audit record. The batcher serializes sweeps per task type, so a
// request that races a cron-driven sweep gets a conflict instead of
// double-processing the claimed set.
func (h *Handler) APIRunEnrichment(c *gin.Context) {
	task := content.TaskType(c.Param("task"))
	if !task.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown task type: %q", task)})
		return
	}

	limit := parsePositiveInt(c.Query("limit"), 200)

	job, err := h.batcher.RunSweep(c.Request.Context(), task, limit)
	if errors.Is(err, enrich.ErrSweepRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("A %s sweep is already running", task)})
		return
	}
	if err != nil {
		slog.Error("Enrichment sweep failed", "task", task, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Enrichment sweep failed"})
		return
	}

	c.JSON(http.StatusOK, job)
}

func (h *Handler) APIListSources(c *gin.Context) {
	monitors, err := h.sourceMon.List()
	if err != nil {
		slog.Error("Database error", "operation", "list_monitors", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": monitors,
		"total":   len(monitors),
	})
}

func (h *Handler) APIGetTrends(c *gin.Context) {
	windowHours := parsePositiveInt(c.Query("window"), 0)
	limit := parsePositiveInt(c.Query("limit"), 20)

	cacheKey := fmt.Sprintf("trends:%d:%d", windowHours, limit)
	var cached []content.TrendingTopic
	if h.respCache.GetJSON(c.Request.Context(), cacheKey, &cached) {
		c.Header("X-Cache", "hit")
		c.JSON(http.StatusOK, gin.H{"trends": cached, "total": len(cached)})
		return
	}

	topics, err := h.scorer.Trending(time.Duration(windowHours)*time.Hour, limit)
	if err != nil {
		slog.Error("Trend computation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Trend computation failed"})
		return
	}

	h.respCache.SetJSON(c.Request.Context(), cacheKey, topics, time.Minute)

	c.JSON(http.StatusOK, gin.H{"trends": topics, "total": len(topics)})
}

func (h *Handler) APIRunAggregation(c *gin.Context) {
	lookbackHours := parsePositiveInt(c.Query("lookback"), 24)

	rows, err := h.aggregator.Run(time.Duration(lookbackHours) * time.Hour)
	if err != nil {
		slog.Error("Trend aggregation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Trend aggregation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Aggregation completed", "rows": rows})
}

func parsePositiveInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
