package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./trendpulse.db" description:"Path to the SQLite database file"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for collection and enrichment"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Enrichment configuration
	AnalyzerURL     string `long:"analyzer-url" env:"ANALYZER_URL" description:"Base URL of the text analysis service (built-in analyzers used when empty)"`
	EnrichBatchSize int    `long:"enrich-batch-size" env:"ENRICH_BATCH_SIZE" default:"10" description:"Items per enrichment commit batch"`
	EnrichLimit     int    `long:"enrich-limit" env:"ENRICH_LIMIT" default:"200" description:"Maximum items per enrichment sweep"`

	// Source health thresholds
	DegradeThreshold int `long:"degrade-threshold" env:"DEGRADE_THRESHOLD" default:"5" description:"Consecutive failures before a source is marked degraded"`
	FailThreshold    int `long:"fail-threshold" env:"FAIL_THRESHOLD" default:"10" description:"Consecutive failures before a source is marked failed"`

	// Trends configuration
	TrendWindowHours int    `long:"trend-window" env:"TREND_WINDOW_HOURS" default:"24" description:"Default trend lookback window in hours"`
	RedisAddr        string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for trend response caching (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"TrendPulse/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Africa/Lagos)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.FailThreshold < raw.DegradeThreshold {
		return nil, fmt.Errorf("fail threshold (%d) must be >= degrade threshold (%d)", raw.FailThreshold, raw.DegradeThreshold)
	}
	if raw.EnrichBatchSize <= 0 {
		return nil, fmt.Errorf("enrich batch size must be positive, got %d", raw.EnrichBatchSize)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		SourcesDir:        raw.SourcesDir,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		AnalyzerURL:       raw.AnalyzerURL,
		EnrichBatchSize:   raw.EnrichBatchSize,
		EnrichLimit:       raw.EnrichLimit,
		DegradeThreshold:  raw.DegradeThreshold,
		FailThreshold:     raw.FailThreshold,
		TrendWindowHours:  raw.TrendWindowHours,
		RedisAddr:         raw.RedisAddr,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Used by tests to inject settings
// without parsing flags.
func Set(c *Cfg) {
	globalCfg = c
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
