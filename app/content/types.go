package content

import (
	"time"
)

// Platform identifies where a piece of content originated.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformTikTok    Platform = "tiktok"
	PlatformNews      Platform = "news"
)

// KnownPlatforms lists every platform the pipeline can normalize.
var KnownPlatforms = []Platform{
	PlatformTwitter, PlatformInstagram, PlatformFacebook, PlatformTikTok, PlatformNews,
}

func (p Platform) Valid() bool {
	for _, k := range KnownPlatforms {
		if p == k {
			return true
		}
	}
	return false
}

// SourceType describes what a source config points at.
type SourceType string

const (
	SourceTypeHashtag SourceType = "hashtag"
	SourceTypeAccount SourceType = "account"
	SourceTypeQuery   SourceType = "query"
	SourceTypeFeed    SourceType = "feed"
)

// TaskType is one enrichment task. Each task owns one done-flag on
// ProcessingStatus and one result table.
type TaskType string

const (
	TaskSentiment TaskType = "sentiment"
	TaskLocation  TaskType = "location"
	TaskEntity    TaskType = "entity"
	TaskKeyword   TaskType = "keyword"
)

// AllTasks in sweep order.
var AllTasks = []TaskType{TaskSentiment, TaskLocation, TaskEntity, TaskKeyword}

func (t TaskType) Valid() bool {
	switch t {
	case TaskSentiment, TaskLocation, TaskEntity, TaskKeyword:
		return true
	}
	return false
}

// Metrics is the open mapping of per-platform counters (likes, comments,
// shares, views, reactions...). Value types vary by platform, so it is kept
// loose and serialized as JSON.
type Metrics map[string]any

// ContentItem is the canonical record every source payload is normalized
// into. Unique on (Platform, SourceID).
type ContentItem struct {
	ID           string
	Platform     Platform
	SourceID     string // platform-native identifier
	SourceName   string // collecting source config name
	Discovery    string // discovery priority label of the collecting source
	Author       string
	Text         string
	Metrics      Metrics
	Hashtags     []string
	Mentions     []string
	MediaURLs    []string
	RawPayload   []byte // original JSON, preserved for replay
	LocationHint string
	PostedAt     *time.Time
	CollectedAt  time.Time
	CreatedAt    time.Time
}

// ProcessingStatus tracks which enrichment tasks have completed for one item.
// IsProcessed is derived from the four flags and is recomputed on every flag
// change, never written independently.
type ProcessingStatus struct {
	ItemID        string
	SentimentDone bool
	LocationDone  bool
	EntityDone    bool
	KeywordDone   bool
	IsProcessed   bool
	Attempts      int
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Done reports the flag for one task.
func (s *ProcessingStatus) Done(task TaskType) bool {
	switch task {
	case TaskSentiment:
		return s.SentimentDone
	case TaskLocation:
		return s.LocationDone
	case TaskEntity:
		return s.EntityDone
	case TaskKeyword:
		return s.KeywordDone
	}
	return false
}

// ComputeProcessed is the single definition of the derived flag.
func (s *ProcessingStatus) ComputeProcessed() bool {
	return s.SentimentDone && s.LocationDone && s.EntityDone && s.KeywordDone
}

// BatchJobStatus is the lifecycle of one enrichment sweep audit record.
type BatchJobStatus string

const (
	JobPending    BatchJobStatus = "pending"
	JobProcessing BatchJobStatus = "processing"
	JobCompleted  BatchJobStatus = "completed"
	JobPartial    BatchJobStatus = "partial"
	JobFailed     BatchJobStatus = "failed"
)

// Terminal reports whether a job status may no longer change.
func (s BatchJobStatus) Terminal() bool {
	return s == JobCompleted || s == JobPartial || s == JobFailed
}

// BatchJob is the audit row for one enrichment sweep.
// Invariant: Total == Processed + Failed.
type BatchJob struct {
	ID          string
	JobType     TaskType
	Status      BatchJobStatus
	Total       int
	Processed   int
	Failed      int
	Skipped     int
	Errors      []string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// SourceStatus is the health state of one monitored source.
type SourceStatus string

const (
	SourceActive      SourceStatus = "active"
	SourceDegraded    SourceStatus = "degraded"
	SourceFailed      SourceStatus = "failed"
	SourceRateLimited SourceStatus = "rate_limited"
)

// SourceHealth is one source_monitors row, keyed (SourceType, SourceName).
type SourceHealth struct {
	SourceType          SourceType
	SourceName          string
	Platform            Platform
	Status              SourceStatus
	LastSuccessfulFetch *time.Time
	LastAttempt         *time.Time
	TotalItemsCollected int
	ItemsCollectedToday int
	ConsecutiveFailures int
	LastError           string
	RateLimitReset      *time.Time
	RequestsRemaining   int
	CollectionFrequency int // seconds between fetches
	Priority            int
	UpdatedAt           time.Time
}

// TrendingTopic is one ranked hashtag over a lookback window.
type TrendingTopic struct {
	Tag             string
	Count           int
	TotalEngagement float64
	Score           float64
	Platforms       []Platform
	Origin          DiscoveryPriority
}

// PlatformHourlyStat is one rolled-up aggregation row per (hour, platform).
type PlatformHourlyStat struct {
	Hour     time.Time
	Platform Platform
	Posts    int
	Videos   int
	Views    int64
	Likes    int64
	Comments int64
	Shares   int64
}
