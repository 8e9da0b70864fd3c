package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	SourcesDir        string
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Enrichment configuration
	AnalyzerURL     string
	EnrichBatchSize int
	EnrichLimit     int

	// Source health thresholds
	DegradeThreshold int
	FailThreshold    int

	// Trends configuration
	TrendWindowHours int
	RedisAddr        string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
