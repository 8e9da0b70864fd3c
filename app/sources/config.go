package sources

import (
	"fmt"

	"github.com/adetobi/trendpulse/app/content"
)

// Config is one source definition loaded from a YAML file in the sources
// directory. The file name (without extension) becomes the source name.
type Config struct {
	Name     string              `yaml:"-"`
	Platform content.Platform    `yaml:"platform"`
	Type     content.SourceType  `yaml:"type"`
	Settings ConfigSettings      `yaml:"settings"`
	Twitter  TwitterSettings     `yaml:"twitter"`
	Scraper  ScraperSettings     `yaml:"scraper"`
	News     NewsSettings        `yaml:"news"`
}

type ConfigSettings struct {
	Enabled             bool   `yaml:"enabled"`
	CollectionFrequency int    `yaml:"collection_frequency"` // seconds
	Priority            int    `yaml:"priority"`
	Discovery           string `yaml:"discovery"` // realtime|rising|top|traditional|curated
	InterCallDelay      int    `yaml:"inter_call_delay"` // seconds between calls to this source
	Timeout             int    `yaml:"timeout"`          // seconds per external call
	MaxItems            int    `yaml:"max_items"`
}

// TwitterSettings configures the search-API adapter.
type TwitterSettings struct {
	SearchURL string `yaml:"search_url"`
	Query     string `yaml:"query"`
	Token     string `yaml:"token"`
}

// ScraperSettings configures the actor-run adapter (apify-style).
type ScraperSettings struct {
	RunURL  string         `yaml:"run_url"`
	ActorID string         `yaml:"actor_id"`
	Token   string         `yaml:"token"`
	Input   map[string]any `yaml:"input"`
}

// NewsSettings configures the RSS adapter.
type NewsSettings struct {
	FeedURL     string `yaml:"feed_url"`
	ExtractFull bool   `yaml:"extract_full"` // fetch article pages for full text
}

func setDefaults(config *Config) {
	if config.Settings.CollectionFrequency == 0 {
		config.Settings.CollectionFrequency = 3600
	}
	if config.Settings.InterCallDelay == 0 {
		config.Settings.InterCallDelay = 5
	}
	if config.Settings.Timeout == 0 {
		config.Settings.Timeout = 30
	}
	if config.Settings.MaxItems == 0 {
		config.Settings.MaxItems = 100
	}
}

func validateConfig(config *Config) error {
	if !config.Platform.Valid() {
		return fmt.Errorf("unknown platform: %q", config.Platform)
	}

	switch config.Type {
	case content.SourceTypeHashtag, content.SourceTypeAccount, content.SourceTypeQuery, content.SourceTypeFeed:
	default:
		return fmt.Errorf("unknown source type: %q", config.Type)
	}

	switch config.Platform {
	case content.PlatformTwitter:
		if config.Twitter.SearchURL == "" || config.Twitter.Query == "" {
			return fmt.Errorf("twitter source requires search_url and query")
		}
	case content.PlatformNews:
		if config.News.FeedURL == "" {
			return fmt.Errorf("news source requires feed_url")
		}
	default:
		if config.Scraper.RunURL == "" {
			return fmt.Errorf("%s source requires scraper run_url", config.Platform)
		}
	}

	if config.Settings.CollectionFrequency < 0 {
		return fmt.Errorf("collection frequency must be non-negative")
	}
	if config.Settings.InterCallDelay < 0 {
		return fmt.Errorf("inter-call delay must be non-negative")
	}
	if config.Settings.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}

	return nil
}

// DiscoveryPriority resolves the configured discovery label.
func (c *Config) DiscoveryPriority() content.DiscoveryPriority {
	return content.ParseDiscoveryPriority(c.Settings.Discovery)
}
