package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adetobi/trendpulse/app/content"
)

func writeSourceFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigCacheLoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()

	writeSourceFile(t, tempDir, "naija-tweets.yml", `
platform: twitter
type: hashtag

settings:
  enabled: true
  collection_frequency: 900
  discovery: realtime
  max_items: 50

twitter:
  search_url: "https://api.twitter.com/2/tweets/search/recent"
  query: "#naija"
  token: "test-token"
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 1 {
		t.Errorf("Expected 1 config, got %d", configCache.GetConfigCount())
	}

	config, err := configCache.GetConfig("naija-tweets")
	if err != nil {
		t.Fatal(err)
	}

	if config.Name != "naija-tweets" {
		t.Errorf("Expected name 'naija-tweets', got '%s'", config.Name)
	}
	if config.Platform != content.PlatformTwitter {
		t.Errorf("Expected platform twitter, got '%s'", config.Platform)
	}
	if config.Settings.CollectionFrequency != 900 {
		t.Errorf("Expected collection frequency 900, got %d", config.Settings.CollectionFrequency)
	}
	if config.Settings.MaxItems != 50 {
		t.Errorf("Expected max items 50, got %d", config.Settings.MaxItems)
	}
	if config.Twitter.Query != "#naija" {
		t.Errorf("Expected query '#naija', got '%s'", config.Twitter.Query)
	}
	if config.DiscoveryPriority() != content.DiscoveryRealtime {
		t.Errorf("Expected realtime discovery priority, got %v", config.DiscoveryPriority())
	}
}

func TestConfigCacheDefaults(t *testing.T) {
	tempDir := t.TempDir()

	writeSourceFile(t, tempDir, "lagos-news.yml", `
platform: news
type: feed

settings:
  enabled: true

news:
  feed_url: "https://example.com/rss"
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	config, err := configCache.GetConfig("lagos-news")
	if err != nil {
		t.Fatal(err)
	}

	if config.Settings.CollectionFrequency != 3600 {
		t.Errorf("Expected default collection frequency 3600, got %d", config.Settings.CollectionFrequency)
	}
	if config.Settings.InterCallDelay != 5 {
		t.Errorf("Expected default inter-call delay 5, got %d", config.Settings.InterCallDelay)
	}
	if config.Settings.Timeout != 30 {
		t.Errorf("Expected default timeout 30, got %d", config.Settings.Timeout)
	}
	if config.Settings.MaxItems != 100 {
		t.Errorf("Expected default max items 100, got %d", config.Settings.MaxItems)
	}
	if config.DiscoveryPriority() != content.DiscoveryUnknown {
		t.Errorf("Expected unknown discovery priority, got %v", config.DiscoveryPriority())
	}
}

func TestConfigCacheRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"unknown platform", "platform: myspace\ntype: hashtag\n"},
		{"unknown type", "platform: twitter\ntype: firehose\n"},
		{"twitter missing query", `
platform: twitter
type: hashtag
twitter:
  search_url: "https://api.twitter.com/2/tweets/search/recent"
`},
		{"news missing feed url", "platform: news\ntype: feed\n"},
		{"scraper missing run url", "platform: instagram\ntype: account\n"},
	}

	for _, tc := range cases {
		tempDir := t.TempDir()
		writeSourceFile(t, tempDir, "bad.yml", tc.body)

		configCache := NewConfigCache(tempDir)
		if err := configCache.Run(); err == nil {
			t.Errorf("%s: Expected validation error, got nil", tc.name)
		}
	}
}

func TestConfigCacheEnabledFilter(t *testing.T) {
	tempDir := t.TempDir()

	writeSourceFile(t, tempDir, "on.yml", `
platform: news
type: feed
settings:
  enabled: true
news:
  feed_url: "https://example.com/a.rss"
`)
	writeSourceFile(t, tempDir, "off.yml", `
platform: news
type: feed
settings:
  enabled: false
news:
  feed_url: "https://example.com/b.rss"
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 2 {
		t.Errorf("Expected 2 configs, got %d", configCache.GetConfigCount())
	}

	enabled := configCache.GetEnabledConfigs()
	if len(enabled) != 1 {
		t.Fatalf("Expected 1 enabled config, got %d", len(enabled))
	}
	if _, ok := enabled["on"]; !ok {
		t.Errorf("Expected 'on' to be enabled")
	}
}

func TestConfigCacheMissingConfig(t *testing.T) {
	configCache := NewConfigCache(t.TempDir())
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	if _, err := configCache.GetConfig("nope"); err == nil {
		t.Errorf("Expected error for unknown source name")
	}
}
