package trends

import (
	"fmt"
	"sort"
	"time"

	"github.com/adetobi/trendpulse/app/content"
	"github.com/adetobi/trendpulse/app/database"
)

// Scorer ranks hashtags over a lookback window. The score combines how often
// a tag occurs with how much engagement its posts drew:
// score = count*10 + engagement/1000.
type Scorer struct {
	repo          database.ContentRepository
	defaultWindow time.Duration
}

func NewScorer(repo database.ContentRepository, defaultWindow time.Duration) *Scorer {
	if defaultWindow <= 0 {
		defaultWindow = 24 * time.Hour
	}
	return &Scorer{repo: repo, defaultWindow: defaultWindow}
}

// Trending computes the ranked topics for the window. A zero window uses the
// configured default.
func (s *Scorer) Trending(window time.Duration, limit int) ([]content.TrendingTopic, error) {
	if window <= 0 {
		window = s.defaultWindow
	}

	since := time.Now().UTC().Add(-window)
	items, err := s.repo.GetItemsSince(since, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to scan trend window: %w", err)
	}

	topics := RankTopics(items)
	if limit > 0 && len(topics) > limit {
		topics = topics[:limit]
	}
	return topics, nil
}

// RankTopics tallies and ranks hashtags from a set of items. Pure function;
// the ordering is deterministic for any input order.
func RankTopics(items []content.ContentItem) []content.TrendingTopic {
	type accumulator struct {
		count      int
		engagement float64
		platforms  map[content.Platform]bool
		origin     content.DiscoveryPriority
	}

	acc := make(map[string]*accumulator)

	for _, item := range items {
		engagement := item.Metrics.EngagementScore()
		origin := content.ParseDiscoveryPriority(item.Discovery)

		for _, tag := range item.Hashtags {
			a, ok := acc[tag]
			if !ok {
				a = &accumulator{
					platforms: make(map[content.Platform]bool),
					origin:    content.DiscoveryUnknown,
				}
				acc[tag] = a
			}
			a.count++
			a.engagement += engagement
			a.platforms[item.Platform] = true
			if origin < a.origin {
				a.origin = origin
			}
		}
	}

	topics := make([]content.TrendingTopic, 0, len(acc))
	for tag, a := range acc {
		platforms := make([]content.Platform, 0, len(a.platforms))
		for p := range a.platforms {
			platforms = append(platforms, p)
		}
		sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })

		topics = append(topics, content.TrendingTopic{
			Tag:             tag,
			Count:           a.count,
			TotalEngagement: a.engagement,
			Score:           float64(a.count)*10 + a.engagement/1000,
			Platforms:       platforms,
			Origin:          a.origin,
		})
	}

	sort.Slice(topics, func(i, j int) bool {
		a, b := topics[i], topics[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		// Tags discovered by the hybrid multi-source step rank by their best
		// discovery rung; without a declared origin, fall back to raw count,
		// then to the tag itself for a stable order.
		if a.Origin != content.DiscoveryUnknown || b.Origin != content.DiscoveryUnknown {
			if a.Origin != b.Origin {
				return a.Origin < b.Origin
			}
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Tag < b.Tag
	})

	return topics
}
