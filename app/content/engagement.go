package content

import (
	"sort"
	"strconv"
	"strings"
)

// DiscoveryPriority ranks where a trend signal came from when a topic is
// assembled from several discovery strategies. Lower value ranks higher.
type DiscoveryPriority int

const (
	DiscoveryRealtime DiscoveryPriority = iota
	DiscoveryRising
	DiscoveryTop
	DiscoveryTraditional
	DiscoveryCurated
	DiscoveryUnknown // no discovery origin declared
)

// ParseDiscoveryPriority maps a source config priority label to its rung.
func ParseDiscoveryPriority(s string) DiscoveryPriority {
	switch strings.ToLower(s) {
	case "realtime":
		return DiscoveryRealtime
	case "rising":
		return DiscoveryRising
	case "top":
		return DiscoveryTop
	case "traditional":
		return DiscoveryTraditional
	case "curated", "curated-fallback":
		return DiscoveryCurated
	}
	return DiscoveryUnknown
}

func (p DiscoveryPriority) String() string {
	switch p {
	case DiscoveryRealtime:
		return "realtime"
	case DiscoveryRising:
		return "rising"
	case DiscoveryTop:
		return "top"
	case DiscoveryTraditional:
		return "traditional"
	case DiscoveryCurated:
		return "curated-fallback"
	}
	return "unknown"
}

// metricValue coerces one metrics counter to float64. Platform payloads
// disagree on numeric types (json numbers, ints, digit strings), so all of
// them are accepted; anything else counts as zero.
func metricValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return 0
}

// Metric returns one counter from the open mapping, 0 when absent.
func (m Metrics) Metric(name string) float64 {
	if m == nil {
		return 0
	}
	return metricValue(m[name])
}

// EngagementScore sums likes, comments and shares, plus views divided by 100.
// Views run two orders of magnitude above the interaction counters on every
// platform we collect, so they are down-weighted rather than dropped.
func (m Metrics) EngagementScore() float64 {
	return m.Metric("likes") + m.Metric("comments") + m.Metric("shares") + m.Metric("views")/100
}

// NormalizeTags lowercases, strips a leading '#', dedupes and sorts tags so
// equal tag sets compare equal regardless of input order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(tag, "#")))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
