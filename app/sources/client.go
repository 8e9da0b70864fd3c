package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/adetobi/trendpulse/app/content"
)

// RawBatch is the untyped result of one fetch: one JSON document per record,
// exactly as the platform returned it. Normalization happens downstream.
type RawBatch struct {
	Source    string
	Records   []json.RawMessage
	FetchedAt time.Time
}

// Client is one platform adapter. Implementations perform the external call
// and classify failures; they never persist anything.
type Client interface {
	Fetch(ctx context.Context, config *Config) (*RawBatch, error)
}

// NewClient returns the adapter for a source's platform.
func NewClient(config *Config, httpClient *http.Client, userAgent string) (Client, error) {
	switch config.Platform {
	case content.PlatformTwitter:
		return NewTwitterClient(httpClient, userAgent), nil
	case content.PlatformNews:
		return NewNewsClient(httpClient, userAgent), nil
	case content.PlatformInstagram, content.PlatformFacebook, content.PlatformTikTok:
		return NewScraperClient(httpClient, userAgent), nil
	}
	return nil, fmt.Errorf("no client for platform %q", config.Platform)
}

// classifyStatus maps an HTTP status code to the fetch error taxonomy.
func classifyStatus(source string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewAuthError(source, fmt.Errorf("HTTP %d %s", resp.StatusCode, resp.Status))
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewRateLimitError(source, parseRateLimitReset(resp), parseRateLimitRemaining(resp))
	case resp.StatusCode >= 500:
		return NewTransientError(source, fmt.Errorf("HTTP %d %s", resp.StatusCode, resp.Status))
	default:
		return NewMalformedError(source, fmt.Errorf("unexpected HTTP %d %s", resp.StatusCode, resp.Status))
	}
}

func parseRateLimitReset(resp *http.Response) time.Time {
	for _, header := range []string{"X-Rate-Limit-Reset", "X-RateLimit-Reset"} {
		if v := resp.Header.Get(header); v != "" {
			var epoch int64
			if _, err := fmt.Sscanf(v, "%d", &epoch); err == nil && epoch > 0 {
				return time.Unix(epoch, 0).UTC()
			}
		}
	}
	if v := resp.Header.Get("Retry-After"); v != "" {
		var seconds int
		if _, err := fmt.Sscanf(v, "%d", &seconds); err == nil && seconds > 0 {
			return time.Now().UTC().Add(time.Duration(seconds) * time.Second)
		}
	}
	// No hint from the server, back off for 15 minutes.
	return time.Now().UTC().Add(15 * time.Minute)
}

func parseRateLimitRemaining(resp *http.Response) int {
	for _, header := range []string{"X-Rate-Limit-Remaining", "X-RateLimit-Remaining"} {
		if v := resp.Header.Get(header); v != "" {
			var remaining int
			if _, err := fmt.Sscanf(v, "%d", &remaining); err == nil {
				return remaining
			}
		}
	}
	return 0
}
