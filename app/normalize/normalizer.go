package normalize

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/adetobi/trendpulse/app/content"
)

// ErrNoSourceID marks a payload with no derivable platform-native id. Such
// items are skipped by the caller, never stored under a synthesized id.
var ErrNoSourceID = errors.New("payload has no derivable source id")

var (
	hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
	mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_.]+)`)
)

// Normalizer converts raw platform payloads into canonical content items.
// Pure mapping, no I/O.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Run dispatches one raw record to the platform-specific mapping.
func (n *Normalizer) Run(platform content.Platform, raw json.RawMessage, collectedAt time.Time) (*content.ContentItem, error) {
	switch platform {
	case content.PlatformTwitter:
		return n.normalizeTweet(raw, collectedAt)
	case content.PlatformInstagram, content.PlatformFacebook, content.PlatformTikTok:
		return n.normalizeScrapedPost(platform, raw, collectedAt)
	case content.PlatformNews:
		return n.normalizeNewsArticle(raw, collectedAt)
	}
	return nil, fmt.Errorf("no normalizer for platform %q", platform)
}

func (n *Normalizer) normalizeTweet(raw json.RawMessage, collectedAt time.Time) (*content.ContentItem, error) {
	var p TweetPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to parse tweet payload: %w", err)
	}

	sourceID := cmp.Or(p.ID, p.IDStr)
	if sourceID == "" {
		return nil, ErrNoSourceID
	}

	text := cmp.Or(p.FullText, p.Text)
	author := cmp.Or(p.Author.Username, p.User.ScreenName, p.Author.Name)

	metrics := content.Metrics{
		"likes":    cmp.Or(p.PublicMetrics.LikeCount, p.FavoriteCount),
		"comments": p.PublicMetrics.ReplyCount,
		"shares":   cmp.Or(p.PublicMetrics.RetweetCount, p.RetweetCount) + p.PublicMetrics.QuoteCount,
		"views":    p.PublicMetrics.ViewCount,
	}

	hashtags := make([]string, 0, len(p.Entities.Hashtags))
	for _, h := range p.Entities.Hashtags {
		hashtags = append(hashtags, cmp.Or(h.Tag, h.Text))
	}
	if len(hashtags) == 0 {
		hashtags = extractHashtags(text)
	}

	mentions := make([]string, 0, len(p.Entities.Mentions))
	for _, m := range p.Entities.Mentions {
		mentions = append(mentions, cmp.Or(m.Username, m.ScreenName))
	}
	if len(mentions) == 0 {
		mentions = extractMentions(text)
	}

	var media []string
	for _, m := range p.Entities.Media {
		if m.MediaURL != "" {
			media = append(media, m.MediaURL)
		}
	}

	return &content.ContentItem{
		Platform:     content.PlatformTwitter,
		SourceID:     sourceID,
		Author:       author,
		Text:         text,
		Metrics:      metrics,
		Hashtags:     content.NormalizeTags(hashtags),
		Mentions:     dedupeStrings(mentions),
		MediaURLs:    media,
		RawPayload:   raw,
		LocationHint: cmp.Or(p.Geo.Place, p.Author.Location, p.User.Location),
		PostedAt:     parseTime(p.CreatedAt),
		CollectedAt:  collectedAt,
	}, nil
}

func (n *Normalizer) normalizeScrapedPost(platform content.Platform, raw json.RawMessage, collectedAt time.Time) (*content.ContentItem, error) {
	var p ScrapedPostPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to parse scraped post payload: %w", err)
	}

	sourceID := cmp.Or(p.ID, p.PostID, p.ShortCode, p.URL)
	if sourceID == "" {
		return nil, ErrNoSourceID
	}

	text := cmp.Or(p.PostText, p.Caption, p.Text)
	author := cmp.Or(p.OwnerUsername, p.AuthorName, p.PageName)

	metrics := content.Metrics{
		"likes":    coalesceMetric(p.LikesCount, p.Reactions),
		"comments": coalesceMetric(p.CommentsCount, nil),
		"shares":   coalesceMetric(p.SharesCount, nil),
		"views":    coalesceMetric(p.PlayCount, p.ViewsCount),
	}

	hashtags := p.Hashtags
	if len(hashtags) == 0 {
		hashtags = extractHashtags(text)
	}
	mentions := p.Mentions
	if len(mentions) == 0 {
		mentions = extractMentions(text)
	}

	media := append([]string{}, p.MediaURLs...)
	if p.ImageURL != "" {
		media = append(media, p.ImageURL)
	}
	if p.VideoURL != "" {
		media = append(media, p.VideoURL)
	}

	var postedAt *time.Time
	if p.CreateTime > 0 {
		t := time.Unix(p.CreateTime, 0).UTC()
		postedAt = &t
	} else {
		postedAt = parseTime(cmp.Or(p.Timestamp, p.PublishedAt))
	}

	return &content.ContentItem{
		Platform:     platform,
		SourceID:     sourceID,
		Author:       author,
		Text:         text,
		Metrics:      metrics,
		Hashtags:     content.NormalizeTags(hashtags),
		Mentions:     dedupeStrings(mentions),
		MediaURLs:    media,
		RawPayload:   raw,
		LocationHint: p.LocationName,
		PostedAt:     postedAt,
		CollectedAt:  collectedAt,
	}, nil
}

func (n *Normalizer) normalizeNewsArticle(raw json.RawMessage, collectedAt time.Time) (*content.ContentItem, error) {
	var p NewsArticlePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to parse news payload: %w", err)
	}

	sourceID := cmp.Or(p.GUID, p.Link)
	if sourceID == "" {
		return nil, ErrNoSourceID
	}

	text := cmp.Or(p.FullText, p.Content, p.Description)
	if p.Title != "" {
		text = p.Title + "\n\n" + text
	}

	// News feeds carry no engagement counters; the open mapping stays empty
	// rather than inventing zeros.
	return &content.ContentItem{
		Platform:    content.PlatformNews,
		SourceID:    sourceID,
		Author:      p.Author,
		Text:        text,
		Metrics:     content.Metrics{},
		Hashtags:    content.NormalizeTags(p.Categories),
		Mentions:    nil,
		MediaURLs:   nil,
		RawPayload:  raw,
		PostedAt:    parseTime(p.Published),
		CollectedAt: collectedAt,
	}, nil
}

func extractHashtags(text string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(text, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, m[1])
	}
	return tags
}

func extractMentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	mentions := make([]string, 0, len(matches))
	for _, m := range matches {
		mentions = append(mentions, m[1])
	}
	return mentions
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func coalesceMetric(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return 0
}

// parseTime accepts the timestamp formats seen across platform payloads.
func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{
		time.RFC3339,
		time.RubyDate, // classic tweet created_at
		"2006-01-02T15:04:05.000Z",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}
