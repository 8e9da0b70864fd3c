package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability"
	"github.com/mmcdole/gofeed"
)

// NewsClient pulls traditional-media coverage from an RSS/Atom feed. Each
// entry is re-encoded as one JSON record so the normalizer sees the same
// raw-batch contract as the social adapters. When extract_full is set the
// article page is fetched and reduced to its readable text first.
type NewsClient struct {
	httpClient *http.Client
	userAgent  string
	parser     *gofeed.Parser
}

// newsRecord is the stable JSON shape a feed entry is serialized into.
type newsRecord struct {
	GUID        string   `json:"guid"`
	Link        string   `json:"link"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	FullText    string   `json:"full_text,omitempty"`
	Author      string   `json:"author,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Published   string   `json:"published,omitempty"`
}

func NewNewsClient(httpClient *http.Client, userAgent string) *NewsClient {
	return &NewsClient{
		httpClient: httpClient,
		userAgent:  userAgent,
		parser:     gofeed.NewParser(),
	}
}

func (c *NewsClient) Fetch(ctx context.Context, config *Config) (*RawBatch, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(config.Settings.Timeout)*time.Second)
	defer cancel()

	data, err := c.fetchURL(timeoutCtx, config.Name, config.News.FeedURL)
	if err != nil {
		return nil, err
	}

	feed, err := c.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, NewMalformedError(config.Name, fmt.Errorf("failed to parse feed: %w", err))
	}

	maxItems := config.Settings.MaxItems
	records := make([]json.RawMessage, 0, len(feed.Items))

	for i, item := range feed.Items {
		if maxItems > 0 && i >= maxItems {
			break
		}

		rec := newsRecord{
			GUID:        item.GUID,
			Link:        item.Link,
			Title:       item.Title,
			Description: item.Description,
			Content:     item.Content,
			Categories:  item.Categories,
		}
		if rec.GUID == "" {
			rec.GUID = item.Link
		}
		if item.PublishedParsed != nil {
			rec.Published = item.PublishedParsed.UTC().Format(time.RFC3339)
		}
		if len(item.Authors) > 0 && item.Authors[0] != nil {
			rec.Author = item.Authors[0].Name
		}

		if config.News.ExtractFull && item.Link != "" {
			if text, err := c.extractArticle(ctx, config, item.Link); err == nil {
				rec.FullText = text
			}
			// Extraction failures are tolerated; the feed's own summary is
			// still a usable record.
		}

		raw, err := json.Marshal(rec)
		if err != nil {
			return nil, NewMalformedError(config.Name, fmt.Errorf("failed to encode feed entry: %w", err))
		}
		records = append(records, raw)
	}

	return &RawBatch{
		Source:    config.Name,
		Records:   records,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (c *NewsClient) extractArticle(ctx context.Context, config *Config, link string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(config.Settings.Timeout)*time.Second)
	defer cancel()

	data, err := c.fetchURL(timeoutCtx, config.Name, link)
	if err != nil {
		return "", err
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	if article.TextContent == "" {
		return "", fmt.Errorf("no content extracted from article page")
	}

	return article.TextContent, nil
}

func (c *NewsClient) fetchURL(ctx context.Context, source, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, NewTransientError(source, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewTransientError(source, fmt.Errorf("failed to fetch URL: %w", err))
	}
	defer resp.Body.Close()

	if err := classifyStatus(source, resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransientError(source, fmt.Errorf("failed to read response body: %w", err))
	}

	return data, nil
}
