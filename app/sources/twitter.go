package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// TwitterClient calls a tweet search API and returns the raw tweet objects.
type TwitterClient struct {
	httpClient *http.Client
	userAgent  string
}

func NewTwitterClient(httpClient *http.Client, userAgent string) *TwitterClient {
	return &TwitterClient{httpClient: httpClient, userAgent: userAgent}
}

func (c *TwitterClient) Fetch(ctx context.Context, config *Config) (*RawBatch, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(config.Settings.Timeout)*time.Second)
	defer cancel()

	reqURL, err := url.Parse(config.Twitter.SearchURL)
	if err != nil {
		return nil, NewMalformedError(config.Name, fmt.Errorf("invalid search URL: %w", err))
	}
	q := reqURL.Query()
	q.Set("query", config.Twitter.Query)
	q.Set("max_results", fmt.Sprintf("%d", config.Settings.MaxItems))
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", reqURL.String(), nil)
	if err != nil {
		return nil, NewTransientError(config.Name, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("User-Agent", c.userAgent)
	if config.Twitter.Token != "" {
		req.Header.Set("Authorization", "Bearer "+config.Twitter.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewTransientError(config.Name, fmt.Errorf("failed to fetch search results: %w", err))
	}
	defer resp.Body.Close()

	if err := classifyStatus(config.Name, resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransientError(config.Name, fmt.Errorf("failed to read response body: %w", err))
	}

	// Search responses wrap tweet objects in a "data" array; some providers
	// return the array at the top level.
	var envelope struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Data == nil {
		var records []json.RawMessage
		if err := json.Unmarshal(body, &records); err != nil {
			return nil, NewMalformedError(config.Name, fmt.Errorf("unrecognized search response shape"))
		}
		envelope.Data = records
	}

	return &RawBatch{
		Source:    config.Name,
		Records:   envelope.Data,
		FetchedAt: time.Now().UTC(),
	}, nil
}
