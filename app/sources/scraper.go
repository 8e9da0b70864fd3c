package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ScraperClient runs a third-party scraping actor synchronously and returns
// its dataset items. Used for platforms without a usable public API
// (instagram, facebook, tiktok).
type ScraperClient struct {
	httpClient *http.Client
	userAgent  string
}

func NewScraperClient(httpClient *http.Client, userAgent string) *ScraperClient {
	return &ScraperClient{httpClient: httpClient, userAgent: userAgent}
}

func (c *ScraperClient) Fetch(ctx context.Context, config *Config) (*RawBatch, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(config.Settings.Timeout)*time.Second)
	defer cancel()

	input := config.Scraper.Input
	if input == nil {
		input = map[string]any{}
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, NewMalformedError(config.Name, fmt.Errorf("failed to marshal actor input: %w", err))
	}

	runURL := config.Scraper.RunURL
	if config.Scraper.Token != "" {
		runURL += "?token=" + config.Scraper.Token
	}

	req, err := http.NewRequestWithContext(timeoutCtx, "POST", runURL, bytes.NewReader(payload))
	if err != nil {
		return nil, NewTransientError(config.Name, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewTransientError(config.Name, fmt.Errorf("failed to run actor: %w", err))
	}
	defer resp.Body.Close()

	// Actor runs answer 201 on synchronous completion.
	if resp.StatusCode == http.StatusCreated {
		resp.StatusCode = http.StatusOK
	}
	if err := classifyStatus(config.Name, resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransientError(config.Name, fmt.Errorf("failed to read dataset: %w", err))
	}

	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, NewMalformedError(config.Name, fmt.Errorf("dataset is not a JSON array: %w", err))
	}

	return &RawBatch{
		Source:    config.Name,
		Records:   records,
		FetchedAt: time.Now().UTC(),
	}, nil
}
