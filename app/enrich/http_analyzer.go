package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adetobi/trendpulse/app/content"
)

// HTTPAnalyzer calls an external text-analysis service. The service exposes
// one endpoint per task (POST {base}/{task}) accepting {"text": ...} and
// returning the analysis JSON.
type HTTPAnalyzer struct {
	baseURL    string
	httpClient *http.Client
	model      string
}

func NewHTTPAnalyzer(baseURL string, timeout time.Duration) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		model:      "remote",
	}
}

func (a *HTTPAnalyzer) Model() string {
	return a.model
}

func (a *HTTPAnalyzer) Analyze(ctx context.Context, task content.TaskType, input Input) (*Analysis, error) {
	reqBody, err := json.Marshal(map[string]string{
		"text":          input.Text,
		"location_hint": input.LocationHint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis request: %w", err)
	}

	url := fmt.Sprintf("%s/%s", a.baseURL, task)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("analysis service returned %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Analysis
		Model string `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", err)
	}

	if result.Model != "" {
		a.model = result.Model
	}

	return &result.Analysis, nil
}
