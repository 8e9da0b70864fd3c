package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adetobi/trendpulse/app/content"
)

func TestHTTPAnalyzerCallsTaskEndpoint(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(map[string]any{
			"label":      "positive",
			"score":      0.7,
			"confidence": 0.9,
			"model":      "bert-ng-v2",
		})
	}))
	defer server.Close()

	analyzer := NewHTTPAnalyzer(server.URL, 5*time.Second)

	analysis, err := analyzer.Analyze(context.Background(), content.TaskSentiment, Input{
		Text:         "great day in Lagos",
		LocationHint: "Lagos",
	})
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/sentiment" {
		t.Errorf("Expected POST to /sentiment, got '%s'", gotPath)
	}
	if gotBody["text"] != "great day in Lagos" {
		t.Errorf("Expected text in request body, got %v", gotBody)
	}
	if gotBody["location_hint"] != "Lagos" {
		t.Errorf("Expected location hint in request body, got %v", gotBody)
	}

	if analysis.Label != "positive" || analysis.Score != 0.7 {
		t.Errorf("Expected decoded analysis, got %+v", analysis)
	}
	// service-reported model name sticks
	if analyzer.Model() != "bert-ng-v2" {
		t.Errorf("Expected model 'bert-ng-v2', got '%s'", analyzer.Model())
	}
}

func TestHTTPAnalyzerServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	analyzer := NewHTTPAnalyzer(server.URL, 5*time.Second)

	if _, err := analyzer.Analyze(context.Background(), content.TaskKeyword, Input{Text: "x"}); err == nil {
		t.Fatal("Expected error on non-200 response")
	}
}

func TestHTTPAnalyzerUnreachable(t *testing.T) {
	analyzer := NewHTTPAnalyzer("http://127.0.0.1:1", time.Second)

	if _, err := analyzer.Analyze(context.Background(), content.TaskEntity, Input{Text: "x"}); err == nil {
		t.Fatal("Expected error when the service is unreachable")
	}
}
