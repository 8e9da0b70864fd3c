package enrich

import (
	"context"

	"github.com/adetobi/trendpulse/app/content"
)

// Analysis is the black-box result of one text-analysis call. Which fields
// are populated depends on the task.
type Analysis struct {
	Label      string   `json:"label"`
	Score      float64  `json:"score"`
	Confidence float64  `json:"confidence"`
	Location   string   `json:"location,omitempty"`
	Entities   []string `json:"entities,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
}

// Input is the text handed to an analyzer, with the optional free-text
// location hint the item was collected with.
type Input struct {
	Text         string
	LocationHint string
}

// Analyzer is the boundary to the NLP model. Implementations are treated as
// opaque; the pipeline only depends on this contract.
type Analyzer interface {
	Model() string
	Analyze(ctx context.Context, task content.TaskType, input Input) (*Analysis, error)
}
