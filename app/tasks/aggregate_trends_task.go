package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adetobi/trendpulse/app/trends"
)

// AggregateTrendsTask rolls recent items into hourly per-platform stats.
type AggregateTrendsTask struct {
	Task
	aggregator *trends.Aggregator
	lookback   time.Duration
}

func NewAggregateTrendsTask(aggregator *trends.Aggregator, lookback time.Duration) *AggregateTrendsTask {
	return &AggregateTrendsTask{
		Task:       NewTask(TaskTypeAggregateTrends, "trends"),
		aggregator: aggregator,
		lookback:   lookback,
	}
}

func (t *AggregateTrendsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	rows, err := t.aggregator.Run(t.lookback)
	if err != nil {
		return fmt.Errorf("trend aggregation failed: %w", err)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"rows", rows)

	return nil
}
