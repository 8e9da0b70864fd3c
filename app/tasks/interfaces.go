package tasks

import "github.com/adetobi/trendpulse/app/sources"

// TaskSchedulerInterface defines the interface for task scheduling
// operations. Used by the main application and the HTTP layer to run
// collection and enrichment work in the background worker pool.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	NewCollectTask(sourceConfig *sources.Config) TaskInterface
}
