package model

import "context"

// LoadingKey names one of the per-resource loading flags.
type LoadingKey string

const (
	LoadingProjects    LoadingKey = "projects"
	LoadingAnalytics   LoadingKey = "analytics"
	LoadingPerformance LoadingKey = "performance"
	LoadingRealtime    LoadingKey = "realtime"
)

// ProjectSource resolves the current project list.
type ProjectSource interface {
	GetProjects(ctx context.Context) ProjectResult
}

// ProjectResult is the outcome of project resolution. Degraded is set when the
// live source failed and a fallback produced the list.
type ProjectResult struct {
	Projects []Project
	Source   string
	Degraded error
}

// DatasetSource fetches the per-project datasets.
type DatasetSource interface {
	GetAnalytics(ctx context.Context, projectID string, timeRange TimeRange) ([]AnalyticsRecord, error)
	GetPerformance(ctx context.Context, projectID string, timeRange TimeRange) ([]PerformanceRecord, error)
	GetRealtimeData(ctx context.Context, projectID string) ([]RealtimeRecord, error)
	GetBatchAnalytics(ctx context.Context, projectIDs []string, timeRange TimeRange) ([]AnalyticsRecord, error)
}

// Gateway is the full API surface the load actions depend on.
type Gateway interface {
	ProjectSource
	DatasetSource
}
