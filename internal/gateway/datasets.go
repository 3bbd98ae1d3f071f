package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tinytelemetry/vwatch/internal/model"
)

// live reports whether dataset calls should reach the network.
func (g *Gateway) live() bool {
	return !g.mock && g.HasToken()
}

// GetAnalytics returns daily analytics for one project.
func (g *Gateway) GetAnalytics(ctx context.Context, projectID string, timeRange model.TimeRange) ([]model.AnalyticsRecord, error) {
	if g.mock {
		return g.mockAnalytics([]string{projectID}, timeRange), nil
	}
	if !g.live() {
		return []model.AnalyticsRecord{}, nil
	}
	return getEnveloped[[]model.AnalyticsRecord](ctx, g, http.MethodGet,
		"/analytics/"+url.PathEscape(projectID)+rangeQuery(timeRange), nil)
}

// GetPerformance returns daily performance figures for one project.
func (g *Gateway) GetPerformance(ctx context.Context, projectID string, timeRange model.TimeRange) ([]model.PerformanceRecord, error) {
	if g.mock {
		return g.mockPerformance([]string{projectID}, timeRange), nil
	}
	if !g.live() {
		return []model.PerformanceRecord{}, nil
	}
	return getEnveloped[[]model.PerformanceRecord](ctx, g, http.MethodGet,
		"/performance/"+url.PathEscape(projectID)+rangeQuery(timeRange), nil)
}

// GetRealtimeData returns the latest realtime samples for one project.
func (g *Gateway) GetRealtimeData(ctx context.Context, projectID string) ([]model.RealtimeRecord, error) {
	if g.mock {
		return g.mockRealtime([]string{projectID}), nil
	}
	if !g.live() {
		return []model.RealtimeRecord{}, nil
	}
	return getEnveloped[[]model.RealtimeRecord](ctx, g, http.MethodGet,
		"/realtime/"+url.PathEscape(projectID), nil)
}

type batchRequest struct {
	ProjectIDs []string        `json:"projectIds"`
	TimeRange  model.TimeRange `json:"timeRange"`
}

// GetBatchAnalytics returns analytics for several projects in one call.
func (g *Gateway) GetBatchAnalytics(ctx context.Context, projectIDs []string, timeRange model.TimeRange) ([]model.AnalyticsRecord, error) {
	if len(projectIDs) == 0 {
		return []model.AnalyticsRecord{}, nil
	}
	if g.mock {
		return g.mockAnalytics(projectIDs, timeRange), nil
	}
	if !g.live() {
		return []model.AnalyticsRecord{}, nil
	}
	return getEnveloped[[]model.AnalyticsRecord](ctx, g, http.MethodPost, "/analytics/batch",
		batchRequest{ProjectIDs: projectIDs, TimeRange: timeRange})
}

func rangeQuery(r model.TimeRange) string {
	if r == "" {
		return ""
	}
	return "?" + url.Values{"timeRange": {string(r)}}.Encode()
}
