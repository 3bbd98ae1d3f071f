package metrics

import (
	"github.com/tinytelemetry/vwatch/internal/format"
	"github.com/tinytelemetry/vwatch/internal/store"
)

// Report bundles the derived figures with their display strings. It is the
// payload of the summary endpoints.
type Report struct {
	Summary   Summary           `json:"summary"`
	Realtime  RealtimeTotals    `json:"realtime"`
	Statuses  []StatusCount     `json:"statuses"`
	Daily     []DailyViews      `json:"daily"`
	Health    float64           `json:"avgHealthScore"`
	Formatted map[string]string `json:"formatted"`
}

// BuildReport derives a Report from st.
func BuildReport(st store.State) Report {
	sum := Compute(st)
	rt := Realtime(st.RealtimeData)
	return Report{
		Summary:  sum,
		Realtime: rt,
		Statuses: StatusBreakdown(st.Projects),
		Daily:    DailyPageViews(st.AnalyticsData),
		Health:   AverageHealth(st.Projects),
		Formatted: map[string]string{
			"totalProjects":       format.Number(float64(sum.TotalProjects)),
			"activeProjects":      format.Number(float64(sum.ActiveProjects)),
			"totalPageViews":      format.Number(float64(sum.TotalPageViews)),
			"totalUniqueVisitors": format.Number(float64(sum.TotalUniqueVisitors)),
			"avgResponseTime":     format.Milliseconds(sum.AvgResponseTime),
			"errorRate":           format.Percentage(sum.ErrorRate),
			"activeUsers":         format.Number(float64(rt.ActiveUsers)),
			"realtimePageViews":   format.Number(float64(rt.PageViews)),
			"realtimeErrors":      format.Number(float64(rt.Errors)),
		},
	}
}
