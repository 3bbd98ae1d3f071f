// Package metrics derives the dashboard summary figures from a state snapshot.
// Nothing is cached: every call recomputes from the records it is given.
package metrics

import (
	"sort"

	"github.com/tinytelemetry/vwatch/internal/model"
	"github.com/tinytelemetry/vwatch/internal/store"
)

// Summary holds the six headline dashboard figures.
type Summary struct {
	TotalProjects       int     `json:"totalProjects"`
	ActiveProjects      int     `json:"activeProjects"`
	TotalPageViews      int64   `json:"totalPageViews"`
	TotalUniqueVisitors int64   `json:"totalUniqueVisitors"`
	AvgResponseTime     float64 `json:"avgResponseTime"`
	ErrorRate           float64 `json:"errorRate"`
}

// RealtimeTotals aggregates the latest realtime batch.
type RealtimeTotals struct {
	ActiveUsers     int64   `json:"activeUsers"`
	PageViews       int64   `json:"pageViews"`
	Errors          int64   `json:"errors"`
	AvgResponseTime float64 `json:"avgResponseTime"`
	Samples         int     `json:"samples"`
}

// StatusCount is the number of projects in one status.
type StatusCount struct {
	Status model.ProjectStatus `json:"status"`
	Count  int                 `json:"count"`
}

// DailyViews is the summed page views of one date.
type DailyViews struct {
	Date      string `json:"date"`
	PageViews int64  `json:"pageViews"`
}

// Compute derives the headline figures from st. ErrorRate is the mean of the
// realtime Errors counts, matching the dashboard's observed behaviour.
func Compute(st store.State) Summary {
	s := Summary{TotalProjects: len(st.Projects)}
	for _, p := range st.Projects {
		if p.Status == model.StatusReady {
			s.ActiveProjects++
		}
	}
	for _, a := range st.AnalyticsData {
		s.TotalPageViews += a.PageViews
		s.TotalUniqueVisitors += a.UniqueVisitors
	}
	rt := Realtime(st.RealtimeData)
	s.AvgResponseTime = rt.AvgResponseTime
	if rt.Samples > 0 {
		s.ErrorRate = float64(rt.Errors) / float64(rt.Samples)
	}
	return s
}

// Realtime sums the realtime batch. Empty input yields all zeros.
func Realtime(records []model.RealtimeRecord) RealtimeTotals {
	var t RealtimeTotals
	var rtSum float64
	for _, r := range records {
		t.ActiveUsers += r.ActiveUsers
		t.PageViews += r.PageViews
		t.Errors += r.Errors
		rtSum += r.AvgResponseTime
	}
	t.Samples = len(records)
	t.AvgResponseTime = mean(rtSum, len(records))
	return t
}

// StatusBreakdown counts projects per status in enum order. Statuses outside
// the enum are ignored.
func StatusBreakdown(projects []model.Project) []StatusCount {
	counts := make(map[model.ProjectStatus]int, len(model.Statuses))
	for _, p := range projects {
		counts[p.Status]++
	}
	out := make([]StatusCount, 0, len(model.Statuses))
	for _, s := range model.Statuses {
		out = append(out, StatusCount{Status: s, Count: counts[s]})
	}
	return out
}

// DailyPageViews sums page views per date, date ascending.
func DailyPageViews(records []model.AnalyticsRecord) []DailyViews {
	byDate := make(map[string]int64)
	for _, r := range records {
		byDate[r.Date] += r.PageViews
	}
	out := make([]DailyViews, 0, len(byDate))
	for d, v := range byDate {
		out = append(out, DailyViews{Date: d, PageViews: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// AverageHealth returns the mean project health score, 0 for no projects.
func AverageHealth(projects []model.Project) float64 {
	var sum float64
	for _, p := range projects {
		sum += float64(p.HealthScore)
	}
	return mean(sum, len(projects))
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
