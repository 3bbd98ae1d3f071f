package gateway

import (
	"math/rand/v2"
	"time"

	"github.com/tinytelemetry/vwatch/internal/format"
	"github.com/tinytelemetry/vwatch/internal/model"
)

var (
	mockPages     = []string{"/", "/blog", "/pricing", "/docs", "/about"}
	mockCountries = []string{"United States", "China", "Germany", "Japan", "Brazil"}
	mockDevices   = []string{"Desktop", "Mobile", "Tablet"}
	mockBrowsers  = []string{"Chrome", "Safari", "Firefox", "Edge"}
)

// mockAnalytics generates one record per project per day of the range,
// oldest day first, ending on the range's last day.
func (g *Gateway) mockAnalytics(projectIDs []string, r model.TimeRange) []model.AnalyticsRecord {
	days := format.DayCount(r)
	_, end := format.TimeRangeBounds(r, "", "", g.now())
	out := make([]model.AnalyticsRecord, 0, len(projectIDs)*days)
	g.withRand(func(rng *rand.Rand) {
		for _, id := range projectIDs {
			for d := 0; d < days; d++ {
				views := int64(1000 + rng.IntN(9000))
				out = append(out, model.AnalyticsRecord{
					ProjectID:          id,
					Date:               end.AddDate(0, 0, d-days+1).Format(format.DateLayout),
					PageViews:          views,
					UniqueVisitors:     views/3 + int64(rng.IntN(500)),
					BounceRate:         0.2 + rng.Float64()*0.5,
					AvgSessionDuration: 30 + rng.Float64()*270,
					TopPages:           ranked(rng, mockPages, views, func(k string, v int64) model.PageCount { return model.PageCount{Path: k, Views: v} }),
					TopCountries:       ranked(rng, mockCountries, views, func(k string, v int64) model.CountryCount { return model.CountryCount{Country: k, Views: v} }),
					TopDevices:         ranked(rng, mockDevices, views, func(k string, v int64) model.DeviceCount { return model.DeviceCount{Device: k, Views: v} }),
					TopBrowsers:        ranked(rng, mockBrowsers, views, func(k string, v int64) model.BrowserCount { return model.BrowserCount{Browser: k, Views: v} }),
				})
			}
		}
	})
	return out
}

// ranked splits total across keys in descending shares.
func ranked[T any](rng *rand.Rand, keys []string, total int64, mk func(string, int64) T) []T {
	out := make([]T, 0, len(keys))
	remaining := total
	for i, k := range keys {
		share := remaining / 2
		if i == len(keys)-1 {
			share = remaining
		} else if share > 0 {
			share -= int64(rng.IntN(int(share/4) + 1))
		}
		remaining -= share
		out = append(out, mk(k, share))
	}
	return out
}

func (g *Gateway) mockPerformance(projectIDs []string, r model.TimeRange) []model.PerformanceRecord {
	days := format.DayCount(r)
	_, end := format.TimeRangeBounds(r, "", "", g.now())
	out := make([]model.PerformanceRecord, 0, len(projectIDs)*days)
	g.withRand(func(rng *rand.Rand) {
		for _, id := range projectIDs {
			for d := 0; d < days; d++ {
				avg := 80 + rng.Float64()*320
				out = append(out, model.PerformanceRecord{
					ProjectID:       id,
					Date:            end.AddDate(0, 0, d-days+1).Format(format.DateLayout),
					AvgResponseTime: avg,
					P95ResponseTime: avg * (1.5 + rng.Float64()),
					ErrorRate:       rng.Float64() * 0.05,
					Uptime:          0.99 + rng.Float64()*0.01,
					CoreWebVitals: model.CoreWebVitals{
						LCP: 1.2 + rng.Float64()*2.5,
						FID: 10 + rng.Float64()*140,
						CLS: rng.Float64() * 0.25,
					},
				})
			}
		}
	})
	return out
}

func (g *Gateway) mockRealtime(projectIDs []string) []model.RealtimeRecord {
	now := g.now().UTC().Truncate(time.Second)
	out := make([]model.RealtimeRecord, 0, len(projectIDs))
	g.withRand(func(rng *rand.Rand) {
		for _, id := range projectIDs {
			out = append(out, model.RealtimeRecord{
				ProjectID:       id,
				Timestamp:       now,
				ActiveUsers:     int64(rng.IntN(200)),
				PageViews:       int64(rng.IntN(1000)),
				Errors:          int64(rng.IntN(5)),
				AvgResponseTime: 50 + rng.Float64()*450,
			})
		}
	})
	return out
}
