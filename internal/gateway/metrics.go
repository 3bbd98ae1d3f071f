package gateway

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce    sync.Once
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	projectSources *prometheus.CounterVec
	latencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
)

func initMetrics() {
	metricsOnce.Do(func() {
		requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vwatch",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Count of upstream API requests",
		}, []string{"route", "status"})

		requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vwatch",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of upstream API requests",
			Buckets:   latencyBuckets,
		}, []string{"route"})

		projectSources = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vwatch",
			Subsystem: "gateway",
			Name:      "project_source_total",
			Help:      "Project list resolutions by the source that produced them",
		}, []string{"source"})

		collectors := []prometheus.Collector{requestTotal, requestLatency, projectSources}
		for _, collector := range collectors {
			if err := prometheus.Register(collector); err != nil {
				if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
					switch v := are.ExistingCollector.(type) {
					case *prometheus.CounterVec:
						if collector == requestTotal {
							requestTotal = v
						} else {
							projectSources = v
						}
					case *prometheus.HistogramVec:
						requestLatency = v
					}
				}
			}
		}
	})
}

func recordRequest(route string, status int, d time.Duration) {
	if requestTotal == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	requestTotal.WithLabelValues(route, code).Inc()
	requestLatency.WithLabelValues(route).Observe(d.Seconds())
}

func recordSource(source string) {
	if projectSources == nil {
		return
	}
	projectSources.WithLabelValues(source).Inc()
}
