// Package httpserver exposes the dashboard state over a JSON HTTP API, a
// WebSocket change stream and a Prometheus scrape endpoint.
package httpserver

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/tinytelemetry/vwatch/internal/duckdb"
	"github.com/tinytelemetry/vwatch/internal/store"
)

// Refresher triggers a full data reload.
type Refresher interface {
	RefreshAll(ctx context.Context) error
}

// HistoryReader is the narrow history contract required by the HTTP API.
type HistoryReader interface {
	RealtimeSeries(projectID string, since time.Time) ([]duckdb.SeriesPoint, error)
}

// Option customises the server.
type Option func(*Server)

// WithRefresher enables POST /api/refresh.
func WithRefresher(r Refresher) Option { return func(s *Server) { s.refresher = r } }

// WithHistory enables GET /api/history/realtime.
func WithHistory(h HistoryReader) Option { return func(s *Server) { s.history = h } }

// WithLogger sets the request logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// Server provides the HTTP API.
type Server struct {
	addr      string
	state     *store.Store
	refresher Refresher
	history   HistoryReader
	log       logrus.FieldLogger
	upgrader  websocket.Upgrader

	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time

	metricsOnce    sync.Once
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, state *store.Store, opts ...Option) *Server {
	if addr == "" {
		addr = "127.0.0.1:3000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:   addr,
		state:  state,
		log:    logrus.WithField("component", "httpserver"),
		ctx:    ctx,
		cancel: cancel,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the gin router.
func (s *Server) Handler() http.Handler {
	s.initMetrics()

	r := gin.New()
	r.Use(gin.Recovery(), s.observe)

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/state", s.handleState)
	api.GET("/projects", s.handleProjects)
	api.GET("/analytics", s.handleAnalytics)
	api.GET("/performance", s.handlePerformance)
	api.GET("/realtime", s.handleRealtime)
	api.GET("/summary", s.handleSummary)
	api.PATCH("/settings", s.handleSettings)
	api.PATCH("/filters", s.handleFilters)
	api.PUT("/selection", s.handleSelection)
	api.POST("/refresh", s.handleRefresh)
	api.GET("/history/realtime", s.handleRealtimeHistory)
	api.GET("/stream", s.handleStream)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Stop gracefully shuts down the HTTP server. Open streams are closed via
// the base context.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) initMetrics() {
	s.metricsOnce.Do(func() {
		s.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vwatch",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"})
		s.requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vwatch",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method", "route"})

		for _, c := range []prometheus.Collector{s.requestTotal, s.requestLatency} {
			if err := prometheus.Register(c); err != nil {
				are, ok := err.(prometheus.AlreadyRegisteredError)
				if !ok {
					continue
				}
				switch v := are.ExistingCollector.(type) {
				case *prometheus.CounterVec:
					s.requestTotal = v
				case *prometheus.HistogramVec:
					s.requestLatency = v
				}
			}
		}
	})
}

// observe records request metrics keyed by the matched route.
func (s *Server) observe(c *gin.Context) {
	start := time.Now()
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	s.requestTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	s.requestLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
}
