package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tinytelemetry/vwatch/internal/duckdb"
	"github.com/tinytelemetry/vwatch/internal/metrics"
	"github.com/tinytelemetry/vwatch/internal/model"
	"github.com/tinytelemetry/vwatch/internal/store"
)

func (s *Server) handleHealth(c *gin.Context) {
	snap := s.state.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"uptime":   time.Since(s.startTime).String(),
		"projects": len(snap.Projects),
		"loading":  snap.Loading.Any(),
		"error":    snap.Error,
	})
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.state.Snapshot())
}

func (s *Server) handleProjects(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"projects": s.state.FilteredProjects()})
}

func (s *Server) handleAnalytics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"analytics": s.state.FilteredAnalytics()})
}

func (s *Server) handlePerformance(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"performance": s.state.FilteredPerformance()})
}

func (s *Server) handleRealtime(c *gin.Context) {
	records := s.state.Snapshot().RealtimeData
	c.JSON(http.StatusOK, gin.H{
		"realtime": records,
		"totals":   metrics.Realtime(records),
	})
}

func (s *Server) handleSummary(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.BuildReport(s.state.Snapshot()))
}

func (s *Server) handleSettings(c *gin.Context) {
	var patch store.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings body"})
		return
	}
	if err := validateSettings(patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.state.SetSettings(patch)
	c.JSON(http.StatusOK, s.state.Snapshot().Settings)
}

func (s *Server) handleFilters(c *gin.Context) {
	var patch store.FilterPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filters body"})
		return
	}
	if patch.TimeRange != nil && !patch.TimeRange.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown time range"})
		return
	}
	s.state.SetFilters(patch)
	c.JSON(http.StatusOK, s.state.Snapshot().Filters)
}

func (s *Server) handleSelection(c *gin.Context) {
	var req struct {
		Projects []string `json:"projects"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid selection body"})
		return
	}
	if req.Projects == nil {
		req.Projects = []string{}
	}
	s.state.SetSelectedProjects(req.Projects)
	c.JSON(http.StatusOK, gin.H{"selectedProjects": req.Projects})
}

func (s *Server) handleRefresh(c *gin.Context) {
	if s.refresher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "refresh is not available"})
		return
	}
	if err := s.refresher.RefreshAll(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "state": s.state.Snapshot()})
		return
	}
	c.JSON(http.StatusOK, s.state.Snapshot())
}

func (s *Server) handleRealtimeHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is disabled"})
		return
	}
	minutes := 60
	if raw := c.Query("minutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 7*24*60 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "minutes must be between 1 and 10080"})
			return
		}
		minutes = n
	}
	points, err := s.history.RealtimeSeries(c.Query("project"), time.Now().Add(-time.Duration(minutes)*time.Minute))
	if err != nil {
		s.log.WithError(err).Warn("realtime history query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read realtime history"})
		return
	}
	if points == nil {
		points = []duckdb.SeriesPoint{}
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

func validateSettings(p store.SettingsPatch) error {
	if p.Theme != nil && *p.Theme != model.ThemeLight && *p.Theme != model.ThemeDark {
		return errors.New("theme must be light or dark")
	}
	if p.RefreshInterval != nil && *p.RefreshInterval < 0 {
		return errors.New("refreshInterval must not be negative")
	}
	return nil
}
