package store

import (
	"slices"

	"github.com/tinytelemetry/vwatch/internal/model"
)

// Loading holds the per-resource loading flags.
type Loading struct {
	Projects    bool `json:"projects"`
	Analytics   bool `json:"analytics"`
	Performance bool `json:"performance"`
	Realtime    bool `json:"realtime"`
}

// Any reports whether any resource is loading.
func (l Loading) Any() bool {
	return l.Projects || l.Analytics || l.Performance || l.Realtime
}

// State is a point-in-time copy of the dashboard state.
type State struct {
	Projects         []model.Project           `json:"projects"`
	SelectedProjects []string                  `json:"selectedProjects"`
	AnalyticsData    []model.AnalyticsRecord   `json:"analyticsData"`
	PerformanceData  []model.PerformanceRecord `json:"performanceData"`
	RealtimeData     []model.RealtimeRecord    `json:"realtimeData"`
	Filters          model.FilterOptions       `json:"filters"`
	Settings         model.UserSettings        `json:"settings"`
	Loading          Loading                   `json:"loading"`
	Error            string                    `json:"error"`
}

func initialState() State {
	return State{
		Projects:         []model.Project{},
		SelectedProjects: []string{},
		AnalyticsData:    []model.AnalyticsRecord{},
		PerformanceData:  []model.PerformanceRecord{},
		RealtimeData:     []model.RealtimeRecord{},
		Filters:          model.DefaultFilters(),
		Settings:         model.DefaultSettings(),
	}
}

// clone copies the slices so callers can't alias store internals. Record
// values are copied shallowly; ranked lists inside analytics records are
// never mutated in place by the store.
func (s State) clone() State {
	out := s
	out.Projects = slices.Clone(s.Projects)
	out.SelectedProjects = slices.Clone(s.SelectedProjects)
	out.AnalyticsData = slices.Clone(s.AnalyticsData)
	out.PerformanceData = slices.Clone(s.PerformanceData)
	out.RealtimeData = slices.Clone(s.RealtimeData)
	out.Filters.Projects = slices.Clone(s.Filters.Projects)
	out.Filters.Metrics = slices.Clone(s.Filters.Metrics)
	return out
}

// FilterPatch is a shallow merge into FilterOptions. Nil fields are retained.
type FilterPatch struct {
	TimeRange       *model.TimeRange `json:"timeRange,omitempty"`
	CustomStartDate *string          `json:"customStartDate,omitempty"`
	CustomEndDate   *string          `json:"customEndDate,omitempty"`
	Projects        *[]string        `json:"projects,omitempty"`
	Metrics         *[]string        `json:"metrics,omitempty"`
}

func (p FilterPatch) apply(f model.FilterOptions) model.FilterOptions {
	if p.TimeRange != nil {
		f.TimeRange = *p.TimeRange
	}
	if p.CustomStartDate != nil {
		f.CustomStartDate = *p.CustomStartDate
	}
	if p.CustomEndDate != nil {
		f.CustomEndDate = *p.CustomEndDate
	}
	if p.Projects != nil {
		f.Projects = slices.Clone(*p.Projects)
	}
	if p.Metrics != nil {
		f.Metrics = slices.Clone(*p.Metrics)
	}
	return f
}

// SettingsPatch is a shallow merge into UserSettings. Nil fields are retained.
type SettingsPatch struct {
	Theme           *model.Theme `json:"theme,omitempty"`
	RefreshInterval *int         `json:"refreshInterval,omitempty"`
	Notifications   *bool        `json:"notifications,omitempty"`
	AutoRefresh     *bool        `json:"autoRefresh,omitempty"`
}

func (p SettingsPatch) apply(s model.UserSettings) model.UserSettings {
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.RefreshInterval != nil {
		s.RefreshInterval = *p.RefreshInterval
	}
	if p.Notifications != nil {
		s.Notifications = *p.Notifications
	}
	if p.AutoRefresh != nil {
		s.AutoRefresh = *p.AutoRefresh
	}
	return s
}
