package model

import "time"

// ProjectStatus is the deployment state of a tracked project.
type ProjectStatus string

const (
	StatusReady    ProjectStatus = "READY"
	StatusBuilding ProjectStatus = "BUILDING"
	StatusError    ProjectStatus = "ERROR"
	StatusQueued   ProjectStatus = "QUEUED"
)

// Statuses lists every project status in display order.
var Statuses = []ProjectStatus{StatusReady, StatusBuilding, StatusError, StatusQueued}

// Valid reports whether s is one of the four known states.
func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusReady, StatusBuilding, StatusError, StatusQueued:
		return true
	}
	return false
}

// Project is one externally hosted deployment tracked by the dashboard.
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	URL         string        `json:"url"`
	Framework   string        `json:"framework"`
	Status      ProjectStatus `json:"status"`
	LastUpdated time.Time     `json:"lastUpdated"`
	HealthScore int           `json:"healthScore"`
	Region      string        `json:"region"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// PageCount is one ranked entry of the top pages list.
type PageCount struct {
	Path  string `json:"path"`
	Views int64  `json:"views"`
}

// CountryCount is one ranked entry of the top countries list.
type CountryCount struct {
	Country string `json:"country"`
	Views   int64  `json:"views"`
}

// DeviceCount is one ranked entry of the top devices list.
type DeviceCount struct {
	Device string `json:"device"`
	Views  int64  `json:"views"`
}

// BrowserCount is one ranked entry of the top browsers list.
type BrowserCount struct {
	Browser string `json:"browser"`
	Views   int64  `json:"views"`
}

// AnalyticsRecord holds one day of traffic analytics for a project.
// The ranked lists keep the order they were received in.
type AnalyticsRecord struct {
	ProjectID          string         `json:"projectId"`
	Date               string         `json:"date"` // YYYY-MM-DD
	PageViews          int64          `json:"pageViews"`
	UniqueVisitors     int64          `json:"uniqueVisitors"`
	BounceRate         float64        `json:"bounceRate"`
	AvgSessionDuration float64        `json:"avgSessionDuration"`
	TopPages           []PageCount    `json:"topPages"`
	TopCountries       []CountryCount `json:"topCountries"`
	TopDevices         []DeviceCount  `json:"topDevices"`
	TopBrowsers        []BrowserCount `json:"topBrowsers"`
}

// TimeRange enumerates the dashboard's selectable time windows.
type TimeRange string

const (
	RangeToday     TimeRange = "today"
	RangeYesterday TimeRange = "yesterday"
	Range7Days     TimeRange = "7days"
	Range30Days    TimeRange = "30days"
	RangeCustom    TimeRange = "custom"
)

// Valid reports whether r is a known time range.
func (r TimeRange) Valid() bool {
	switch r {
	case RangeToday, RangeYesterday, Range7Days, Range30Days, RangeCustom:
		return true
	}
	return false
}

// FilterOptions selects which records the derived views expose.
// An empty Projects slice means all projects.
type FilterOptions struct {
	TimeRange       TimeRange `json:"timeRange"`
	CustomStartDate string    `json:"customStartDate,omitempty"`
	CustomEndDate   string    `json:"customEndDate,omitempty"`
	Projects        []string  `json:"projects"`
	Metrics         []string  `json:"metrics"`
}

// Theme is the dashboard color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// UserSettings holds session-scoped dashboard preferences.
type UserSettings struct {
	Theme           Theme `json:"theme"`
	RefreshInterval int   `json:"refreshInterval"` // seconds
	Notifications   bool  `json:"notifications"`
	AutoRefresh     bool  `json:"autoRefresh"`
}

// ProjectConfig is a user-managed project URL saved to local storage.
type ProjectConfig struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
