package model

import "time"

// Shared defaults used by both the service and TUI binaries.
const (
	DefaultUpdateInterval  = 2 * time.Second
	DefaultRefreshInterval = 30 // seconds
	DefaultTheme           = ThemeDark
	DefaultTimeRange       = Range7Days
	DefaultAPIBaseURL      = "https://api.vercel.com"
	DefaultAPITimeout      = 10 * time.Second
)

// DefaultMetrics are the metric keys selected on a fresh session.
var DefaultMetrics = []string{"pageViews", "uniqueVisitors", "avgResponseTime"}

// DefaultSettings returns the initial user settings: dark theme, 30 second
// refresh, notifications and auto-refresh enabled.
func DefaultSettings() UserSettings {
	return UserSettings{
		Theme:           DefaultTheme,
		RefreshInterval: DefaultRefreshInterval,
		Notifications:   true,
		AutoRefresh:     true,
	}
}

// DefaultFilters returns the initial filter options.
func DefaultFilters() FilterOptions {
	return FilterOptions{
		TimeRange: DefaultTimeRange,
		Projects:  []string{},
		Metrics:   append([]string(nil), DefaultMetrics...),
	}
}
