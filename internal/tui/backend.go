package tui

import (
	"github.com/tinytelemetry/vwatch/internal/metrics"
	"github.com/tinytelemetry/vwatch/internal/model"
	"github.com/tinytelemetry/vwatch/internal/store"
)

// Backend is the service surface the TUI drives. *socketrpc.Client
// satisfies it.
type Backend interface {
	Snapshot() (store.State, error)
	Summary() (metrics.Report, error)
	SetSelectedProjects(ids []string) ([]string, error)
	SetFilters(patch store.FilterPatch) (model.FilterOptions, error)
	SetSettings(patch store.SettingsPatch) (model.UserSettings, error)
	Refresh() (store.State, error)
	SetToken(token string) (bool, error)
	HasToken() (bool, error)
	Logout() error
	ProjectConfigs() ([]model.ProjectConfig, error)
	SaveProjectConfigs(cfgs []model.ProjectConfig) ([]model.ProjectConfig, error)
}
