package tui

import (
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tinytelemetry/vwatch/internal/metrics"
	"github.com/tinytelemetry/vwatch/internal/model"
	"github.com/tinytelemetry/vwatch/internal/store"
)

// fakeBackend serves a real in-memory store and records the write calls.
type fakeBackend struct {
	st *store.Store

	mu         sync.Mutex
	validToken string
	tokens     []string
	refreshes  int
	logouts    int
	configs    []model.ProjectConfig
	saves      int
	failWith   error
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	st := store.New()
	now := time.Now()
	st.SetProjects([]model.Project{
		{ID: "p1", Name: "storefront", Status: model.StatusReady, HealthScore: 95, Framework: "Next.js", Region: "iad1", LastUpdated: now.Add(-time.Hour)},
		{ID: "p2", Name: "docs", Status: model.StatusError, HealthScore: 61, Framework: "Vue.js", Region: "fra1", LastUpdated: now.Add(-3 * time.Hour)},
	})
	st.SetAnalyticsData([]model.AnalyticsRecord{
		{ProjectID: "p1", Date: now.Format("2006-01-02"), PageViews: 1500, UniqueVisitors: 300},
	})
	st.SetRealtimeData([]model.RealtimeRecord{{ProjectID: "p1", ActiveUsers: 7, PageViews: 20, Errors: 1, AvgResponseTime: 120}})
	t.Cleanup(st.Close)
	return &fakeBackend{st: st, validToken: "good"}
}

func (f *fakeBackend) err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failWith
}

func (f *fakeBackend) Snapshot() (store.State, error) {
	if err := f.err(); err != nil {
		return store.State{}, err
	}
	return f.st.Snapshot(), nil
}

func (f *fakeBackend) Summary() (metrics.Report, error) {
	return metrics.BuildReport(f.st.Snapshot()), f.err()
}

func (f *fakeBackend) SetSelectedProjects(ids []string) ([]string, error) {
	f.st.SetSelectedProjects(ids)
	return ids, f.err()
}

func (f *fakeBackend) SetFilters(patch store.FilterPatch) (model.FilterOptions, error) {
	f.st.SetFilters(patch)
	return f.st.Snapshot().Filters, f.err()
}

func (f *fakeBackend) SetSettings(patch store.SettingsPatch) (model.UserSettings, error) {
	f.st.SetSettings(patch)
	return f.st.Snapshot().Settings, f.err()
}

func (f *fakeBackend) Refresh() (store.State, error) {
	f.mu.Lock()
	f.refreshes++
	f.mu.Unlock()
	return f.st.Snapshot(), f.err()
}

func (f *fakeBackend) SetToken(token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	if f.failWith != nil {
		return false, f.failWith
	}
	return token == f.validToken, nil
}

func (f *fakeBackend) HasToken() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens) > 0, nil
}

func (f *fakeBackend) Logout() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	f.tokens = nil
	return nil
}

func (f *fakeBackend) ProjectConfigs() ([]model.ProjectConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ProjectConfig(nil), f.configs...), f.failWith
}

func (f *fakeBackend) SaveProjectConfigs(cfgs []model.ProjectConfig) ([]model.ProjectConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.saves++
	out := make([]model.ProjectConfig, len(cfgs))
	for i, c := range cfgs {
		if c.ID == "" {
			c.ID = "id-" + c.URL
		}
		out[i] = c
	}
	f.configs = out
	return out, nil
}

var errBackendDown = errors.New("socketrpc: connection closed")

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes cmd and returns its message, or nil for a nil command.
func run(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	return cmd()
}
