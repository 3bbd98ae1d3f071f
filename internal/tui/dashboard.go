package tui

import (
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tinytelemetry/vwatch/internal/metrics"
	"github.com/tinytelemetry/vwatch/internal/model"
	"github.com/tinytelemetry/vwatch/internal/store"
)

const clockInterval = time.Second

// timeRanges is the cycle order of the time range key.
var timeRanges = []model.TimeRange{model.RangeToday, model.RangeYesterday, model.Range7Days, model.Range30Days}

type clockTickMsg struct {
	gen int
	at  time.Time
}

type pollMsg struct{ gen int }

type dashboardDataMsg struct {
	state  store.State
	report metrics.Report
	err    error
	poll   bool
}

type refreshDoneMsg struct{ err error }

type actionDoneMsg struct{ err error }

type logoutMsg struct{ err error }

// DashboardPage shows the stat cards, realtime panel, charts and project list.
type DashboardPage struct {
	backend      Backend
	keys         KeyMap
	pal          palette
	pollInterval time.Duration

	state  store.State
	report metrics.Report
	loaded bool

	// Stale ticks from an earlier Init are dropped by generation.
	clockGen int
	pollGen  int
	now      time.Time

	cursor     int
	refreshing bool
	lastErr    string
	lastOK     time.Time
}

// NewDashboardPage creates the dashboard. pollInterval is how often the
// page re-reads the service state.
func NewDashboardPage(b Backend, pollInterval time.Duration) *DashboardPage {
	if pollInterval <= 0 {
		pollInterval = model.DefaultUpdateInterval
	}
	return &DashboardPage{
		backend:      b,
		keys:         DefaultKeyMap(),
		pal:          newPalette(model.DefaultTheme),
		pollInterval: pollInterval,
		now:          time.Now(),
	}
}

func (p *DashboardPage) ID() string { return PageDashboard }

func (p *DashboardPage) Init() tea.Cmd {
	p.clockGen++
	p.pollGen++
	return tea.Batch(p.fetch(true), p.clockTick())
}

func (p *DashboardPage) clockTick() tea.Cmd {
	gen := p.clockGen
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return clockTickMsg{gen: gen, at: t}
	})
}

func (p *DashboardPage) pollTick() tea.Cmd {
	gen := p.pollGen
	return tea.Tick(p.pollInterval, func(time.Time) tea.Msg {
		return pollMsg{gen: gen}
	})
}

// fetch reads a snapshot and its derived report. Only polling fetches
// schedule the next poll so action-triggered reads never fork the chain.
func (p *DashboardPage) fetch(poll bool) tea.Cmd {
	b := p.backend
	return func() tea.Msg {
		st, err := b.Snapshot()
		if err != nil {
			return dashboardDataMsg{err: err, poll: poll}
		}
		rep, err := b.Summary()
		return dashboardDataMsg{state: st, report: rep, err: err, poll: poll}
	}
}

func (p *DashboardPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case clockTickMsg:
		if msg.gen != p.clockGen {
			return nil, nil
		}
		p.now = msg.at
		return p.clockTick(), nil

	case pollMsg:
		if msg.gen != p.pollGen {
			return nil, nil
		}
		return p.fetch(true), nil

	case dashboardDataMsg:
		var next tea.Cmd
		if msg.poll {
			next = p.pollTick()
		}
		if msg.err != nil {
			p.lastErr = msg.err.Error()
			return next, nil
		}
		p.applyData(msg.state, msg.report)
		return next, nil

	case refreshDoneMsg:
		p.refreshing = false
		if msg.err != nil {
			p.lastErr = msg.err.Error()
		}
		return p.fetch(false), nil

	case actionDoneMsg:
		if msg.err != nil {
			p.lastErr = msg.err.Error()
		}
		return p.fetch(false), nil

	case logoutMsg:
		if msg.err != nil {
			p.lastErr = msg.err.Error()
			return nil, nil
		}
		return nil, navTo(PageLogin)

	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return nil, nil
}

func (p *DashboardPage) applyData(st store.State, rep metrics.Report) {
	p.state = st
	p.report = rep
	p.loaded = true
	p.lastErr = ""
	p.lastOK = p.now
	if st.Settings.Theme != p.pal.theme {
		p.pal = newPalette(st.Settings.Theme)
	}
	p.clampCursor()
}

func (p *DashboardPage) handleKey(msg tea.KeyMsg) (tea.Cmd, *PageNav) {
	switch {
	case key.Matches(msg, p.keys.Quit):
		return nil, quit
	case key.Matches(msg, p.keys.Settings):
		return nil, navTo(PageSettings)
	case key.Matches(msg, p.keys.Config):
		return nil, navTo(PageConfig)
	case key.Matches(msg, p.keys.Refresh):
		return p.refresh(), nil
	case key.Matches(msg, p.keys.TimeRange):
		return p.cycleTimeRange(), nil
	case key.Matches(msg, p.keys.Up):
		p.cursor--
		p.clampCursor()
	case key.Matches(msg, p.keys.Down):
		p.cursor++
		p.clampCursor()
	case key.Matches(msg, p.keys.Select):
		return p.toggleSelected(), nil
	case key.Matches(msg, p.keys.FocusSelect):
		ids := slices.Clone(p.state.SelectedProjects)
		return p.setFilters(store.FilterPatch{Projects: &ids}), nil
	case key.Matches(msg, p.keys.ClearFilter):
		return p.clearSelection(), nil
	case key.Matches(msg, p.keys.Logout):
		b := p.backend
		return func() tea.Msg { return logoutMsg{err: b.Logout()} }, nil
	}
	return nil, nil
}

func (p *DashboardPage) refresh() tea.Cmd {
	if p.refreshing {
		return nil
	}
	p.refreshing = true
	b := p.backend
	return func() tea.Msg {
		_, err := b.Refresh()
		return refreshDoneMsg{err: err}
	}
}

// nextTimeRange returns the range after cur in the cycle. Unknown and custom
// ranges restart the cycle.
func nextTimeRange(cur model.TimeRange) model.TimeRange {
	i := slices.Index(timeRanges, cur)
	return timeRanges[(i+1)%len(timeRanges)]
}

func (p *DashboardPage) cycleTimeRange() tea.Cmd {
	next := nextTimeRange(p.state.Filters.TimeRange)
	p.state.Filters.TimeRange = next
	return p.setFilters(store.FilterPatch{TimeRange: &next})
}

func (p *DashboardPage) setFilters(patch store.FilterPatch) tea.Cmd {
	b := p.backend
	return func() tea.Msg {
		_, err := b.SetFilters(patch)
		return actionDoneMsg{err: err}
	}
}

// toggleSelected flips the project under the cursor in the selection. The
// list always shows every project; the selection only scopes the datasets.
// The local copy is updated at once so the marker does not lag the key press.
func (p *DashboardPage) toggleSelected() tea.Cmd {
	projects := p.state.Projects
	if len(projects) == 0 {
		return nil
	}
	id := projects[p.cursor].ID
	sel := slices.Clone(p.state.SelectedProjects)
	if i := slices.Index(sel, id); i >= 0 {
		sel = slices.Delete(sel, i, i+1)
	} else {
		sel = append(sel, id)
	}
	p.state.SelectedProjects = sel

	b := p.backend
	return func() tea.Msg {
		_, err := b.SetSelectedProjects(sel)
		return actionDoneMsg{err: err}
	}
}

// clearSelection drops both the selection and the dataset project filter.
func (p *DashboardPage) clearSelection() tea.Cmd {
	p.state.SelectedProjects = []string{}
	p.state.Filters.Projects = []string{}
	b := p.backend
	return func() tea.Msg {
		if _, err := b.SetSelectedProjects([]string{}); err != nil {
			return actionDoneMsg{err: err}
		}
		ids := []string{}
		_, err := b.SetFilters(store.FilterPatch{Projects: &ids})
		return actionDoneMsg{err: err}
	}
}

func (p *DashboardPage) clampCursor() {
	n := len(p.state.Projects)
	if p.cursor >= n {
		p.cursor = n - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}
