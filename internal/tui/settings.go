package tui

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/vwatch/internal/model"
	"github.com/tinytelemetry/vwatch/internal/store"
)

// RefreshIntervals are the auto-refresh choices offered, in seconds.
var RefreshIntervals = []int{10, 30, 60, 300}

type settingsField int

const (
	fieldTheme settingsField = iota
	fieldInterval
	fieldNotifications
	fieldAutoRefresh
	fieldCount
)

type settingsLoadedMsg struct {
	settings model.UserSettings
	err      error
}

// SettingsPage edits the user preferences. Every change is sent to the
// service at once.
type SettingsPage struct {
	backend  Backend
	keys     KeyMap
	pal      palette
	settings model.UserSettings
	loaded   bool
	cursor   settingsField
	err      string
}

// NewSettingsPage creates the settings editor.
func NewSettingsPage(b Backend) *SettingsPage {
	return &SettingsPage{
		backend:  b,
		keys:     DefaultKeyMap(),
		pal:      newPalette(model.DefaultTheme),
		settings: model.DefaultSettings(),
	}
}

func (p *SettingsPage) ID() string { return PageSettings }

func (p *SettingsPage) Init() tea.Cmd {
	b := p.backend
	return func() tea.Msg {
		st, err := b.Snapshot()
		return settingsLoadedMsg{settings: st.Settings, err: err}
	}
}

func (p *SettingsPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case settingsLoadedMsg:
		if msg.err != nil {
			p.err = msg.err.Error()
			return nil, nil
		}
		p.err = ""
		p.settings = msg.settings
		p.loaded = true
		p.pal = newPalette(p.settings.Theme)
		return nil, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.Escape), key.Matches(msg, p.keys.Settings):
			return nil, navTo(PageDashboard)
		case key.Matches(msg, p.keys.Quit):
			return nil, quit
		case key.Matches(msg, p.keys.Up):
			p.cursor = (p.cursor + fieldCount - 1) % fieldCount
		case key.Matches(msg, p.keys.Down):
			p.cursor = (p.cursor + 1) % fieldCount
		case key.Matches(msg, p.keys.Left):
			return p.change(-1), nil
		case key.Matches(msg, p.keys.Right), key.Matches(msg, p.keys.Select), key.Matches(msg, p.keys.Submit):
			return p.change(1), nil
		}
	}
	return nil, nil
}

// nextInterval steps through RefreshIntervals. A value not on the list snaps
// to the first choice.
func nextInterval(cur, dir int) int {
	i := slices.Index(RefreshIntervals, cur)
	if i < 0 {
		return RefreshIntervals[0]
	}
	n := len(RefreshIntervals)
	return RefreshIntervals[(i+dir+n)%n]
}

func (p *SettingsPage) change(dir int) tea.Cmd {
	var patch store.SettingsPatch
	switch p.cursor {
	case fieldTheme:
		theme := model.ThemeLight
		if p.settings.Theme == model.ThemeLight {
			theme = model.ThemeDark
		}
		p.settings.Theme = theme
		p.pal = newPalette(theme)
		patch.Theme = &theme
	case fieldInterval:
		v := nextInterval(p.settings.RefreshInterval, dir)
		p.settings.RefreshInterval = v
		patch.RefreshInterval = &v
	case fieldNotifications:
		v := !p.settings.Notifications
		p.settings.Notifications = v
		patch.Notifications = &v
	case fieldAutoRefresh:
		v := !p.settings.AutoRefresh
		p.settings.AutoRefresh = v
		patch.AutoRefresh = &v
	}

	b := p.backend
	return func() tea.Msg {
		s, err := b.SetSettings(patch)
		return settingsLoadedMsg{settings: s, err: err}
	}
}

func onOff(v bool) string {
	if v {
		return "On"
	}
	return "Off"
}

func (p *SettingsPage) View(width, height int) string {
	rows := []struct {
		label string
		value string
	}{
		{"Theme", string(p.settings.Theme)},
		{"Refresh interval", fmt.Sprintf("%ds", p.settings.RefreshInterval)},
		{"Notifications", onOff(p.settings.Notifications)},
		{"Auto-refresh", onOff(p.settings.AutoRefresh)},
	}

	lines := []string{p.pal.title.Render("Settings"), ""}
	for i, r := range rows {
		prefix := "  "
		value := p.pal.text.Render("‹ " + r.value + " ›")
		if settingsField(i) == p.cursor {
			prefix = lipgloss.NewStyle().Foreground(ColorBlue).Render("> ")
			value = p.pal.title.Render("‹ " + r.value + " ›")
		}
		lines = append(lines, fmt.Sprintf("%s%-18s %s", prefix, r.label, value))
	}
	lines = append(lines, "")
	if p.err != "" {
		lines = append(lines, p.pal.err.Render(p.err))
	} else if !p.loaded {
		lines = append(lines, p.pal.muted.Render(spinnerFrames[0]+" Loading..."))
	} else {
		lines = append(lines, "")
	}
	lines = append(lines, p.pal.muted.Render(helpLine(p.keys.Up, p.keys.Down, p.keys.Left, p.keys.Right, p.keys.Escape)))

	box := p.pal.section.Padding(1, 3).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
