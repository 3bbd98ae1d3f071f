package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/vwatch/internal/format"
	"github.com/tinytelemetry/vwatch/internal/model"
)

const (
	msgInvalidURL   = "Please enter a valid URL"
	msgDuplicateURL = "That URL is already in the list"
)

type configsLoadedMsg struct {
	configs []model.ProjectConfig
	err     error
	// notice is set after a save that could not trigger a reload.
	notice string
}

// ConfigPage manages the saved project URLs.
type ConfigPage struct {
	backend Backend
	keys    KeyMap
	pal     palette
	configs []model.ProjectConfig
	cursor  int
	input   textinput.Model
	adding  bool
	saving  bool
	err     string
	notice  string
}

// NewConfigPage creates the project URL editor.
func NewConfigPage(b Backend) *ConfigPage {
	in := textinput.New()
	in.Placeholder = "https://my-app.vercel.app"
	in.CharLimit = 512
	in.Width = 56
	return &ConfigPage{
		backend: b,
		keys:    DefaultKeyMap(),
		pal:     newPalette(model.DefaultTheme),
		input:   in,
	}
}

func (p *ConfigPage) ID() string { return PageConfig }

func (p *ConfigPage) Init() tea.Cmd {
	p.adding = false
	p.input.Blur()
	b := p.backend
	return func() tea.Msg {
		cfgs, err := b.ProjectConfigs()
		return configsLoadedMsg{configs: cfgs, err: err}
	}
}

func (p *ConfigPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case configsLoadedMsg:
		p.saving = false
		if msg.err != nil {
			p.err = msg.err.Error()
			return nil, nil
		}
		p.err = ""
		p.notice = msg.notice
		p.configs = msg.configs
		p.cursor = min(p.cursor, max(0, len(p.configs)-1))
		return nil, nil

	case tea.KeyMsg:
		if p.adding {
			return p.updateInput(msg), nil
		}
		switch {
		case key.Matches(msg, p.keys.Escape), key.Matches(msg, p.keys.Config):
			return nil, navTo(PageDashboard)
		case key.Matches(msg, p.keys.Quit):
			return nil, quit
		case key.Matches(msg, p.keys.Up):
			p.cursor = max(0, p.cursor-1)
		case key.Matches(msg, p.keys.Down):
			p.cursor = min(max(0, len(p.configs)-1), p.cursor+1)
		case key.Matches(msg, p.keys.Add):
			p.adding = true
			p.err = ""
			p.input.Reset()
			p.input.Focus()
			return textinput.Blink, nil
		case key.Matches(msg, p.keys.Delete):
			return p.remove(), nil
		}
		return nil, nil
	}

	if p.adding {
		var cmd tea.Cmd
		p.input, cmd = p.input.Update(msg)
		return cmd, nil
	}
	return nil, nil
}

func (p *ConfigPage) updateInput(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, p.keys.Escape):
		p.adding = false
		p.err = ""
		p.input.Blur()
		return nil
	case key.Matches(msg, p.keys.Submit):
		return p.add(strings.TrimSpace(p.input.Value()))
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

// add validates url inline before anything is sent to the service.
func (p *ConfigPage) add(url string) tea.Cmd {
	if !format.IsValidURL(url) {
		p.err = msgInvalidURL
		return nil
	}
	if slices.ContainsFunc(p.configs, func(c model.ProjectConfig) bool { return c.URL == url }) {
		p.err = msgDuplicateURL
		return nil
	}
	p.adding = false
	p.input.Blur()
	next := append(slices.Clone(p.configs), model.ProjectConfig{URL: url})
	p.cursor = len(next) - 1
	return p.save(next)
}

func (p *ConfigPage) remove() tea.Cmd {
	if len(p.configs) == 0 {
		return nil
	}
	next := slices.Delete(slices.Clone(p.configs), p.cursor, p.cursor+1)
	return p.save(next)
}

// save persists cfgs and asks the service to reload so the dashboard picks
// up the new list.
func (p *ConfigPage) save(cfgs []model.ProjectConfig) tea.Cmd {
	p.saving = true
	p.configs = cfgs
	b := p.backend
	return func() tea.Msg {
		saved, err := b.SaveProjectConfigs(cfgs)
		if err != nil {
			return configsLoadedMsg{err: err}
		}
		msg := configsLoadedMsg{configs: saved}
		if _, err := b.Refresh(); err != nil {
			msg.notice = "Saved. Reload failed: " + err.Error()
		}
		return msg
	}
}

func (p *ConfigPage) View(width, height int) string {
	lines := []string{p.pal.title.Render(fmt.Sprintf("Project URLs (%d)", len(p.configs))), ""}
	if len(p.configs) == 0 {
		lines = append(lines, p.pal.muted.Render("No project URLs saved. Press a to add one."))
	}
	for i, c := range p.configs {
		prefix := "  "
		url := p.pal.text.Render(c.URL)
		if i == p.cursor && !p.adding {
			prefix = lipgloss.NewStyle().Foreground(ColorBlue).Render("> ")
			url = p.pal.title.Render(c.URL)
		}
		lines = append(lines, prefix+url)
	}

	lines = append(lines, "")
	if p.adding {
		lines = append(lines, p.input.View())
	}
	switch {
	case p.err != "":
		lines = append(lines, p.pal.err.Render(p.err))
	case p.saving:
		lines = append(lines, p.pal.muted.Render("Saving..."))
	case p.notice != "":
		lines = append(lines, p.pal.muted.Render(p.notice))
	default:
		lines = append(lines, "")
	}

	help := helpLine(p.keys.Add, p.keys.Delete, p.keys.Up, p.keys.Down, p.keys.Escape)
	if p.adding {
		help = helpLine(p.keys.Submit, p.keys.Escape)
	}
	lines = append(lines, p.pal.muted.Render(help))

	box := p.pal.section.Padding(1, 3).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
