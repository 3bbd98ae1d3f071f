package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/vwatch/internal/model"
)

// Inline login messages.
const (
	msgEmptyToken   = "Please enter your Vercel API token"
	msgInvalidToken = "Invalid token. Create one at vercel.com/account/tokens"
	msgUnreachable  = "Could not reach the vwatch service: "
)

type loginResultMsg struct {
	ok  bool
	err error
}

// LoginPage collects the API token and hands it to the service.
type LoginPage struct {
	backend    Backend
	keys       KeyMap
	pal        palette
	input      textinput.Model
	err        string
	submitting bool
}

// NewLoginPage creates the token entry page.
func NewLoginPage(b Backend) *LoginPage {
	in := textinput.New()
	in.Placeholder = "Vercel API token"
	in.EchoMode = textinput.EchoPassword
	in.EchoCharacter = '•'
	in.CharLimit = 256
	in.Width = 48
	in.Focus()
	return &LoginPage{
		backend: b,
		keys:    DefaultKeyMap(),
		pal:     newPalette(model.DefaultTheme),
		input:   in,
	}
}

func (p *LoginPage) ID() string { return PageLogin }

func (p *LoginPage) Init() tea.Cmd {
	p.submitting = false
	p.input.Focus()
	return textinput.Blink
}

func (p *LoginPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, p.keys.Submit) {
			return p.submit(), nil
		}
		// Skipping is for configured or mock projects, which list without a token.
		if key.Matches(msg, p.keys.Escape) {
			p.err = ""
			return nil, navTo(PageDashboard)
		}
		var cmd tea.Cmd
		p.input, cmd = p.input.Update(msg)
		return cmd, nil

	case loginResultMsg:
		p.submitting = false
		switch {
		case msg.err != nil:
			p.err = msgUnreachable + msg.err.Error()
		case !msg.ok:
			p.err = msgInvalidToken
		default:
			p.err = ""
			p.input.Reset()
			return nil, navTo(PageDashboard)
		}
		return nil, nil
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd, nil
}

// submit rejects a blank token locally and otherwise sends it to the service.
func (p *LoginPage) submit() tea.Cmd {
	if p.submitting {
		return nil
	}
	token := strings.TrimSpace(p.input.Value())
	if token == "" {
		p.err = msgEmptyToken
		return nil
	}
	p.err = ""
	p.submitting = true
	b := p.backend
	return func() tea.Msg {
		ok, err := b.SetToken(token)
		return loginResultMsg{ok: ok, err: err}
	}
}

func (p *LoginPage) View(width, height int) string {
	lines := []string{
		renderBranding(lipgloss.NewStyle()) + p.pal.muted.Render("  Vercel project monitor"),
		"",
		p.pal.text.Render("Connect your Vercel account"),
		p.input.View(),
	}
	switch {
	case p.submitting:
		lines = append(lines, p.pal.muted.Render("Validating token..."))
	case p.err != "":
		lines = append(lines, p.pal.err.Render(p.err))
	default:
		lines = append(lines, "")
	}
	lines = append(lines, "", p.pal.muted.Render(helpLine(p.keys.Submit)+" • esc: skip • ctrl+c: quit"))

	box := p.pal.active.Padding(1, 3).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
