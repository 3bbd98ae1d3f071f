package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tinytelemetry/vwatch/internal/model"
)

func openConfig(t *testing.T, fb *fakeBackend) *ConfigPage {
	t.Helper()
	p := NewConfigPage(fb)
	p.Update(run(t, p.Init()))
	return p
}

func TestConfigAddValidatesInline(t *testing.T) {
	t.Parallel()
	fb := newFakeBackend(t)
	fb.configs = []model.ProjectConfig{{ID: "a", URL: "https://a.vercel.app"}}
	p := openConfig(t, fb)

	p.Update(keyRunes("a"))
	if !p.adding {
		t.Fatal("a should open the input")
	}

	for _, tt := range []struct{ url, want string }{
		{"not a url", msgInvalidURL},
		{"https://a.vercel.app", msgDuplicateURL},
	} {
		p.input.SetValue(tt.url)
		if cmd, _ := p.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
			t.Errorf("%q: should not reach the service", tt.url)
		}
		if p.err != tt.want {
			t.Errorf("%q: err = %q, want %q", tt.url, p.err, tt.want)
		}
	}
	if fb.saves != 0 {
		t.Errorf("saves = %d, want 0", fb.saves)
	}
}

func TestConfigAddAndRemove(t *testing.T) {
	t.Parallel()
	fb := newFakeBackend(t)
	p := openConfig(t, fb)

	p.Update(keyRunes("a"))
	p.input.SetValue(" https://b.vercel.app ")
	cmd, _ := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p.Update(run(t, cmd))

	if len(p.configs) != 1 || p.configs[0].URL != "https://b.vercel.app" || p.configs[0].ID == "" {
		t.Fatalf("configs = %+v", p.configs)
	}
	if fb.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1 after save", fb.refreshes)
	}

	cmd, _ = p.Update(keyRunes("d"))
	p.Update(run(t, cmd))
	if len(p.configs) != 0 || len(fb.configs) != 0 {
		t.Errorf("configs after remove = %+v / %+v", p.configs, fb.configs)
	}
}

func TestConfigEscape(t *testing.T) {
	t.Parallel()
	p := openConfig(t, newFakeBackend(t))

	p.Update(keyRunes("a"))
	if _, nav := p.Update(tea.KeyMsg{Type: tea.KeyEscape}); nav != nil || p.adding {
		t.Fatalf("escape while adding should close the input only")
	}
	if _, nav := p.Update(tea.KeyMsg{Type: tea.KeyEscape}); nav == nil || nav.PageID != PageDashboard {
		t.Errorf("nav = %+v, want dashboard", nav)
	}
}
