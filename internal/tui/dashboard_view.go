package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/vwatch/internal/format"
	"github.com/tinytelemetry/vwatch/internal/model"
)

var timeRangeLabels = map[model.TimeRange]string{
	model.RangeToday:     "Today",
	model.RangeYesterday: "Yesterday",
	model.Range7Days:     "Last 7 days",
	model.Range30Days:    "Last 30 days",
	model.RangeCustom:    "Custom range",
}

func (p *DashboardPage) View(width, height int) string {
	if width <= 0 {
		width = 120
	}
	if !p.loaded {
		body := renderLoadingPlaceholder(p.pal, p.now, width, max(1, height-2))
		if p.lastErr != "" {
			body = lipgloss.Place(width, max(1, height-2), lipgloss.Center, lipgloss.Center,
				p.pal.err.Render(p.lastErr))
		}
		return lipgloss.JoinVertical(lipgloss.Left, p.renderHeader(width), body)
	}

	half := width / 2
	sections := []string{
		p.renderHeader(width),
		p.renderCards(width),
		p.renderRealtime(width),
		lipgloss.JoinHorizontal(lipgloss.Top,
			renderPageViewsChart(p.pal, p.report.Daily, half),
			renderStatusChart(p.pal, p.report.Statuses, width-half),
		),
		p.renderProjects(width),
		p.renderStatusLine(width),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (p *DashboardPage) renderHeader(width int) string {
	left := renderBranding(p.pal.bar) + p.pal.bar.Render(" Dashboard")
	label := timeRangeLabels[p.state.Filters.TimeRange]
	if label == "" {
		label = string(p.state.Filters.TimeRange)
	}
	if n := len(p.state.Filters.Projects); n > 0 {
		label += fmt.Sprintf(" • %d project filter", n)
	}
	right := p.pal.bar.Render(label + "  " + p.now.Format("Mon 15:04:05"))
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + p.pal.bar.Render(strings.Repeat(" ", gap)) + right
}

type statCard struct {
	title string
	value string
	hint  string
}

func (p *DashboardPage) cards() []statCard {
	f := p.report.Formatted
	return []statCard{
		{"Total Projects", f["totalProjects"], fmt.Sprintf("avg health %.0f", p.report.Health)},
		{"Active Projects", f["activeProjects"], "status READY"},
		{"Page Views", f["totalPageViews"], timeRangeLabels[p.state.Filters.TimeRange]},
		{"Unique Visitors", f["totalUniqueVisitors"], timeRangeLabels[p.state.Filters.TimeRange]},
		{"Avg Response", f["avgResponseTime"], "across samples"},
		{"Error Rate", f["errorRate"], "realtime"},
	}
}

// renderCards lays out the six stat cards in one row, or in two rows of
// three on narrow terminals.
func (p *DashboardPage) renderCards(width int) string {
	cards := p.cards()
	perRow := len(cards)
	if width < perRow*24 {
		perRow = 3
	}
	cardWidth := max(16, width/perRow-2)

	var rows []string
	for start := 0; start < len(cards); start += perRow {
		end := min(start+perRow, len(cards))
		rendered := make([]string, 0, end-start)
		for _, c := range cards[start:end] {
			rendered = append(rendered, p.pal.card.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left,
				p.pal.muted.Render(c.title),
				p.pal.text.Bold(true).Render(c.value),
				p.pal.muted.Render(c.hint),
			)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (p *DashboardPage) renderRealtime(width int) string {
	rt := p.report.Realtime
	f := p.report.Formatted

	dot := lipgloss.NewStyle().Foreground(ColorGreen).Render("●")
	if p.lastErr != "" {
		dot = lipgloss.NewStyle().Foreground(ColorRed).Render("●")
	}
	header := spread(p.pal.title.Render("Realtime ")+dot,
		p.pal.muted.Render(p.now.Format("15:04:05")), width-4)

	figures := []string{
		"Active users " + p.pal.text.Bold(true).Render(f["activeUsers"]),
		"Page views " + p.pal.text.Bold(true).Render(f["realtimePageViews"]),
		"Errors " + p.pal.text.Bold(true).Render(f["realtimeErrors"]),
		"Avg response " + p.pal.text.Bold(true).Render(format.Milliseconds(rt.AvgResponseTime)),
		p.pal.muted.Render(fmt.Sprintf("%d samples", rt.Samples)),
	}
	return p.pal.section.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		strings.Join(figures, "   "),
	))
}

func (p *DashboardPage) renderProjects(width int) string {
	projects := p.state.Projects
	title := fmt.Sprintf("Projects (%d)", len(projects))
	if n := len(p.state.SelectedProjects); n > 0 {
		title += fmt.Sprintf("  %d selected", n)
	}
	if n := len(p.state.Filters.Projects); n > 0 {
		title += fmt.Sprintf("  filtered to %d", n)
	}
	lines := []string{p.pal.title.Render(title)}
	if len(projects) == 0 {
		lines = append(lines, p.pal.muted.Render("No projects. Press c to add project URLs."))
		return p.pal.section.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	}

	for i, proj := range projects {
		cursor := "  "
		if i == p.cursor {
			cursor = lipgloss.NewStyle().Foreground(ColorBlue).Render("> ")
		}
		mark := "○"
		if slices.Contains(p.state.SelectedProjects, proj.ID) {
			mark = lipgloss.NewStyle().Foreground(ColorBlue).Render("●")
		}
		status := lipgloss.NewStyle().Foreground(statusColor(proj.Status)).
			Render(fmt.Sprintf("%-9s", statusLabel(proj.Status)))
		health := lipgloss.NewStyle().Foreground(healthColor(proj.HealthScore)).
			Render(fmt.Sprintf("%3d", proj.HealthScore))
		name := truncate(proj.Name, 28)
		row := fmt.Sprintf("%s%s %-28s %s %s  %-8s %-5s %s",
			cursor, mark, name, status, health,
			truncate(proj.Framework, 8), proj.Region,
			p.pal.muted.Render(format.RelativeTimeFrom(proj.LastUpdated, p.now)))
		lines = append(lines, row)
	}
	return p.pal.section.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (p *DashboardPage) renderStatusLine(width int) string {
	var left string
	switch {
	case p.refreshing || p.state.Loading.Any():
		left = spinnerFrame(p.now) + " Refreshing"
	case p.lastErr != "":
		left = p.lastErr
	case p.state.Error != "":
		left = p.state.Error
	case !p.lastOK.IsZero():
		left = "Updated " + p.lastOK.Format("15:04:05")
	}
	if p.state.Error != "" || p.lastErr != "" {
		left = p.pal.err.Inherit(p.pal.bar).Render(left)
	} else {
		left = p.pal.bar.Render(left)
	}

	help := helpLine(p.keys.Refresh, p.keys.TimeRange, p.keys.Select, p.keys.FocusSelect,
		p.keys.Settings, p.keys.Config, p.keys.Quit)
	if width < 100 {
		help = helpLine(p.keys.Refresh, p.keys.Settings, p.keys.Config, p.keys.Quit)
	}
	return p.pal.bar.Width(width).Render(spread(left, help, width))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
