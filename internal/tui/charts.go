package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/vwatch/internal/format"
	"github.com/tinytelemetry/vwatch/internal/metrics"
	"github.com/tinytelemetry/vwatch/internal/model"
)

const chartHeight = 8

type bar struct {
	label string
	value float64
	color lipgloss.Color
}

// drawBars renders bars left-aligned in a width x height canvas, keeping the
// most recent bars when they do not all fit.
func drawBars(bars []bar, width, height, barWidth int) string {
	if width < 4 {
		width = 4
	}
	maxBars := width / (barWidth + 1)
	if maxBars < 1 {
		maxBars = 1
	}
	if len(bars) > maxBars {
		bars = bars[len(bars)-maxBars:]
	}

	bc := barchart.New(width, height,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(barWidth),
		barchart.WithNoAxis(),
	)
	for _, b := range bars {
		style := lipgloss.NewStyle().Foreground(b.color).Background(b.color)
		bc.Push(barchart.BarData{
			Label:  b.label,
			Values: []barchart.BarValue{{Name: b.label, Value: b.value, Style: style}},
		})
	}
	bc.Draw()

	lines := strings.Split(bc.View(), "\n")
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines[:height], "\n")
}

// renderPageViewsChart plots summed page views per day.
func renderPageViewsChart(pal palette, daily []metrics.DailyViews, width int) string {
	inner := width - 4
	style := pal.section

	header := "Page Views"
	if len(daily) == 0 {
		return style.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left,
			pal.title.Render(header),
			pal.muted.Render("No data available"),
		))
	}

	var peak int64
	bars := make([]bar, 0, len(daily))
	for _, d := range daily {
		peak = max(peak, d.PageViews)
		bars = append(bars, bar{label: d.Date, value: float64(d.PageViews), color: ColorBlue})
	}
	right := "Peak: " + format.Number(float64(peak))
	header = spread(header, right, inner)

	barWidth := 1
	if len(daily)*3 <= inner {
		barWidth = 2
	}
	span := fmt.Sprintf("%s → %s", daily[0].Date, daily[len(daily)-1].Date)

	return style.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left,
		pal.title.Render(header),
		drawBars(bars, inner, chartHeight, barWidth),
		pal.muted.Render(span),
	))
}

// renderStatusChart plots the number of projects in each deployment state.
func renderStatusChart(pal palette, statuses []metrics.StatusCount, width int) string {
	inner := width - 4
	bars := make([]bar, 0, len(statuses))
	legend := make([]string, 0, len(statuses))
	for _, s := range statuses {
		bars = append(bars, bar{label: string(s.Status), value: float64(s.Count), color: statusColor(s.Status)})
		legend = append(legend, lipgloss.NewStyle().Foreground(statusColor(s.Status)).
			Render(fmt.Sprintf("%s %d", statusLabel(s.Status), s.Count)))
	}

	barWidth := max(1, min(6, inner/max(1, len(bars))-1))
	return pal.section.Width(width - 2).Render(lipgloss.JoinVertical(lipgloss.Left,
		pal.title.Render("Deployments"),
		drawBars(bars, inner, chartHeight, barWidth),
		strings.Join(legend, "  "),
	))
}

func statusLabel(s model.ProjectStatus) string {
	switch s {
	case model.StatusReady:
		return "Ready"
	case model.StatusBuilding:
		return "Building"
	case model.StatusError:
		return "Error"
	case model.StatusQueued:
		return "Queued"
	}
	return string(s)
}

// spread places left and right at the edges of a width-wide line.
func spread(left, right string, width int) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}
