package tui

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinnerFrame picks a frame from the wall clock so it animates on re-render.
func spinnerFrame(now time.Time) string {
	return spinnerFrames[now.UnixMilli()/120%int64(len(spinnerFrames))]
}

// renderLoadingPlaceholder renders an animated loading indicator.
func renderLoadingPlaceholder(p palette, now time.Time, width, height int) string {
	text := p.muted.Italic(true).Render(spinnerFrame(now) + " Loading...")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, text)
}
