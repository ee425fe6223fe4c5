package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
)

const (
	// busyDelay keeps fast lookups from flashing the spinner.
	busyDelay    = 150 * time.Millisecond
	busyInterval = 100 * time.Millisecond
)

var busyFrames = []string{"|", "/", "-", "\\"}

// busyShowMsg makes the spinner visible if lookup token is still pending.
type busyShowMsg struct{ token int }

// busyTickMsg advances the spinner of lookup token.
type busyTickMsg struct{ token int }

func busyTick(token int) tea.Cmd {
	return tea.Tick(busyInterval, func(time.Time) tea.Msg { return busyTickMsg{token: token} })
}

// renderBusyOverlay returns the one-line indicator composited over the
// output pane while a lookup is running.
func (a *App) renderBusyOverlay(maxWidth int) string {
	text := busyFrames[a.busyFrame%len(busyFrames)] + " " + a.pendingLabel
	return BusyStyle.Render(truncate(text, max(1, maxWidth-2)))
}
