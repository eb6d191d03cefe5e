package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// tickMsg drives periodic redraws of live elements like the playing
// track display.
type tickMsg time.Time

// tickEvery emits one tickMsg after d; the receiver re-arms it.
func tickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
