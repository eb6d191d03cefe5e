package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/tui-quest/internal/markup"
	"github.com/vovakirdan/tui-quest/internal/player"
)

// Theme holds the resolved lipgloss styles for the player screen.
type Theme struct {
	Text     lipgloss.Style
	Title    lipgloss.Style
	Border   lipgloss.Style
	Focused  lipgloss.Style
	Selected lipgloss.Style
	Dim      lipgloss.Style
	Link     lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
}

// DefaultTheme returns the styles used before a game overrides any colors.
func DefaultTheme() Theme {
	return Theme{
		Text:     lipgloss.NewStyle(),
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")),
		Border:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Focused:  lipgloss.NewStyle().Foreground(lipgloss.Color("229")),
		Selected: lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Bold(true),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Link:     lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Underline(true),
		Status:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
}

// ThemeFromView layers a game's color settings on top of the default
// theme. Zero means the game left the color alone.
func ThemeFromView(state *player.ViewState, useGameColors bool) Theme {
	th := DefaultTheme()
	if state == nil || !useGameColors {
		return th
	}
	if state.FontColor != 0 {
		th.Text = th.Text.Foreground(lipgloss.Color(ColorHex(state.FontColor)))
	}
	if state.BackColor != 0 {
		th.Text = th.Text.Background(lipgloss.Color(ColorHex(state.BackColor)))
	}
	if state.LinkColor != 0 {
		th.Link = th.Link.Foreground(lipgloss.Color(ColorHex(state.LinkColor)))
	}
	return th
}

// ColorHex converts a game color integer to a #rrggbb string. Games use
// the Windows COLORREF byte order, red in the low byte.
func ColorHex(c int) string {
	c &= 0xFFFFFF
	r := c & 0xFF
	g := (c >> 8) & 0xFF
	b := (c >> 16) & 0xFF
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// RenderDescription prepares the main description for display. Games
// that use markup get their tags stripped and their links numbered so
// the player can trigger them with digit keys.
func RenderDescription(state *player.ViewState, th Theme, width int) (string, []markup.Link) {
	if state == nil {
		return "", nil
	}
	text := state.MainDesc
	var links []markup.Link
	if state.UseHTML {
		doc := markup.Parse(text)
		text = doc.Text
		links = doc.Links
	}
	var b strings.Builder
	b.WriteString(text)
	for i, l := range links {
		if i == 0 {
			b.WriteString("\n")
		}
		label := l.Text
		if label == "" {
			label = l.URL
		}
		b.WriteString("\n")
		b.WriteString(th.Link.Render(fmt.Sprintf("[%d] %s", i+1, label)))
	}
	wrapped := lipgloss.NewStyle().Width(width).Render(b.String())
	return wrapped, links
}

// listLine renders one row of the action or object lists.
func listLine(th Theme, cursor bool, focused bool, label string) string {
	prefix := "  "
	if cursor {
		prefix = "> "
	}
	line := prefix + label
	switch {
	case cursor && focused:
		return th.Selected.Render(line)
	case cursor:
		return th.Focused.Render(line)
	default:
		return line
	}
}

// panelBox draws a bordered panel with a title line above the content.
func panelBox(th Theme, title, content string, width int, focused bool) string {
	border := th.Border
	if focused {
		border = th.Focused
	}
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border.GetForeground()).
		Padding(0, 1).
		Width(width)
	body := content
	if title != "" {
		label := th.Dim.Render(title)
		if focused {
			label = th.Focused.Render(title)
		}
		body = label + "\n" + content
	}
	return style.Render(body)
}
