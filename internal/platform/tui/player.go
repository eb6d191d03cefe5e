package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/tui-quest/internal/audio"
	"github.com/vovakirdan/tui-quest/internal/config"
	"github.com/vovakirdan/tui-quest/internal/markup"
	"github.com/vovakirdan/tui-quest/internal/media"
	"github.com/vovakirdan/tui-quest/internal/player"
)

type focusArea int

const (
	focusActions focusArea = iota
	focusObjects
	focusInput
)

const maxNotices = 200

// PlayerModel is the in-game screen. It renders the session's published
// snapshots and translates key presses into session operations; game
// requests arrive as messages injected by the presenter.
type PlayerModel struct {
	sess    *player.Session
	cfg     config.ViewConfig
	tracker *audio.Tracker

	theme Theme
	keys  PlayerKeyMap
	help  help.Model

	state *player.ViewState
	links []markup.Link
	main  viewport.Model
	input textinput.Model

	focus     focusArea
	actCursor int
	objCursor int

	dialog      dialogState
	dialogQueue []tea.Msg

	notices    []string
	lastNotice string
	showLog    bool

	width    int
	height   int
	contentW int
	sideW    int
	ready    bool

	finished bool
	quitting bool
}

// NewPlayerModel creates the in-game screen for an already started
// session. The tracker is optional and only feeds the track display.
func NewPlayerModel(sess *player.Session, cfg config.ViewConfig, tracker *audio.Tracker) PlayerModel {
	ti := textinput.New()
	ti.Placeholder = "type a command"
	ti.CharLimit = 256

	return PlayerModel{
		sess:    sess,
		cfg:     cfg,
		tracker: tracker,
		theme:   DefaultTheme(),
		keys:    DefaultPlayerKeyMap(),
		help:    help.New(),
		state:   sess.View(),
		main:    viewport.New(0, 0),
		input:   ti,
	}
}

// Finished reports that the player left the game screen.
func (m PlayerModel) Finished() bool {
	return m.finished
}

// IsQuitting reports that the player asked to quit the program.
func (m PlayerModel) IsQuitting() bool {
	return m.quitting
}

func (m PlayerModel) Init() tea.Cmd {
	return tickEvery(time.Second)
}

func (m PlayerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case tickMsg:
		return m, tickEvery(time.Second)

	case tea.ResumeMsg:
		m.sess.Resume()
		return m, nil

	case viewMsg:
		return m.handleView(msg), nil

	case errorMsg:
		m = m.notice("error: " + firstLine(msg.text))
		return m.enqueueDialog(msg)

	case messageRequestMsg:
		m = m.notice(firstLine(msg.text))
		return m.enqueueDialog(msg)

	case inputRequestMsg, saveRequestMsg, menuRequestMsg:
		return m.enqueueDialog(msg)

	case pictureMsg:
		note := "picture: " + filepath.Base(msg.path)
		if w, h, _, err := media.ProbeImage(msg.path); err == nil {
			note = fmt.Sprintf("picture: %s (%dx%d)", filepath.Base(msg.path), w, h)
		}
		return m.notice(note), nil

	case windowMsg:
		m.state = m.sess.View()
		return m.resizePanels(), nil
	}

	return m, nil
}

func (m PlayerModel) handleKey(msg tea.KeyMsg) (PlayerModel, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	if m.dialog.active() {
		return m.handleDialogKey(msg)
	}
	if m.showLog {
		switch msg.String() {
		case "esc", "enter", "q":
			m.showLog = false
		}
		if key.Matches(msg, m.keys.Messages) {
			m.showLog = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Focus):
		return m.cycleFocus()

	case key.Matches(msg, m.keys.Save):
		if !m.state.Running {
			return m, nil
		}
		path := m.quicksavePath()
		m.sess.SaveTo(context.Background(), path)
		return m.notice("saved to " + filepath.Base(path)), nil

	case key.Matches(msg, m.keys.Load):
		path := m.quicksavePath()
		if _, err := os.Stat(path); err != nil {
			return m.notice("no quicksave yet"), nil
		}
		m.sess.LoadSave(context.Background(), path)
		return m.notice("quicksave loaded"), nil

	case key.Matches(msg, m.keys.Restart):
		m.sess.RestartGame()
		return m.notice("game restarted"), nil

	case key.Matches(msg, m.keys.Messages):
		m.showLog = true
		return m, nil

	case key.Matches(msg, m.keys.Suspend):
		m.sess.Pause()
		return m, tea.Suspend
	}

	if m.focus == focusInput {
		switch {
		case key.Matches(msg, m.keys.Select):
			text := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if text != "" {
				m.sess.OnUserInput(text)
			}
			return m, nil
		case key.Matches(msg, m.keys.Back):
			m.input.Blur()
			m.focus = focusActions
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Back):
		m.finished = true
		return m, nil

	case key.Matches(msg, m.keys.Up):
		return m.moveCursor(-1), nil

	case key.Matches(msg, m.keys.Down):
		return m.moveCursor(1), nil

	case key.Matches(msg, m.keys.Select):
		switch {
		case m.focus == focusActions && len(m.state.Actions) > 0:
			m.sess.OnActionClicked(m.actCursor)
		case m.focus == focusObjects && len(m.state.Objects) > 0:
			m.sess.OnObjectSelected(m.objCursor)
		}
		return m, nil
	}

	if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
		index := int(s[0] - '1')
		if index < len(m.links) {
			link := m.links[index]
			switch {
			case link.Code != "":
				m.sess.Execute(link.Code)
			case link.URL != "":
				m = m.notice("link: " + link.URL)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.main, cmd = m.main.Update(msg)
	return m, cmd
}

// cycleFocus advances focus to the next visible panel.
func (m PlayerModel) cycleFocus() (PlayerModel, tea.Cmd) {
	order := [...]focusArea{focusActions, focusObjects, focusInput}
	visible := func(f focusArea) bool {
		switch f {
		case focusActions:
			return m.state.ActionsVisible
		case focusObjects:
			return m.state.ObjectsVisible
		case focusInput:
			return m.state.InputVisible
		}
		return false
	}
	cur := 0
	for i, f := range order {
		if f == m.focus {
			cur = i
			break
		}
	}
	prev := m.focus
	for i := 1; i <= len(order); i++ {
		f := order[(cur+i)%len(order)]
		if visible(f) {
			m.focus = f
			break
		}
	}
	if m.focus == focusInput && prev != focusInput {
		return m, m.input.Focus()
	}
	if prev == focusInput && m.focus != focusInput {
		m.input.Blur()
	}
	return m, nil
}

// moveCursor shifts the focused list's cursor; moving the action cursor
// also reports the selection to the game.
func (m PlayerModel) moveCursor(delta int) PlayerModel {
	switch m.focus {
	case focusActions:
		next := m.actCursor + delta
		if next >= 0 && next < len(m.state.Actions) {
			m.actCursor = next
			m.sess.OnActionSelected(next)
		}
	case focusObjects:
		next := m.objCursor + delta
		if next >= 0 && next < len(m.state.Objects) {
			m.objCursor = next
		}
	}
	return m
}

func (m PlayerModel) handleResize(msg tea.WindowSizeMsg) PlayerModel {
	m.width = msg.Width
	m.height = msg.Height
	m.help.Width = msg.Width
	m.ready = true
	return m.resizePanels()
}

func (m PlayerModel) handleView(msg viewMsg) PlayerModel {
	m.state = msg.state
	if msg.flags.UIConfig {
		m.theme = ThemeFromView(msg.state, m.cfg.UseGameColors)
	}
	m = m.resizePanels()
	if msg.flags.MainDesc {
		m.main.GotoTop()
	}
	if m.actCursor >= len(m.state.Actions) {
		m.actCursor = 0
	}
	if m.objCursor >= len(m.state.Objects) {
		m.objCursor = 0
	}
	return m
}

// resizePanels recomputes the layout from the terminal size and the
// current visibility flags, then re-renders the main text for the new
// width.
func (m PlayerModel) resizePanels() PlayerModel {
	if !m.ready {
		return m
	}
	contentW := m.width
	if m.cfg.MaxWidth > 0 && contentW > m.cfg.MaxWidth {
		contentW = m.cfg.MaxWidth
	}
	if contentW < 24 {
		contentW = 24
	}
	m.contentW = contentW

	m.sideW = 0
	if m.state.ObjectsVisible && contentW >= 80 {
		m.sideW = 26
	}

	chrome := 1 // title bar
	if m.state.ActionsVisible {
		chrome += m.actionsHeight()
	}
	if m.sideW == 0 && m.state.ObjectsVisible && len(m.state.Objects) > 0 {
		chrome += m.objectsHeight()
	}
	if m.state.VarsVisible && strings.TrimSpace(m.state.VarsDesc) != "" {
		chrome += m.varsHeight()
	}
	if m.state.InputVisible {
		chrome++
	}
	chrome += 2 // notice and help lines

	mainH := m.height - chrome - 2
	if mainH < 3 {
		mainH = 3
	}
	innerW := contentW - m.sideW - 4
	if innerW < 10 {
		innerW = 10
	}

	m.main.Width = innerW
	m.main.Height = mainH
	m.input.Width = contentW - 6
	return m.renderMain()
}

func (m PlayerModel) renderMain() PlayerModel {
	content, links := RenderDescription(m.state, m.theme, m.main.Width)
	m.links = links
	m.main.SetContent(content)
	return m
}

func (m PlayerModel) actionsHeight() int {
	n := len(m.state.Actions)
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n + 3
}

func (m PlayerModel) objectsHeight() int {
	n := len(m.state.Objects)
	if n > 4 {
		n = 4
	}
	return n + 3
}

func (m PlayerModel) varsHeight() int {
	n := strings.Count(strings.TrimSpace(m.state.VarsDesc), "\n") + 1
	if n > 4 {
		n = 4
	}
	return n + 2
}

func (m PlayerModel) quicksavePath() string {
	return filepath.Join(m.state.GameDir, "saves", "quicksave.sav")
}

// notice records a one-line event in the message log and the status
// line.
func (m PlayerModel) notice(text string) PlayerModel {
	m.lastNotice = text
	m.notices = append(m.notices, time.Now().Format("15:04:05")+"  "+text)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
	return m
}

func (m PlayerModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "\n  Loading..."
	}
	if m.dialog.active() {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.dialogView())
	}
	if m.showLog {
		return m.logView()
	}

	sections := []string{m.titleView()}

	mainPanel := panelBox(m.theme, "", m.main.View(), m.main.Width+2, false)
	if m.sideW > 0 {
		side := panelBox(m.theme, "objects", m.objectsView(m.sideW-6), m.sideW-2, m.focus == focusObjects)
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, mainPanel, side))
	} else {
		sections = append(sections, mainPanel)
		if m.state.ObjectsVisible && len(m.state.Objects) > 0 {
			sections = append(sections, panelBox(m.theme, "objects", m.objectsView(m.contentW-6), m.contentW-2, m.focus == focusObjects))
		}
	}

	if m.state.ActionsVisible {
		sections = append(sections, panelBox(m.theme, "actions", m.actionsView(), m.contentW-2, m.focus == focusActions))
	}
	if m.state.VarsVisible && strings.TrimSpace(m.state.VarsDesc) != "" {
		sections = append(sections, panelBox(m.theme, "status", m.varsView(), m.contentW-2, false))
	}
	if m.state.InputVisible {
		sections = append(sections, m.input.View())
	}

	sections = append(sections, m.theme.Status.Render(truncate(m.lastNotice, m.contentW)))
	sections = append(sections, m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m PlayerModel) titleView() string {
	title := m.state.Title
	if title == "" {
		title = "tui-quest"
	}
	out := m.theme.Title.Render(" " + title)
	if m.tracker == nil {
		return out
	}
	tracks := m.tracker.Tracks()
	if len(tracks) == 0 {
		return out
	}
	note := " ♪ " + filepath.Base(tracks[0].Path)
	if tracks[0].Paused {
		note = " ⏸ " + filepath.Base(tracks[0].Path)
	}
	if len(tracks) > 1 {
		note += fmt.Sprintf(" +%d", len(tracks)-1)
	}
	return out + m.theme.Dim.Render(note)
}

func (m PlayerModel) actionsView() string {
	acts := m.state.Actions
	if len(acts) == 0 {
		return m.theme.Dim.Render("no actions")
	}
	const maxRows = 8
	start := 0
	if m.actCursor >= maxRows {
		start = m.actCursor - maxRows + 1
	}
	end := start + maxRows
	if end > len(acts) {
		end = len(acts)
	}
	var b strings.Builder
	for i := start; i < end; i++ {
		if i > start {
			b.WriteString("\n")
		}
		b.WriteString(listLine(m.theme, i == m.actCursor, m.focus == focusActions, truncate(acts[i].Text, m.contentW-8)))
	}
	return b.String()
}

func (m PlayerModel) objectsView(width int) string {
	objs := m.state.Objects
	if len(objs) == 0 {
		return m.theme.Dim.Render("empty")
	}
	var b strings.Builder
	for i, o := range objs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(listLine(m.theme, i == m.objCursor, m.focus == focusObjects, truncate(o.Text, width)))
	}
	return b.String()
}

func (m PlayerModel) varsView() string {
	text := strings.TrimSpace(m.state.VarsDesc)
	lines := strings.Split(text, "\n")
	if len(lines) > 4 {
		lines = lines[:4]
	}
	return strings.Join(lines, "\n")
}

func (m PlayerModel) logView() string {
	limit := m.height - 5
	if limit < 1 {
		limit = 1
	}
	start := 0
	if len(m.notices) > limit {
		start = len(m.notices) - limit
	}
	var b strings.Builder
	b.WriteString(m.theme.Title.Render(" Messages"))
	b.WriteString("\n\n")
	if len(m.notices) == 0 {
		b.WriteString(m.theme.Dim.Render("nothing yet"))
		b.WriteString("\n")
	}
	for _, n := range m.notices[start:] {
		b.WriteString(n)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.theme.Dim.Render("esc to close"))
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w == 1 {
		return string(r[:1])
	}
	return string(r[:w-1]) + "…"
}
