package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type dialogKind int

const (
	dialogNone dialogKind = iota
	dialogError
	dialogMessage
	dialogInput
	dialogMenu
	dialogSave
)

// dialogState is the one modal the player screen shows at a time.
// Blocking game requests serialize on the dispatcher goroutine, so at
// most one of them is ever pending; errors and messages raised earlier
// in the same unit of work wait in the model's dialog queue.
type dialogState struct {
	kind   dialogKind
	title  string
	text   string
	input  textinput.Model
	items  []string
	cursor int

	ack      chan struct{}
	replyStr chan string
	replyInt chan int
}

func (d dialogState) active() bool {
	return d.kind != dialogNone
}

// enqueueDialog opens the dialog for msg, or parks it until the
// current one closes.
func (m PlayerModel) enqueueDialog(msg tea.Msg) (PlayerModel, tea.Cmd) {
	if m.dialog.active() {
		m.dialogQueue = append(m.dialogQueue, msg)
		return m, nil
	}
	return m.openDialog(msg)
}

func (m PlayerModel) openDialog(msg tea.Msg) (PlayerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case errorMsg:
		m.dialog = dialogState{kind: dialogError, title: "Error", text: msg.text}
	case messageRequestMsg:
		title := "Message"
		if m.state != nil && m.state.Title != "" {
			title = m.state.Title
		}
		m.dialog = dialogState{kind: dialogMessage, title: title, text: msg.text, ack: msg.reply}
	case inputRequestMsg:
		ti := textinput.New()
		ti.CharLimit = 256
		cmd := ti.Focus()
		m.dialog = dialogState{kind: dialogInput, title: "Input", text: msg.prompt, input: ti, replyStr: msg.reply}
		return m, cmd
	case saveRequestMsg:
		ti := textinput.New()
		ti.CharLimit = 256
		ti.SetValue(msg.filename)
		ti.CursorEnd()
		cmd := ti.Focus()
		m.dialog = dialogState{kind: dialogSave, title: "Save game", text: "File name:", input: ti, replyStr: msg.reply}
		return m, cmd
	case menuRequestMsg:
		items := make([]string, len(msg.items))
		for i, it := range msg.items {
			items[i] = it.Name
		}
		m.dialog = dialogState{kind: dialogMenu, items: items, replyInt: msg.reply}
	}
	return m, nil
}

// closeDialog clears the modal and opens the next queued one, if any.
func (m PlayerModel) closeDialog() (PlayerModel, tea.Cmd) {
	m.dialog = dialogState{}
	if len(m.dialogQueue) == 0 {
		return m, nil
	}
	next := m.dialogQueue[0]
	m.dialogQueue = m.dialogQueue[1:]
	return m.openDialog(next)
}

// handleDialogKey routes a key press into the active modal.
func (m PlayerModel) handleDialogKey(msg tea.KeyMsg) (PlayerModel, tea.Cmd) {
	switch m.dialog.kind {
	case dialogError, dialogMessage:
		switch msg.String() {
		case "enter", "esc", " ":
			if m.dialog.ack != nil {
				close(m.dialog.ack)
			}
			return m.closeDialog()
		}
		return m, nil

	case dialogInput, dialogSave:
		switch msg.String() {
		case "enter":
			m.dialog.replyStr <- m.dialog.input.Value()
			return m.closeDialog()
		case "esc":
			m.dialog.replyStr <- ""
			return m.closeDialog()
		}
		var cmd tea.Cmd
		m.dialog.input, cmd = m.dialog.input.Update(msg)
		return m, cmd

	case dialogMenu:
		switch msg.String() {
		case "up", "k":
			if m.dialog.cursor > 0 {
				m.dialog.cursor--
			}
		case "down", "j":
			if m.dialog.cursor < len(m.dialog.items)-1 {
				m.dialog.cursor++
			}
		case "enter":
			m.dialog.replyInt <- m.dialog.cursor
			return m.closeDialog()
		case "esc":
			m.dialog.replyInt <- -1
			return m.closeDialog()
		}
		return m, nil
	}
	return m, nil
}

// dialogView renders the active modal as a bordered box.
func (m PlayerModel) dialogView() string {
	width := m.width - 12
	if width > 60 {
		width = 60
	}
	if width < 20 {
		width = 20
	}

	var b strings.Builder
	switch m.dialog.kind {
	case dialogError:
		b.WriteString(m.theme.Error.Render(m.dialog.title))
		b.WriteString("\n\n")
		b.WriteString(m.dialog.text)
		b.WriteString("\n\n")
		b.WriteString(m.theme.Dim.Render("enter to dismiss"))
	case dialogMessage:
		if m.dialog.title != "" {
			b.WriteString(m.theme.Title.Render(m.dialog.title))
			b.WriteString("\n\n")
		}
		b.WriteString(m.dialog.text)
		b.WriteString("\n\n")
		b.WriteString(m.theme.Dim.Render("enter to continue"))
	case dialogInput, dialogSave:
		b.WriteString(m.theme.Title.Render(m.dialog.title))
		b.WriteString("\n\n")
		if m.dialog.text != "" {
			b.WriteString(m.dialog.text)
			b.WriteString("\n")
		}
		b.WriteString(m.dialog.input.View())
		b.WriteString("\n\n")
		b.WriteString(m.theme.Dim.Render("enter to confirm, esc to cancel"))
	case dialogMenu:
		b.WriteString(m.theme.Title.Render("Choose"))
		b.WriteString("\n\n")
		for i, item := range m.dialog.items {
			b.WriteString(listLine(m.theme, i == m.dialog.cursor, true, item))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(m.theme.Dim.Render("enter to pick, esc to dismiss"))
	default:
		return ""
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Focused.GetForeground()).
		Padding(1, 2).
		Width(width).
		Render(b.String())
	return box
}
