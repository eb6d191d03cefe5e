package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/tui-quest/internal/engine"
	"github.com/vovakirdan/tui-quest/internal/player"
)

// viewMsg carries a fresh snapshot into the program.
type viewMsg struct {
	state *player.ViewState
	flags player.RefreshFlags
}

// errorMsg displays a game error until dismissed.
type errorMsg struct {
	text string
}

// messageRequestMsg shows a game message; the reply channel is closed
// when the player dismisses it.
type messageRequestMsg struct {
	text  string
	reply chan struct{}
}

// pictureMsg announces an image the game wants shown.
type pictureMsg struct {
	path string
}

// inputRequestMsg asks the player for a line of text.
type inputRequestMsg struct {
	prompt string
	reply  chan string
}

// menuRequestMsg asks the player to pick a menu entry, -1 to dismiss.
type menuRequestMsg struct {
	items []player.MenuItem
	reply chan int
}

// saveRequestMsg asks the player where to save, "" to cancel.
type saveRequestMsg struct {
	filename string
	reply    chan string
}

// windowMsg toggles one screen region.
type windowMsg struct {
	kind    engine.WindowKind
	visible bool
}

// teaPresenter adapts session callbacks into Bubble Tea messages. The
// blocking callbacks park the dispatcher goroutine on a reply channel
// that the corresponding dialog answers; context cancellation unblocks
// them with a zero reply so a stopping session never hangs on the UI.
type teaPresenter struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

var _ player.Presenter = (*teaPresenter)(nil)

func newTeaPresenter() *teaPresenter {
	return &teaPresenter{}
}

// Bind connects the presenter to a running program's Send. Callbacks
// that fire before Bind degrade to zero replies.
func (p *teaPresenter) Bind(send func(tea.Msg)) {
	p.mu.Lock()
	p.send = send
	p.mu.Unlock()
}

func (p *teaPresenter) post(msg tea.Msg) bool {
	p.mu.Lock()
	send := p.send
	p.mu.Unlock()
	if send == nil {
		return false
	}
	send(msg)
	return true
}

func (p *teaPresenter) RefreshView(state *player.ViewState, flags player.RefreshFlags) {
	p.post(viewMsg{state: state, flags: flags})
}

func (p *teaPresenter) ShowError(ctx context.Context, message string) {
	p.post(errorMsg{text: message})
}

func (p *teaPresenter) ShowMessage(ctx context.Context, text string) {
	reply := make(chan struct{}, 1)
	if !p.post(messageRequestMsg{text: text, reply: reply}) {
		return
	}
	select {
	case <-reply:
	case <-ctx.Done():
	}
}

func (p *teaPresenter) ShowPicture(ctx context.Context, path string) {
	p.post(pictureMsg{path: path})
}

func (p *teaPresenter) ShowInput(ctx context.Context, prompt string) string {
	reply := make(chan string, 1)
	if !p.post(inputRequestMsg{prompt: prompt, reply: reply}) {
		return ""
	}
	select {
	case text := <-reply:
		return text
	case <-ctx.Done():
		return ""
	}
}

func (p *teaPresenter) ShowMenu(ctx context.Context, items []player.MenuItem) int {
	reply := make(chan int, 1)
	if !p.post(menuRequestMsg{items: items, reply: reply}) {
		return -1
	}
	select {
	case index := <-reply:
		return index
	case <-ctx.Done():
		return -1
	}
}

func (p *teaPresenter) ShowSaveDialog(ctx context.Context, filename string) string {
	reply := make(chan string, 1)
	if !p.post(saveRequestMsg{filename: filename, reply: reply}) {
		return ""
	}
	select {
	case path := <-reply:
		return path
	case <-ctx.Done():
		return ""
	}
}

func (p *teaPresenter) ShowWindow(kind engine.WindowKind, visible bool) {
	p.post(windowMsg{kind: kind, visible: visible})
}
