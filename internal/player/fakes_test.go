package player

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-quest/internal/audio"
	"github.com/vovakirdan/tui-quest/internal/engine"
)

// fakeEngine is a scriptable interpreter double. It records every
// call, serves canned projection data, and can fail or block specific
// calls. Hooks run inside the corresponding call, on the dispatcher
// goroutine, and receive the host so tests can drive callbacks.
type fakeEngine struct {
	mu    sync.Mutex
	calls []string

	host engine.Host

	initErr      error
	loadWorldErr error
	restartErr   error
	execErr      error
	counterErr   error
	selActionErr error
	execSelErr   error
	selObjectErr error
	selMenuErr   error
	setInputErr  error
	execInputErr error
	saveErr      error
	loadStateErr error

	// Closed by the test to release a blocked call.
	blockExec    chan struct{}
	blockCounter chan struct{}

	onExec      func(ctx context.Context, host engine.Host)
	onCounter   func(ctx context.Context, host engine.Host)
	onLoadState func(ctx context.Context, host engine.Host, data []byte)

	mainDesc    string
	varsDesc    string
	actions     []engine.ListItem
	objects     []engine.ListItem
	changedMain bool
	changedVars bool
	changedActs bool
	changedObjs bool
	changedUI   bool
	vars        map[string]int

	savePayload  []byte
	world        []byte
	worldPath    string
	state        []byte
	counterTimes []time.Time
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{vars: make(map[string]int)}
}

func (f *fakeEngine) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeEngine) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeEngine) callNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeEngine) Init(host engine.Host) error {
	f.record("init")
	f.host = host
	return f.initErr
}

func (f *fakeEngine) Close() error {
	f.record("close")
	return nil
}

func (f *fakeEngine) LoadWorld(ctx context.Context, data []byte, path string) error {
	f.record("loadworld")
	f.mu.Lock()
	f.world = append([]byte(nil), data...)
	f.worldPath = path
	f.mu.Unlock()
	return f.loadWorldErr
}

func (f *fakeEngine) Restart(ctx context.Context) error {
	f.record("restart")
	return f.restartErr
}

func (f *fakeEngine) Exec(ctx context.Context, code string) error {
	f.record("exec")
	if f.blockExec != nil {
		<-f.blockExec
	}
	if f.onExec != nil {
		f.onExec(ctx, f.host)
	}
	return f.execErr
}

func (f *fakeEngine) ExecCounter(ctx context.Context) error {
	f.mu.Lock()
	f.counterTimes = append(f.counterTimes, time.Now())
	f.mu.Unlock()
	f.record("counter")
	if f.blockCounter != nil {
		<-f.blockCounter
	}
	if f.onCounter != nil {
		f.onCounter(ctx, f.host)
	}
	return f.counterErr
}

func (f *fakeEngine) ExecUserInput(ctx context.Context) error {
	f.record("execinput")
	return f.execInputErr
}

func (f *fakeEngine) SetInputText(ctx context.Context, text string) error {
	f.record("setinput:" + text)
	return f.setInputErr
}

func (f *fakeEngine) SelectAction(ctx context.Context, index int) error {
	f.record(fmt.Sprintf("selact:%d", index))
	return f.selActionErr
}

func (f *fakeEngine) ExecSelAction(ctx context.Context) error {
	f.record("execsel")
	return f.execSelErr
}

func (f *fakeEngine) SelectObject(ctx context.Context, index int) error {
	f.record(fmt.Sprintf("selobj:%d", index))
	return f.selObjectErr
}

func (f *fakeEngine) SelectMenuItem(ctx context.Context, index int) error {
	f.record(fmt.Sprintf("selmenu:%d", index))
	return f.selMenuErr
}

func (f *fakeEngine) MainDesc() string      { f.mu.Lock(); defer f.mu.Unlock(); return f.mainDesc }
func (f *fakeEngine) MainDescChanged() bool { f.mu.Lock(); defer f.mu.Unlock(); return f.changedMain }
func (f *fakeEngine) VarsDesc() string      { f.mu.Lock(); defer f.mu.Unlock(); return f.varsDesc }
func (f *fakeEngine) VarsDescChanged() bool { f.mu.Lock(); defer f.mu.Unlock(); return f.changedVars }
func (f *fakeEngine) ActionsChanged() bool  { f.mu.Lock(); defer f.mu.Unlock(); return f.changedActs }
func (f *fakeEngine) ObjectsChanged() bool  { f.mu.Lock(); defer f.mu.Unlock(); return f.changedObjs }
func (f *fakeEngine) UIConfigChanged() bool { f.mu.Lock(); defer f.mu.Unlock(); return f.changedUI }

func (f *fakeEngine) Actions() []engine.ListItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.ListItem(nil), f.actions...)
}

func (f *fakeEngine) Objects() []engine.ListItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.ListItem(nil), f.objects...)
}

func (f *fakeEngine) VarValues(name string, index int) (int, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vars[name], "", nil
}

func (f *fakeEngine) SaveState(ctx context.Context) ([]byte, error) {
	f.record("save")
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	return append([]byte(nil), f.savePayload...), nil
}

func (f *fakeEngine) LoadState(ctx context.Context, data []byte) error {
	f.record("loadstate")
	f.mu.Lock()
	f.state = append([]byte(nil), data...)
	f.mu.Unlock()
	if f.onLoadState != nil {
		f.onLoadState(ctx, f.host, data)
	}
	return f.loadStateErr
}

type refreshRecord struct {
	state *ViewState
	flags RefreshFlags
}

// fakePresenter records everything the session surfaces and answers
// interactive requests with canned replies.
type fakePresenter struct {
	mu        sync.Mutex
	refreshes []refreshRecord
	errors    []string
	messages  []string
	pictures  []string
	menus     [][]MenuItem
	prompts   []string
	saveNames []string
	windows   []engine.WindowKind

	inputReply string
	menuReply  int
	saveReply  string
}

func newFakePresenter() *fakePresenter {
	return &fakePresenter{menuReply: -1}
}

func (p *fakePresenter) RefreshView(state *ViewState, flags RefreshFlags) {
	p.mu.Lock()
	p.refreshes = append(p.refreshes, refreshRecord{state: state, flags: flags})
	p.mu.Unlock()
}

func (p *fakePresenter) ShowError(ctx context.Context, message string) {
	p.mu.Lock()
	p.errors = append(p.errors, message)
	p.mu.Unlock()
}

func (p *fakePresenter) ShowMessage(ctx context.Context, text string) {
	p.mu.Lock()
	p.messages = append(p.messages, text)
	p.mu.Unlock()
}

func (p *fakePresenter) ShowPicture(ctx context.Context, path string) {
	p.mu.Lock()
	p.pictures = append(p.pictures, path)
	p.mu.Unlock()
}

func (p *fakePresenter) ShowInput(ctx context.Context, prompt string) string {
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	reply := p.inputReply
	p.mu.Unlock()
	return reply
}

func (p *fakePresenter) ShowMenu(ctx context.Context, items []MenuItem) int {
	p.mu.Lock()
	p.menus = append(p.menus, items)
	reply := p.menuReply
	p.mu.Unlock()
	return reply
}

func (p *fakePresenter) ShowSaveDialog(ctx context.Context, filename string) string {
	p.mu.Lock()
	p.saveNames = append(p.saveNames, filename)
	reply := p.saveReply
	p.mu.Unlock()
	return reply
}

func (p *fakePresenter) ShowWindow(kind engine.WindowKind, visible bool) {
	p.mu.Lock()
	p.windows = append(p.windows, kind)
	p.mu.Unlock()
}

func (p *fakePresenter) errorCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.errors)
}

func (p *fakePresenter) refreshCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.refreshes)
}

func (p *fakePresenter) lastRefresh() (refreshRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.refreshes) == 0 {
		return refreshRecord{}, false
	}
	return p.refreshes[len(p.refreshes)-1], true
}

func newTestSession(fe *fakeEngine) (*Session, *fakePresenter) {
	s := NewSession(fe, log.New(io.Discard), audio.NewTracker())
	p := newFakePresenter()
	s.AttachPresenter(p)
	return s, p
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

// drain submits an empty unit and waits for it to run, proving every
// previously accepted unit has finished.
func drain(t *testing.T, s *Session) {
	t.Helper()
	done := make(chan struct{})
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s.dispatch.Submit(func(context.Context) { close(done) }) {
			select {
			case <-done:
				return
			case <-time.After(3 * time.Second):
				t.Fatalf("drain unit did not run")
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("dispatcher stayed busy")
}
