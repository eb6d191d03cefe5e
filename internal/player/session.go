// Package player hosts a game interpreter behind a single-goroutine
// dispatcher and drives the session lifecycle on top of it: starting
// and restarting games, saving and loading state, the periodic
// counter that runs time-based game logic, and publication of view
// snapshots for the UI.
package player

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-quest/internal/audio"
	"github.com/vovakirdan/tui-quest/internal/engine"
	"github.com/vovakirdan/tui-quest/internal/media"
)

// DefaultTimerInterval is the counter cadence a freshly started game
// runs at until game code changes it.
const DefaultTimerInterval = 500 * time.Millisecond

// Session drives one interpreter instance through its lifecycle. All
// interpreter work funnels through the session's dispatcher; the
// public methods are safe to call from any goroutine and return
// without waiting for the work to run.
type Session struct {
	eng      engine.Engine
	dispatch *Dispatcher
	logger   *log.Logger
	reporter *Reporter
	audio    audio.Player
	media    *media.Resolver

	pmu       sync.Mutex
	presenter Presenter

	// Owned by the dispatcher goroutine.
	view        ViewState
	gameStart   time.Time
	lastMSCount time.Time

	tmu      sync.Mutex
	timer    *time.Timer
	interval time.Duration

	published atomic.Pointer[ViewState]
}

// NewSession wires an interpreter, a logger and an audio player into
// a session. The dispatcher goroutine starts on the first submitted
// operation.
func NewSession(eng engine.Engine, logger *log.Logger, player audio.Player) *Session {
	s := &Session{
		eng:      eng,
		logger:   logger,
		audio:    player,
		media:    media.NewResolver(),
		interval: DefaultTimerInterval,
	}
	s.reporter = NewReporter(logger, s.currentPresenter)
	s.dispatch = NewDispatcher(eng, &bridge{s: s}, logger)
	s.published.Store(&ViewState{})
	return s
}

// AttachPresenter connects the UI. Until a presenter is attached,
// interactive requests degrade to zero replies and errors are only
// logged.
func (s *Session) AttachPresenter(p Presenter) {
	s.pmu.Lock()
	s.presenter = p
	s.pmu.Unlock()
}

// DetachPresenter disconnects the UI.
func (s *Session) DetachPresenter() {
	s.pmu.Lock()
	s.presenter = nil
	s.pmu.Unlock()
}

func (s *Session) currentPresenter() Presenter {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	return s.presenter
}

// View returns the most recently published snapshot. The returned
// value is never mutated afterwards.
func (s *Session) View() *ViewState {
	return s.published.Load()
}

// publish clones the actor-owned view into the shared snapshot slot.
// Dispatcher goroutine only.
func (s *Session) publish() *ViewState {
	st := s.view.Clone()
	s.published.Store(st)
	return st
}

// RunGame starts the game in file, replacing whatever was running.
// Fire-and-forget; progress is observed through published snapshots
// and refresh notifications.
func (s *Session) RunGame(title, dir, file string) {
	s.dispatch.Submit(func(ctx context.Context) {
		s.doRunGame(ctx, title, dir, file)
	})
}

// RestartGame re-runs the current game from its recorded title and
// location, with the same semantics as a fresh start.
func (s *Session) RestartGame() {
	s.dispatch.Submit(func(ctx context.Context) {
		st := s.view
		s.doRunGame(ctx, st.Title, st.GameDir, st.GameFile)
	})
}

func (s *Session) doRunGame(ctx context.Context, title, dir, file string) {
	s.stopCounter()
	s.audio.CloseAll()

	s.view = ViewState{
		Running:        true,
		Title:          title,
		GameDir:        dir,
		GameFile:       file,
		ActionsVisible: true,
		ObjectsVisible: true,
		VarsVisible:    true,
		InputVisible:   true,
	}
	s.media.SetGameDir(dir)
	s.publish()

	data, err := os.ReadFile(file)
	if err != nil {
		s.logger.Error("cannot read game file", "path", file, "error", err)
		return
	}
	if err := s.eng.LoadWorld(ctx, data, file); err != nil {
		s.reporter.Report(ctx, err)
		return
	}

	// The elapsed-time baseline is re-captured exactly once per run.
	s.gameStart = time.Now()
	s.lastMSCount = time.Time{}
	s.setTimerInterval(DefaultTimerInterval)

	if err := s.eng.Restart(ctx); err != nil {
		s.reporter.Report(ctx, err)
	}
	s.scheduleCounter(s.currentInterval())
}

// LoadSave restores interpreter state from a save file. The work is
// affine to the dispatcher goroutine: called from anywhere else it
// re-submits itself exactly once and returns immediately; called from
// inside an interpreter callback it runs directly, since a
// re-submission would collide with the unit already running.
func (s *Session) LoadSave(ctx context.Context, path string) {
	if s.dispatch.OnActor(ctx) {
		s.doLoadSave(ctx, path)
		return
	}
	s.dispatch.Submit(func(ctx context.Context) {
		s.doLoadSave(ctx, path)
	})
}

// SaveTo writes the current interpreter state to path, with the same
// goroutine affinity as LoadSave.
func (s *Session) SaveTo(ctx context.Context, path string) {
	if s.dispatch.OnActor(ctx) {
		s.doSaveTo(ctx, path)
		return
	}
	s.dispatch.Submit(func(ctx context.Context) {
		s.doSaveTo(ctx, path)
	})
}

func (s *Session) doLoadSave(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("cannot read save file", "path", path, "error", err)
		return
	}
	s.stopCounter()
	if err := s.eng.LoadState(ctx, data); err != nil {
		s.reporter.Report(ctx, err)
	}
	s.scheduleCounter(s.currentInterval())
}

func (s *Session) doSaveTo(ctx context.Context, path string) {
	data, err := s.eng.SaveState(ctx)
	if err != nil {
		s.reporter.Report(ctx, err)
		return
	}
	if len(data) == 0 {
		// Nothing to save.
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.logger.Error("cannot create saves directory", "path", path, "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error("cannot write save file", "path", path, "error", err)
	}
}

// Execute runs a raw code fragment.
func (s *Session) Execute(code string) {
	s.dispatch.Submit(func(ctx context.Context) {
		if err := s.eng.Exec(ctx, code); err != nil {
			s.reporter.Report(ctx, err)
		}
	})
}

// OnActionSelected marks the action under the cursor as selected
// without running it.
func (s *Session) OnActionSelected(index int) {
	s.dispatch.Submit(func(ctx context.Context) {
		if err := s.eng.SelectAction(ctx, index); err != nil {
			s.reporter.Report(ctx, err)
		}
	})
}

// OnActionClicked selects the action and runs its code, as two
// sequential interpreter calls in one unit of work. Both calls are
// attempted and their failures reported independently.
func (s *Session) OnActionClicked(index int) {
	s.dispatch.Submit(func(ctx context.Context) {
		if err := s.eng.SelectAction(ctx, index); err != nil {
			s.reporter.Report(ctx, err)
		}
		if err := s.eng.ExecSelAction(ctx); err != nil {
			s.reporter.Report(ctx, err)
		}
	})
}

// OnObjectSelected reports the object the player highlighted.
func (s *Session) OnObjectSelected(index int) {
	s.dispatch.Submit(func(ctx context.Context) {
		if err := s.eng.SelectObject(ctx, index); err != nil {
			s.reporter.Report(ctx, err)
		}
	})
}

// OnUserInput feeds a line from the input area into the game and runs
// its input handler. Both calls are attempted.
func (s *Session) OnUserInput(text string) {
	s.dispatch.Submit(func(ctx context.Context) {
		if err := s.eng.SetInputText(ctx, text); err != nil {
			s.reporter.Report(ctx, err)
		}
		if err := s.eng.ExecUserInput(ctx); err != nil {
			s.reporter.Report(ctx, err)
		}
	})
}

// Pause suspends the counter and audio, keeping game state intact.
func (s *Session) Pause() {
	s.stopCounter()
	s.audio.PauseAll()
}

// Resume undoes Pause.
func (s *Session) Resume() {
	s.audio.ResumeAll()
	if s.View().Running {
		s.scheduleCounter(s.currentInterval())
	}
}

// Stop shuts the session down: no further work is accepted, the
// current unit finishes, the interpreter is closed. Blocks until the
// dispatcher goroutine has terminated.
func (s *Session) Stop() {
	s.stopCounter()
	s.audio.CloseAll()
	s.dispatch.Stop()
}

func (s *Session) currentInterval() time.Duration {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	return s.interval
}

func (s *Session) setTimerInterval(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.tmu.Lock()
	s.interval = d
	s.tmu.Unlock()
}

func (s *Session) scheduleCounter(d time.Duration) {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, s.counterTick)
}

func (s *Session) stopCounter() {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// counterTick fires off the timer goroutine. A tick that finds the
// dispatcher busy is dropped, but the cadence survives: the timer is
// re-armed so the counter runs on the next free slot.
func (s *Session) counterTick() {
	if s.dispatch.Submit(s.counterUnit) {
		return
	}
	if s.dispatch.Stopping() {
		return
	}
	s.scheduleCounter(s.currentInterval())
}

// counterUnit runs the game's periodic logic and reschedules itself.
// The interval is re-read here, at the end of the turn, so a SetTimer
// issued during this very call changes the next delay, never the one
// that just elapsed.
func (s *Session) counterUnit(ctx context.Context) {
	if err := s.eng.ExecCounter(ctx); err != nil {
		s.reporter.Report(ctx, err)
	}
	s.scheduleCounter(s.currentInterval())
}

func (s *Session) intVar(name string) int {
	num, _, err := s.eng.VarValues(name, 0)
	if err != nil {
		return 0
	}
	return num
}

// readUIConfig pulls the interpreter's UI variables into the view.
// Dispatcher goroutine only.
func (s *Session) readUIConfig() {
	s.view.UseHTML = s.intVar(engine.VarUseHTML) != 0
	s.view.FontSize = s.intVar(engine.VarFontSize)
	s.view.BackColor = s.intVar(engine.VarBackColor)
	s.view.FontColor = s.intVar(engine.VarFontColor)
	s.view.LinkColor = s.intVar(engine.VarLinkColor)
}
