package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-quest/internal/audio"
	"github.com/vovakirdan/tui-quest/internal/config"
	"github.com/vovakirdan/tui-quest/internal/engine"
	"github.com/vovakirdan/tui-quest/internal/engine/script"
	"github.com/vovakirdan/tui-quest/internal/player"
	"github.com/vovakirdan/tui-quest/internal/storage"
)

// AppOptions wires everything the terminal UI needs.
type AppOptions struct {
	Config    *config.Config
	Store     *storage.Store // nil when the database is unavailable
	Logger    *log.Logger
	Presenter *teaPresenter

	// StartFile skips the library and plays this game file directly;
	// leaving the game then quits the program.
	StartFile string

	// OnSession reports the session owning the running game, or nil
	// once it stopped. The SSH server uses it to shut down games left
	// behind by dropped connections.
	OnSession func(*player.Session)
}

type appMode int

const (
	modeLibrary appMode = iota
	modeGame
)

// playEntryMsg asks the app to start a library entry.
type playEntryMsg struct {
	entry LibraryEntry
}

// AppModel owns the screen flow: the game library and, while a game
// runs, the player screen on top of its session.
type AppModel struct {
	opts AppOptions

	mode    appMode
	library LibraryModel
	game    PlayerModel

	sess    *player.Session
	tracker *audio.Tracker
	gameID  string
	started time.Time

	width    int
	height   int
	quitting bool
}

// NewAppModel builds the app starting at the library screen.
func NewAppModel(opts AppOptions) AppModel {
	return AppModel{
		opts:    opts,
		library: NewLibraryModel(opts.Store, demoEntry(opts.Config, opts.Logger)),
	}
}

// demoEntry materializes the embedded demo story under the games
// directory so there is always something to play.
func demoEntry(cfg *config.Config, logger *log.Logger) *LibraryEntry {
	dir := filepath.Join(config.ExpandPath(cfg.Library.GamesDir), "demo")
	file := filepath.Join(dir, script.DemoFileName)
	if _, err := os.Stat(file); err != nil {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Warn("cannot create demo directory", "path", dir, "error", err)
			return nil
		}
		if err := os.WriteFile(file, script.DemoStory(), 0o644); err != nil {
			logger.Warn("cannot write demo story", "path", file, "error", err)
			return nil
		}
	}
	return &LibraryEntry{ID: "demo", Title: "The Cellar Lamp", Dir: dir, File: file, Demo: true}
}

func (m AppModel) Init() tea.Cmd {
	if m.opts.StartFile == "" {
		return nil
	}
	file := m.opts.StartFile
	return func() tea.Msg {
		title := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		return playEntryMsg{entry: LibraryEntry{
			Title: title,
			Dir:   filepath.Dir(file),
			File:  file,
		}}
	}
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case playEntryMsg:
		return m.startGame(msg.entry)
	}

	switch m.mode {
	case modeGame:
		next, cmd := m.game.Update(msg)
		m.game = next.(PlayerModel)
		if m.game.IsQuitting() {
			m = m.leaveGame()
			m.quitting = true
			return m, cmd
		}
		if m.game.Finished() {
			m = m.leaveGame()
			if m.opts.StartFile != "" {
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}
		return m, cmd

	default:
		next, cmd := m.library.Update(msg)
		m.library = next.(LibraryModel)
		if m.library.IsQuitting() {
			m.quitting = true
			return m, cmd
		}
		var sel *LibraryEntry
		m.library, sel = m.library.TakeSelection()
		if sel != nil {
			model, startCmd := m.startGame(*sel)
			return model, tea.Batch(cmd, startCmd)
		}
		return m, cmd
	}
}

// startGame spins up a session for the entry and switches to the
// player screen.
func (m AppModel) startGame(entry LibraryEntry) (AppModel, tea.Cmd) {
	backend, ok := engine.ForFile(entry.File)
	if !ok {
		m.opts.Logger.Error("no interpreter claims this game file", "file", entry.File)
		m.library.loadErr = fmt.Errorf("no interpreter for %s", filepath.Base(entry.File))
		return m, nil
	}

	tracker := audio.NewTracker()
	tracker.SetEnabled(m.opts.Config.Audio.Enabled)

	sess := player.NewSession(backend.Factory(), m.opts.Logger, tracker)
	sess.AttachPresenter(m.opts.Presenter)
	sess.RunGame(entry.Title, entry.Dir, entry.File)

	m.sess = sess
	m.tracker = tracker
	m.gameID = entry.ID
	m.started = time.Now()
	if m.opts.OnSession != nil {
		m.opts.OnSession(sess)
	}

	m.game = NewPlayerModel(sess, m.opts.Config.View, tracker)
	m.mode = modeGame

	var sizeCmd tea.Cmd
	if m.width > 0 {
		next, cmd := m.game.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		m.game = next.(PlayerModel)
		sizeCmd = cmd
	}
	return m, tea.Batch(m.game.Init(), sizeCmd)
}

// leaveGame stops the session, records the play and returns to the
// library. The presenter detaches first so work still draining cannot
// post to the discarded player screen.
func (m AppModel) leaveGame() AppModel {
	if m.sess != nil {
		m.sess.DetachPresenter()
		m.sess.Stop()
		if m.opts.OnSession != nil {
			m.opts.OnSession(nil)
		}
		if m.opts.Store != nil && m.gameID != "" {
			seconds := int(time.Since(m.started).Seconds())
			if _, err := m.opts.Store.RecordPlay(m.gameID, seconds); err != nil {
				m.opts.Logger.Warn("cannot record play", "game", m.gameID, "error", err)
			}
		}
	}
	m.sess = nil
	m.tracker = nil
	m.gameID = ""
	m.mode = modeLibrary
	m.library = m.library.refresh()
	return m
}

func (m AppModel) View() string {
	if m.quitting {
		return ""
	}
	if m.mode == modeGame {
		return m.game.View()
	}
	return m.library.View()
}

// RunApp runs the terminal UI in the current terminal and blocks until
// the player quits.
func RunApp(opts AppOptions) error {
	if opts.Presenter == nil {
		opts.Presenter = newTeaPresenter()
	}
	model := NewAppModel(opts)
	p := tea.NewProgram(model, tea.WithAltScreen())
	opts.Presenter.Bind(p.Send)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running player: %w", err)
	}
	return nil
}
