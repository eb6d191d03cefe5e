// Package engine defines the boundary between the player and a game
// interpreter: the calls the player makes into it, and the host
// callbacks it makes back during those calls. Interpreters are opaque
// to the rest of the player; backends register themselves so the
// platform can pick one by game file extension.
package engine

import (
	"context"
	"time"
)

// ListItem is one entry of the actions or objects list: display text
// plus an optional icon path relative to the game directory.
type ListItem struct {
	Text string
	Icon string
}

// WindowKind identifies a togglable region of the player screen.
type WindowKind int

const (
	WindowActions WindowKind = iota
	WindowObjects
	WindowVars
	WindowInput
)

// Names of the interpreter variables that carry UI configuration.
// The host reads these on every refresh to pick up styling changes.
const (
	VarUseHTML   = "USEHTML"
	VarFontSize  = "FSIZE"
	VarBackColor = "BCOLOR"
	VarFontColor = "FCOLOR"
	VarLinkColor = "LCOLOR"
)

// Engine is a loaded game interpreter.
//
// Implementations are stateful, not reentrant and not safe for
// concurrent use: every method must be called from the single
// goroutine that owns the instance. The player dispatcher provides
// that goroutine; nothing else may touch an Engine.
//
// Calls that fail game-side return an *Error; transport and I/O
// problems return plain errors. The changed flags report mutations
// accumulated since the start of the current top-level call, so
// inside a Host.Refresh callback they describe exactly what that
// call touched.
type Engine interface {
	// Init prepares the interpreter and binds the host callbacks.
	// Called once, before any other method.
	Init(host Host) error
	// Close releases the interpreter. No calls may follow.
	Close() error

	// LoadWorld loads a game world from its raw file contents. path
	// is the file the bytes came from, for backends that resolve
	// resources relative to it.
	LoadWorld(ctx context.Context, data []byte, path string) error
	// Restart resets the loaded world to its initial state.
	Restart(ctx context.Context) error

	// Exec runs a raw code fragment.
	Exec(ctx context.Context, code string) error
	// ExecCounter runs the game's periodic counter handler.
	ExecCounter(ctx context.Context) error
	// ExecUserInput runs the game's input handler against the text
	// set by SetInputText.
	ExecUserInput(ctx context.Context) error
	SetInputText(ctx context.Context, text string) error

	// SelectAction marks the action at index as selected without
	// running it; ExecSelAction runs the selected action's code.
	SelectAction(ctx context.Context, index int) error
	ExecSelAction(ctx context.Context) error
	SelectObject(ctx context.Context, index int) error
	// SelectMenuItem reports the player's pick for the menu currently
	// presented through Host.ShowMenu.
	SelectMenuItem(ctx context.Context, index int) error

	// Pull accessors for the host-visible projection.
	MainDesc() string
	MainDescChanged() bool
	VarsDesc() string
	VarsDescChanged() bool
	Actions() []ListItem
	ActionsChanged() bool
	Objects() []ListItem
	ObjectsChanged() bool
	// UIConfigChanged reports whether any of the UI configuration
	// variables (Var* names above) were assigned.
	UIConfigChanged() bool
	// VarValues reads an interpreter variable by name and index.
	VarValues(name string, index int) (num int, text string, err error)

	// SaveState serializes the current game state. A nil payload with
	// a nil error means there is nothing to save.
	SaveState(ctx context.Context) ([]byte, error)
	// LoadState restores a state produced by SaveState.
	LoadState(ctx context.Context, data []byte) error
}

// Host is the callback surface an interpreter calls into during any
// Engine call. All methods run on the dispatcher goroutine, nested
// inside the call that triggered them, never concurrently. The
// context is the one passed to the triggering call; blocking methods
// return early with zero values when it is cancelled.
type Host interface {
	// Refresh tells the host that interpreter state changed. The host
	// pulls the changed categories and republishes its view.
	Refresh(ctx context.Context)

	ShowMessage(ctx context.Context, text string)
	ShowPicture(ctx context.Context, path string)
	ShowWindow(ctx context.Context, kind WindowKind, visible bool)

	// AddMenuItem and DeleteMenu build up the popup menu; ShowMenu
	// presents it and blocks until the player chooses or dismisses.
	// A choice is reported back through Engine.SelectMenuItem before
	// ShowMenu returns.
	AddMenuItem(ctx context.Context, name, icon string)
	DeleteMenu(ctx context.Context)
	ShowMenu(ctx context.Context)

	// Input asks the player for a line of text and blocks until
	// answered. The reply becomes the interpreter's next input value.
	Input(ctx context.Context, prompt string) string

	// SetTimer changes the counter interval. Takes effect at the next
	// reschedule, never the delay already pending.
	SetTimer(ctx context.Context, interval time.Duration)
	// MSCount returns milliseconds elapsed since the previous MSCount
	// call, or since the session started for the first call after a
	// game start. Never negative.
	MSCount(ctx context.Context) int
	// Wait suspends game execution for the duration.
	Wait(ctx context.Context, d time.Duration)

	PlayFile(ctx context.Context, path string, volume int)
	IsPlayingFile(ctx context.Context, path string) bool
	CloseFile(ctx context.Context, path string)

	// FileContents returns the contents of a file inside the game
	// directory, or nil when it cannot be read.
	FileContents(ctx context.Context, path string) []byte
	// OpenGame loads a saved state by name from the game's saves
	// directory; SaveGame asks the player where to save, suggesting
	// the given filename.
	OpenGame(ctx context.Context, filename string)
	SaveGame(ctx context.Context, filename string)
	// ChangeQuestDir moves the game's working directory.
	ChangeQuestDir(ctx context.Context, path string)
}
