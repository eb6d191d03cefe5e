package player

import "github.com/vovakirdan/tui-quest/internal/engine"

// MenuItem is one entry of the popup menu a game builds through the
// menu callbacks.
type MenuItem struct {
	Name string
	Icon string
}

// RefreshFlags says which view categories a refresh actually changed,
// in the order the interpreter reports them.
type RefreshFlags struct {
	UIConfig bool
	MainDesc bool
	Actions  bool
	Objects  bool
	VarsDesc bool
}

// Any reports whether at least one category changed.
func (f RefreshFlags) Any() bool {
	return f.UIConfig || f.MainDesc || f.Actions || f.Objects || f.VarsDesc
}

// ViewState is the host-visible projection of a running game. It is
// owned by the session's dispatcher goroutine: only that goroutine
// mutates it, and everyone else reads the immutable snapshots the
// session publishes at refresh boundaries.
type ViewState struct {
	Running  bool
	Title    string
	GameDir  string
	GameFile string

	MainDesc string
	VarsDesc string
	Actions  []engine.ListItem
	Objects  []engine.ListItem

	MenuItems []MenuItem

	UseHTML   bool
	FontSize  int
	BackColor int
	FontColor int
	LinkColor int

	ActionsVisible bool
	ObjectsVisible bool
	VarsVisible    bool
	InputVisible   bool
}

// Clone returns a deep copy safe to hand to other goroutines.
func (v *ViewState) Clone() *ViewState {
	out := *v
	out.Actions = append([]engine.ListItem(nil), v.Actions...)
	out.Objects = append([]engine.ListItem(nil), v.Objects...)
	out.MenuItems = append([]MenuItem(nil), v.MenuItems...)
	return &out
}
