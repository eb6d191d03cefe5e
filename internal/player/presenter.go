package player

import (
	"context"

	"github.com/vovakirdan/tui-quest/internal/engine"
)

// Presenter is the UI side of a session. RefreshView delivers a fresh
// snapshot after every refresh; the Show* methods service the game's
// interactive requests.
//
// All methods are called from the session's dispatcher goroutine. The
// blocking ones (ShowMessage, ShowInput, ShowMenu, ShowSaveDialog)
// suspend game execution until the player responds; they must return
// early with a zero value when ctx is cancelled.
type Presenter interface {
	// RefreshView hands over the latest published snapshot together
	// with the categories this refresh changed.
	RefreshView(state *ViewState, flags RefreshFlags)

	// ShowError displays a game error until dismissed.
	ShowError(ctx context.Context, message string)
	// ShowMessage displays a game message and blocks until dismissed.
	ShowMessage(ctx context.Context, text string)
	// ShowPicture displays an image from the game directory.
	ShowPicture(ctx context.Context, path string)
	// ShowInput asks for a line of text and blocks until answered.
	ShowInput(ctx context.Context, prompt string) string
	// ShowMenu presents the popup menu and blocks until the player
	// picks an index, or returns -1 when dismissed.
	ShowMenu(ctx context.Context, items []MenuItem) int
	// ShowSaveDialog asks where to save, suggesting filename, and
	// returns the chosen path or "" when cancelled.
	ShowSaveDialog(ctx context.Context, filename string) string
	// ShowWindow toggles visibility of one player screen region.
	ShowWindow(kind engine.WindowKind, visible bool)
}
