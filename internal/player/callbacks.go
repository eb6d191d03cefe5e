package player

import (
	"context"
	"os"
	"time"

	"github.com/vovakirdan/tui-quest/internal/engine"
	"github.com/vovakirdan/tui-quest/internal/markup"
)

// bridge implements engine.Host on top of a session. The interpreter
// calls these from inside an engine call, so every method runs nested
// on the dispatcher goroutine and may touch the actor-owned view
// directly.
type bridge struct {
	s *Session
}

// Refresh pulls the categories the interpreter flagged changed,
// overwrites only those in the view, publishes a snapshot and hands
// it to the presenter. Unflagged categories are left untouched.
func (b *bridge) Refresh(ctx context.Context) {
	s := b.s
	var flags RefreshFlags
	if s.eng.UIConfigChanged() {
		s.readUIConfig()
		flags.UIConfig = true
	}
	if s.eng.MainDescChanged() {
		s.view.MainDesc = s.eng.MainDesc()
		flags.MainDesc = true
	}
	if s.eng.ActionsChanged() {
		s.view.Actions = plainItems(s.eng.Actions(), s.view.UseHTML)
		flags.Actions = true
	}
	if s.eng.ObjectsChanged() {
		s.view.Objects = plainItems(s.eng.Objects(), s.view.UseHTML)
		flags.Objects = true
	}
	if s.eng.VarsDescChanged() {
		s.view.VarsDesc = s.eng.VarsDesc()
		flags.VarsDesc = true
	}
	st := s.publish()
	if p := s.currentPresenter(); p != nil {
		p.RefreshView(st, flags)
	}
}

// plainItems removes markup from list labels when the game writes
// them as HTML; action and object rows render plain text only.
func plainItems(items []engine.ListItem, useHTML bool) []engine.ListItem {
	if !useHTML {
		return items
	}
	out := make([]engine.ListItem, len(items))
	for i, it := range items {
		it.Text = markup.StripTags(it.Text)
		out[i] = it
	}
	return out
}

func (b *bridge) ShowMessage(ctx context.Context, text string) {
	if p := b.s.currentPresenter(); p != nil {
		p.ShowMessage(ctx, text)
	}
}

func (b *bridge) ShowPicture(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if p := b.s.currentPresenter(); p != nil {
		p.ShowPicture(ctx, b.s.media.Resolve(path))
	}
}

func (b *bridge) ShowWindow(ctx context.Context, kind engine.WindowKind, visible bool) {
	s := b.s
	switch kind {
	case engine.WindowActions:
		s.view.ActionsVisible = visible
	case engine.WindowObjects:
		s.view.ObjectsVisible = visible
	case engine.WindowVars:
		s.view.VarsVisible = visible
	case engine.WindowInput:
		s.view.InputVisible = visible
	}
	s.publish()
	if p := s.currentPresenter(); p != nil {
		p.ShowWindow(kind, visible)
	}
}

func (b *bridge) AddMenuItem(ctx context.Context, name, icon string) {
	b.s.view.MenuItems = append(b.s.view.MenuItems, MenuItem{Name: name, Icon: icon})
}

func (b *bridge) DeleteMenu(ctx context.Context) {
	b.s.view.MenuItems = nil
}

// ShowMenu presents the accumulated menu and blocks until the player
// picks or dismisses. A pick is reported back into the interpreter
// before the callback returns.
func (b *bridge) ShowMenu(ctx context.Context) {
	s := b.s
	p := s.currentPresenter()
	if p == nil || len(s.view.MenuItems) == 0 {
		return
	}
	items := append([]MenuItem(nil), s.view.MenuItems...)
	index := p.ShowMenu(ctx, items)
	if index >= 0 && index < len(items) {
		if err := s.eng.SelectMenuItem(ctx, index); err != nil {
			s.reporter.Report(ctx, err)
		}
	}
}

func (b *bridge) Input(ctx context.Context, prompt string) string {
	if p := b.s.currentPresenter(); p != nil {
		return p.ShowInput(ctx, prompt)
	}
	return ""
}

// SetTimer records the new counter interval. The delay already
// pending stays as scheduled; the new value is picked up when the
// counter next reschedules itself.
func (b *bridge) SetTimer(ctx context.Context, interval time.Duration) {
	b.s.setTimerInterval(interval)
}

// MSCount returns whole milliseconds elapsed since the previous
// MSCount call, or since the game started for the first call after a
// (re)start. Never negative.
func (b *bridge) MSCount(ctx context.Context) int {
	s := b.s
	now := time.Now()
	last := s.lastMSCount
	if last.IsZero() {
		last = s.gameStart
	}
	if last.IsZero() {
		last = now
	}
	s.lastMSCount = now
	d := now.Sub(last)
	if d < 0 {
		d = 0
	}
	return int(d / time.Millisecond)
}

// Wait suspends the dispatcher goroutine, and with it all game
// execution, for the duration. An interrupted wait is logged and
// swallowed; execution resumes as if it completed.
func (b *bridge) Wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		b.s.logger.Debug("wait interrupted", "remaining", d)
	}
}

func (b *bridge) PlayFile(ctx context.Context, path string, volume int) {
	if path == "" {
		return
	}
	b.s.audio.Play(b.s.media.Resolve(path), volume)
}

func (b *bridge) IsPlayingFile(ctx context.Context, path string) bool {
	if path == "" {
		return false
	}
	return b.s.audio.IsPlaying(b.s.media.Resolve(path))
}

func (b *bridge) CloseFile(ctx context.Context, path string) {
	if path == "" {
		b.s.audio.CloseAll()
		return
	}
	b.s.audio.Close(b.s.media.Resolve(path))
}

func (b *bridge) FileContents(ctx context.Context, path string) []byte {
	if path == "" {
		return nil
	}
	full := b.s.media.Resolve(path)
	data, err := os.ReadFile(full)
	if err != nil {
		b.s.logger.Error("cannot read game file", "path", full, "error", err)
		return nil
	}
	return data
}

// OpenGame loads a saved state by name from the game's saves
// directory. Runs inside an engine call, so the load executes
// directly on this goroutine instead of being re-submitted.
func (b *bridge) OpenGame(ctx context.Context, filename string) {
	s := b.s
	if filename == "" {
		return
	}
	full := s.media.Resolve("saves/" + filename)
	if _, err := os.Stat(full); err != nil {
		s.logger.Error("save file not found", "file", filename)
		return
	}
	s.LoadSave(ctx, full)
}

// SaveGame asks the player where to save and writes the state there.
func (b *bridge) SaveGame(ctx context.Context, filename string) {
	s := b.s
	p := s.currentPresenter()
	if p == nil {
		return
	}
	path := p.ShowSaveDialog(ctx, filename)
	if path == "" {
		return
	}
	s.SaveTo(ctx, path)
}

// ChangeQuestDir moves the game's working directory. A missing
// directory is logged and ignored.
func (b *bridge) ChangeQuestDir(ctx context.Context, path string) {
	s := b.s
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		s.logger.Error("quest directory not found", "dir", path)
		return
	}
	if s.view.GameDir == path {
		return
	}
	s.view.GameDir = path
	s.media.SetGameDir(path)
	s.publish()
}
