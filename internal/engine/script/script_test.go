package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/tui-quest/internal/engine"
)

type testHost struct {
	eng engine.Engine

	refreshes   int
	messages    []string
	pictures    []string
	prompts     []string
	menuItems   []string
	menuDeletes int
	menuReply   int
	inputReply  string
	timer       time.Duration
	waited      []time.Duration
	windows     map[engine.WindowKind]bool
	played      []string
	playing     map[string]bool
	closed      []string
	msCount     int
	files       map[string][]byte
	savedAs     []string
	openedAs    []string
	dirs        []string
}

func newTestHost() *testHost {
	return &testHost{
		menuReply: -1,
		windows:   make(map[engine.WindowKind]bool),
		playing:   make(map[string]bool),
		files:     make(map[string][]byte),
	}
}

func (h *testHost) Refresh(ctx context.Context) { h.refreshes++ }

func (h *testHost) ShowMessage(ctx context.Context, text string) {
	h.messages = append(h.messages, text)
}

func (h *testHost) ShowPicture(ctx context.Context, path string) {
	h.pictures = append(h.pictures, path)
}

func (h *testHost) ShowWindow(ctx context.Context, kind engine.WindowKind, visible bool) {
	h.windows[kind] = visible
}

func (h *testHost) AddMenuItem(ctx context.Context, name, icon string) {
	h.menuItems = append(h.menuItems, name)
}

func (h *testHost) DeleteMenu(ctx context.Context) {
	h.menuDeletes++
	h.menuItems = nil
}

func (h *testHost) ShowMenu(ctx context.Context) {
	if h.menuReply >= 0 && h.eng != nil {
		h.eng.SelectMenuItem(ctx, h.menuReply)
	}
}

func (h *testHost) Input(ctx context.Context, prompt string) string {
	h.prompts = append(h.prompts, prompt)
	return h.inputReply
}

func (h *testHost) SetTimer(ctx context.Context, interval time.Duration) { h.timer = interval }

func (h *testHost) MSCount(ctx context.Context) int { return h.msCount }

func (h *testHost) Wait(ctx context.Context, d time.Duration) { h.waited = append(h.waited, d) }

func (h *testHost) PlayFile(ctx context.Context, path string, volume int) {
	h.played = append(h.played, fmt.Sprintf("%s#%d", path, volume))
	h.playing[path] = true
}

func (h *testHost) IsPlayingFile(ctx context.Context, path string) bool { return h.playing[path] }

func (h *testHost) CloseFile(ctx context.Context, path string) { h.closed = append(h.closed, path) }

func (h *testHost) FileContents(ctx context.Context, path string) []byte { return h.files[path] }

func (h *testHost) OpenGame(ctx context.Context, filename string) {
	h.openedAs = append(h.openedAs, filename)
}

func (h *testHost) SaveGame(ctx context.Context, filename string) {
	h.savedAs = append(h.savedAs, filename)
}

func (h *testHost) ChangeQuestDir(ctx context.Context, path string) { h.dirs = append(h.dirs, path) }

func loadStory(t *testing.T, src string) (*Engine, *testHost) {
	t.Helper()

	eng := New()
	host := newTestHost()
	host.eng = eng
	if err := eng.Init(host); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if err := eng.LoadWorld(context.Background(), []byte(src), "test.story"); err != nil {
		t.Fatalf("LoadWorld() failed: %v", err)
	}
	if err := eng.Restart(context.Background()); err != nil {
		t.Fatalf("Restart() failed: %v", err)
	}

	return eng, host
}

func mustExec(t *testing.T, eng *Engine, code string) {
	t.Helper()
	if err := eng.Exec(context.Background(), code); err != nil {
		t.Fatalf("Exec(%q) failed: %v", code, err)
	}
}

func numVar(t *testing.T, eng *Engine, name string) int {
	t.Helper()
	n, _, err := eng.VarValues(name, 0)
	if err != nil {
		t.Fatalf("VarValues(%q) failed: %v", name, err)
	}
	return n
}

const tinyStory = `
title: tiny
start: one
status: |
  HP: ${hp}
vars:
  hp: 10
locations:
  - name: one
    desc: |
      First room.
    actions:
      - text: Wave
        script: |
          say You wave.
      - text: Secret door
        if: found_door
        script: |
          goto two
  - name: two
    desc: |
      Second room.
`

func TestRestartEntersStartLocation(t *testing.T) {
	eng, host := loadStory(t, tinyStory)

	if got := eng.MainDesc(); got != "First room." {
		t.Errorf("Expected start description, got %q", got)
	}
	if !eng.MainDescChanged() || !eng.ActionsChanged() || !eng.ObjectsChanged() || !eng.UIConfigChanged() {
		t.Error("Expected all change flags set after restart")
	}
	if eng.VarsDesc() != "HP: 10" {
		t.Errorf("Expected rendered status, got %q", eng.VarsDesc())
	}
	if host.refreshes != 1 {
		t.Errorf("Expected 1 refresh after restart, got %d", host.refreshes)
	}

	actions := eng.Actions()
	if len(actions) != 1 || actions[0].Text != "Wave" {
		t.Errorf("Expected only the unconditional action, got %+v", actions)
	}
}

func TestActionConditionUnlocks(t *testing.T) {
	eng, _ := loadStory(t, tinyStory)

	mustExec(t, eng, "set found_door = 1")

	if !eng.ActionsChanged() {
		t.Error("Expected actions change after the condition flipped")
	}
	actions := eng.Actions()
	if len(actions) != 2 {
		t.Fatalf("Expected 2 actions, got %+v", actions)
	}
	if actions[1].Text != "Secret door" {
		t.Errorf("Expected unlocked action, got %q", actions[1].Text)
	}
}

func TestSelectedActionRuns(t *testing.T) {
	eng, _ := loadStory(t, tinyStory)

	ctx := context.Background()
	if err := eng.SelectAction(ctx, 0); err != nil {
		t.Fatalf("SelectAction() failed: %v", err)
	}
	if err := eng.ExecSelAction(ctx); err != nil {
		t.Fatalf("ExecSelAction() failed: %v", err)
	}

	if got := eng.MainDesc(); got != "First room.\nYou wave." {
		t.Errorf("Expected appended line, got %q", got)
	}
}

func TestSelectActionOutOfRange(t *testing.T) {
	eng, _ := loadStory(t, tinyStory)

	err := eng.SelectAction(context.Background(), 5)
	var gameErr *engine.Error
	if !errors.As(err, &gameErr) {
		t.Fatalf("Expected engine.Error, got %v", err)
	}
}

func TestGotoReplacesScene(t *testing.T) {
	eng, host := loadStory(t, tinyStory)
	before := host.refreshes

	mustExec(t, eng, "goto two")

	if got := eng.MainDesc(); got != "Second room." {
		t.Errorf("Expected second room description, got %q", got)
	}
	if !eng.MainDescChanged() {
		t.Error("Expected main description change flag")
	}
	if host.refreshes != before+1 {
		t.Errorf("Expected one refresh, got %d", host.refreshes-before)
	}
}

func TestStatusTemplateTracksVars(t *testing.T) {
	eng, _ := loadStory(t, tinyStory)

	mustExec(t, eng, "add hp -3")

	if !eng.VarsDescChanged() {
		t.Error("Expected vars panel change flag")
	}
	if eng.VarsDesc() != "HP: 7" {
		t.Errorf("Expected updated status, got %q", eng.VarsDesc())
	}

	// Touching unrelated vars leaves the panel alone
	mustExec(t, eng, "set mood = grim")
	if eng.VarsDescChanged() {
		t.Error("Expected no vars panel change for unrelated assignment")
	}
}

func TestUIConfigAssignmentFlagged(t *testing.T) {
	eng, _ := loadStory(t, tinyStory)

	mustExec(t, eng, "set USEHTML = 1")

	if !eng.UIConfigChanged() {
		t.Error("Expected UI config change flag")
	}
	if numVar(t, eng, "USEHTML") != 1 {
		t.Error("Expected USEHTML to be 1")
	}

	mustExec(t, eng, "say nothing ui here")
	if eng.UIConfigChanged() {
		t.Error("Expected UI config flag cleared on the next call")
	}
}

func TestUnknownCommandReturnsGameError(t *testing.T) {
	eng, _ := loadStory(t, tinyStory)

	err := eng.Exec(context.Background(), "say fine\nfrobnicate the lamp")
	var gameErr *engine.Error
	if !errors.As(err, &gameErr) {
		t.Fatalf("Expected engine.Error, got %v", err)
	}
	if gameErr.Location != "one" {
		t.Errorf("Expected location 'one', got %q", gameErr.Location)
	}
	if gameErr.Line != 2 {
		t.Errorf("Expected line 2, got %d", gameErr.Line)
	}
	if gameErr.Code != errUnknownCommand {
		t.Errorf("Expected code %d, got %d", errUnknownCommand, gameErr.Code)
	}

	// The lines before the failure still took effect
	if !strings.HasSuffix(eng.MainDesc(), "fine") {
		t.Errorf("Expected text before the error kept, got %q", eng.MainDesc())
	}
}

const menuStory = `
title: menus
start: hall
menus:
  doors:
    - text: Left door
      script: |
        set picked = 1
    - text: Right door
      script: |
        set picked = 2
locations:
  - name: hall
    desc: |
      A hall with two doors.
`

func TestMenuCommandFlow(t *testing.T) {
	eng, host := loadStory(t, menuStory)
	host.menuReply = 1

	mustExec(t, eng, "menu doors")

	if numVar(t, eng, "picked") != 2 {
		t.Errorf("Expected right door script to run, got picked=%d", numVar(t, eng, "picked"))
	}
	if numVar(t, eng, "choice") != 1 {
		t.Errorf("Expected choice=1, got %d", numVar(t, eng, "choice"))
	}
	if host.menuDeletes != 1 {
		t.Errorf("Expected menu deleted after showing, got %d deletes", host.menuDeletes)
	}
}

func TestMenuDismissedRunsNothing(t *testing.T) {
	eng, host := loadStory(t, menuStory)
	host.menuReply = -1

	mustExec(t, eng, "menu doors")

	if numVar(t, eng, "picked") != 0 {
		t.Error("Expected no menu script to run on dismissal")
	}
	if numVar(t, eng, "choice") != -1 {
		t.Errorf("Expected choice=-1 on dismissal, got %d", numVar(t, eng, "choice"))
	}
}

func TestUnknownMenuIsGameError(t *testing.T) {
	eng, _ := loadStory(t, menuStory)

	err := eng.Exec(context.Background(), "menu windows")
	var gameErr *engine.Error
	if !errors.As(err, &gameErr) || gameErr.Code != errUnknownMenu {
		t.Fatalf("Expected unknown menu error, got %v", err)
	}
}

const objectStory = `
title: objects
start: shed
icons:
  spade: pics/spade.png
on-object: |
  say You inspect the ${selobj}.
locations:
  - name: shed
    desc: |
      A cluttered shed.
`

func TestInventoryAddRemove(t *testing.T) {
	eng, _ := loadStory(t, objectStory)

	mustExec(t, eng, "obj add spade")
	if !eng.ObjectsChanged() {
		t.Error("Expected objects change flag after add")
	}
	objs := eng.Objects()
	if len(objs) != 1 || objs[0].Text != "spade" || objs[0].Icon != "pics/spade.png" {
		t.Errorf("Expected spade with icon, got %+v", objs)
	}

	mustExec(t, eng, "obj del spade")
	if len(eng.Objects()) != 0 {
		t.Error("Expected inventory emptied")
	}
	if !eng.ObjectsChanged() {
		t.Error("Expected objects change flag after del")
	}
}

func TestSelectObjectRunsHandler(t *testing.T) {
	eng, _ := loadStory(t, objectStory)
	mustExec(t, eng, "obj add spade")

	if err := eng.SelectObject(context.Background(), 0); err != nil {
		t.Fatalf("SelectObject() failed: %v", err)
	}
	if !strings.HasSuffix(eng.MainDesc(), "You inspect the spade.") {
		t.Errorf("Expected handler output, got %q", eng.MainDesc())
	}
}

const inputStory = `
title: inputs
start: gate
on-input: |
  say The gatekeeper repeats: ${input}
locations:
  - name: gate
    desc: |
      A gate.
`

func TestInputCommandStoresReply(t *testing.T) {
	eng, host := loadStory(t, inputStory)
	host.inputReply = "Pike"

	mustExec(t, eng, "input name Who goes there?")

	if len(host.prompts) != 1 || host.prompts[0] != "Who goes there?" {
		t.Errorf("Expected prompt shown, got %+v", host.prompts)
	}
	_, text, err := eng.VarValues("name", 0)
	if err != nil {
		t.Fatalf("VarValues() failed: %v", err)
	}
	if text != "Pike" {
		t.Errorf("Expected reply stored, got %q", text)
	}
}

func TestUserInputHandler(t *testing.T) {
	eng, _ := loadStory(t, inputStory)

	ctx := context.Background()
	if err := eng.SetInputText(ctx, "open sesame"); err != nil {
		t.Fatalf("SetInputText() failed: %v", err)
	}
	if err := eng.ExecUserInput(ctx); err != nil {
		t.Fatalf("ExecUserInput() failed: %v", err)
	}

	if !strings.HasSuffix(eng.MainDesc(), "The gatekeeper repeats: open sesame") {
		t.Errorf("Expected input echoed, got %q", eng.MainDesc())
	}
}

const tickStory = `
title: ticks
start: field
tick: |
  add story_ticks 1
locations:
  - name: field
    desc: |
      A field.
  - name: mill
    desc: |
      A mill.
    tick: |
      add mill_ticks 1
`

func TestCounterUsesLocationOverride(t *testing.T) {
	eng, _ := loadStory(t, tickStory)
	ctx := context.Background()

	if err := eng.ExecCounter(ctx); err != nil {
		t.Fatalf("ExecCounter() failed: %v", err)
	}
	if numVar(t, eng, "story_ticks") != 1 {
		t.Error("Expected story-level tick to run")
	}

	mustExec(t, eng, "goto mill")
	if err := eng.ExecCounter(ctx); err != nil {
		t.Fatalf("ExecCounter() failed: %v", err)
	}
	if numVar(t, eng, "mill_ticks") != 1 {
		t.Error("Expected location tick to run")
	}
	if numVar(t, eng, "story_ticks") != 1 {
		t.Error("Expected location tick to override the story tick")
	}
}

const hostStory = `
title: host
start: lab
locations:
  - name: lab
    desc: |
      A lab.
`

func TestHostPassThroughCommands(t *testing.T) {
	eng, host := loadStory(t, hostStory)
	host.msCount = 1234

	mustExec(t, eng, `
		timer 250
		wait 40
		play music/theme.mp3 60
		stop music/theme.mp3
		pic pics/chart.png
		window objects hide
		msg Ready.
		chdir part2
		savegame auto.sav
		opengame auto.sav
		elapsed delta
	`)

	if host.timer != 250*time.Millisecond {
		t.Errorf("Expected 250ms timer, got %v", host.timer)
	}
	if len(host.waited) != 1 || host.waited[0] != 40*time.Millisecond {
		t.Errorf("Expected 40ms wait, got %+v", host.waited)
	}
	if len(host.played) != 1 || host.played[0] != "music/theme.mp3#60" {
		t.Errorf("Expected track played at volume 60, got %+v", host.played)
	}
	if len(host.closed) != 1 || host.closed[0] != "music/theme.mp3" {
		t.Errorf("Expected track closed, got %+v", host.closed)
	}
	if len(host.pictures) != 1 || host.pictures[0] != "pics/chart.png" {
		t.Errorf("Expected picture shown, got %+v", host.pictures)
	}
	if visible, ok := host.windows[engine.WindowObjects]; !ok || visible {
		t.Error("Expected objects window hidden")
	}
	if len(host.messages) != 1 || host.messages[0] != "Ready." {
		t.Errorf("Expected message shown, got %+v", host.messages)
	}
	if len(host.dirs) != 1 || host.dirs[0] != "part2" {
		t.Errorf("Expected quest dir change, got %+v", host.dirs)
	}
	if len(host.savedAs) != 1 || host.savedAs[0] != "auto.sav" {
		t.Errorf("Expected save request, got %+v", host.savedAs)
	}
	if len(host.openedAs) != 1 || host.openedAs[0] != "auto.sav" {
		t.Errorf("Expected open request, got %+v", host.openedAs)
	}
	if numVar(t, eng, "delta") != 1234 {
		t.Errorf("Expected elapsed stored, got %d", numVar(t, eng, "delta"))
	}
}

func TestPlayLeavesRunningTrackAlone(t *testing.T) {
	eng, host := loadStory(t, hostStory)

	mustExec(t, eng, "play music/a.mp3")
	mustExec(t, eng, "play music/a.mp3")
	if len(host.played) != 1 {
		t.Errorf("Expected one play without explicit volume, got %+v", host.played)
	}

	mustExec(t, eng, "play music/a.mp3 30")
	if len(host.played) != 2 {
		t.Errorf("Expected explicit volume to re-play, got %+v", host.played)
	}
}

func TestIncludeRunsExternalScript(t *testing.T) {
	eng, host := loadStory(t, hostStory)
	host.files["extra.qs"] = []byte("set x = 7")

	mustExec(t, eng, "include extra.qs")

	if numVar(t, eng, "x") != 7 {
		t.Errorf("Expected included script to run, got x=%d", numVar(t, eng, "x"))
	}

	err := eng.Exec(context.Background(), "include missing.qs")
	var gameErr *engine.Error
	if !errors.As(err, &gameErr) || gameErr.Code != errMissingFile {
		t.Fatalf("Expected missing file error, got %v", err)
	}
}

func TestIfComparisons(t *testing.T) {
	eng, _ := loadStory(t, hostStory)
	mustExec(t, eng, "set hp = 5\nset name = Pike")

	tests := []struct {
		cond string
		want bool
	}{
		{"hp = 5", true},
		{"hp != 5", false},
		{"hp < 6", true},
		{"hp > 5", false},
		{"hp <= 5", true},
		{"hp >= 6", false},
		{"hp", true},
		{"missing", false},
		{"name = Pike", true},
		{"name != Pike", false},
	}

	for i, tt := range tests {
		probe := fmt.Sprintf("probe%d", i)
		mustExec(t, eng, fmt.Sprintf("if %s then set %s = 1", tt.cond, probe))
		got := numVar(t, eng, probe) == 1
		if got != tt.want {
			t.Errorf("if %q = %v, want %v", tt.cond, got, tt.want)
		}
	}
}

const saveStory = `
title: savetest
start: one
locations:
  - name: one
    desc: |
      One.
  - name: two
    desc: |
      Two.
`

func TestSaveLoadRoundTrip(t *testing.T) {
	eng, _ := loadStory(t, saveStory)
	ctx := context.Background()

	mustExec(t, eng, "set hp = 5\nobj add coin\ngoto two\nsay A coin glints.")

	data, err := eng.SaveState(ctx)
	if err != nil {
		t.Fatalf("SaveState() failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Expected save payload")
	}

	other, otherHost := loadStory(t, saveStory)
	if err := other.LoadState(ctx, data); err != nil {
		t.Fatalf("LoadState() failed: %v", err)
	}

	if got := other.MainDesc(); got != "Two.\nA coin glints." {
		t.Errorf("Expected restored scene, got %q", got)
	}
	if numVar(t, other, "hp") != 5 {
		t.Errorf("Expected hp restored, got %d", numVar(t, other, "hp"))
	}
	objs := other.Objects()
	if len(objs) != 1 || objs[0].Text != "coin" {
		t.Errorf("Expected coin restored, got %+v", objs)
	}
	if !other.MainDescChanged() || !other.ObjectsChanged() || !other.UIConfigChanged() {
		t.Error("Expected change flags set after load")
	}
	if otherHost.refreshes < 2 {
		t.Errorf("Expected refresh after load, got %d", otherHost.refreshes)
	}
}

func TestSaveStateBeforeStartIsEmpty(t *testing.T) {
	eng := New()
	host := newTestHost()
	host.eng = eng
	if err := eng.Init(host); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if err := eng.LoadWorld(context.Background(), []byte(saveStory), "test.story"); err != nil {
		t.Fatalf("LoadWorld() failed: %v", err)
	}

	data, err := eng.SaveState(context.Background())
	if err != nil {
		t.Fatalf("SaveState() failed: %v", err)
	}
	if data != nil {
		t.Errorf("Expected nothing to save before the first location, got %d bytes", len(data))
	}
}

func TestLoadStateRejectsForeignSave(t *testing.T) {
	eng, _ := loadStory(t, saveStory)

	err := eng.LoadState(context.Background(), []byte("title: other\nlocation: one\n"))
	var gameErr *engine.Error
	if !errors.As(err, &gameErr) || gameErr.Code != errBadSaveData {
		t.Fatalf("Expected bad save error, got %v", err)
	}
}

func TestLoadWorldRejectsBrokenStory(t *testing.T) {
	eng := New()
	if err := eng.Init(newTestHost()); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	err := eng.LoadWorld(context.Background(), []byte("start: nowhere\nlocations:\n  - name: somewhere\n"), "broken.story")
	var gameErr *engine.Error
	if !errors.As(err, &gameErr) || gameErr.Code != errBadWorld {
		t.Fatalf("Expected bad world error, got %v", err)
	}
}

const cycleStory = `
title: cycle
start: a
locations:
  - name: a
    script: |
      goto b
  - name: b
    script: |
      goto a
`

func TestGotoCycleCapped(t *testing.T) {
	eng := New()
	host := newTestHost()
	host.eng = eng
	if err := eng.Init(host); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if err := eng.LoadWorld(context.Background(), []byte(cycleStory), "cycle.story"); err != nil {
		t.Fatalf("LoadWorld() failed: %v", err)
	}

	err := eng.Restart(context.Background())
	var gameErr *engine.Error
	if !errors.As(err, &gameErr) || gameErr.Code != errTooDeep {
		t.Fatalf("Expected recursion cap error, got %v", err)
	}
}

func TestDemoStoryPlaysThrough(t *testing.T) {
	eng, host := loadStory(t, string(DemoStory()))
	ctx := context.Background()

	runAction := func(text string) {
		t.Helper()
		for i, a := range eng.Actions() {
			if a.Text == text {
				if err := eng.SelectAction(ctx, i); err != nil {
					t.Fatalf("SelectAction(%q) failed: %v", text, err)
				}
				if err := eng.ExecSelAction(ctx); err != nil {
					t.Fatalf("ExecSelAction(%q) failed: %v", text, err)
				}
				return
			}
		}
		t.Fatalf("Action %q not offered, have %+v", text, eng.Actions())
	}

	if host.timer != time.Second {
		t.Errorf("Expected entry script to set a 1s timer, got %v", host.timer)
	}

	runAction("Strike a match")
	runAction("Take the lamp")
	runAction("Light the lamp")
	runAction("Climb the stairs")

	if len(host.messages) == 0 {
		t.Fatal("Expected a message after reaching the kitchen")
	}
	if numVar(t, eng, "matches") != 2 {
		t.Errorf("Expected 2 matches left, got %d", numVar(t, eng, "matches"))
	}
	if eng.VarsDesc() != "Matches left: 2" {
		t.Errorf("Expected status panel update, got %q", eng.VarsDesc())
	}

	// The kitchen menu leads back down
	host.menuReply = 0
	runAction("Where next?")
	if !strings.HasPrefix(eng.MainDesc(), "Darkness.") {
		t.Errorf("Expected to be back in the cellar, got %q", eng.MainDesc())
	}
}
