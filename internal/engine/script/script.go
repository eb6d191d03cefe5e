// Package script is the built-in story backend: a small YAML game
// format with a line-oriented command language. It exists so the
// player runs games out of the box, and it exercises every host
// callback a heavier interpreter would use.
package script

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/tui-quest/internal/engine"
)

// Register the backend with the engine registry
func init() {
	engine.Register(engine.Backend{
		Name:        "script",
		Title:       "Story Script",
		Description: "Built-in YAML story interpreter",
		Extensions:  []string{".story", ".yaml", ".yml"},
		Factory:     func() engine.Engine { return New() },
	})
}

// Script failure codes carried in engine.Error.
const (
	errBadWorld = 100 + iota
	errUnknownLocation
	errUnknownCommand
	errBadArguments
	errUnknownMenu
	errBadSaveData
	errTooDeep
	errMissingFile
)

const (
	maxEnterDepth   = 64
	maxIncludeDepth = 16
)

var errNoWorld = errors.New("script: no world loaded")

// uiVars are the variable names whose assignment must be reported
// through UIConfigChanged.
var uiVars = map[string]bool{
	engine.VarUseHTML:   true,
	engine.VarFontSize:  true,
	engine.VarBackColor: true,
	engine.VarFontColor: true,
	engine.VarLinkColor: true,
}

var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// value is one variable slot. Numeric assignments fill Num, anything
// else fills Text.
type value struct {
	Num  int    `yaml:"num,omitempty"`
	Text string `yaml:"text,omitempty"`
}

type invItem struct {
	Name string `yaml:"name"`
	Icon string `yaml:"icon,omitempty"`
}

type visibleAction struct {
	item   engine.ListItem
	script string
}

type changeSet struct {
	main bool
	vars bool
	acts bool
	objs bool
	ui   bool
}

func (c changeSet) any() bool {
	return c.main || c.vars || c.acts || c.objs || c.ui
}

// Engine interprets story files. Like every engine backend it is
// single-goroutine: the dispatcher serializes all calls, including
// the re-entrant ones made from inside host callbacks.
type Engine struct {
	host engine.Host

	story *Story
	path  string

	loc     *Location
	vars    map[string]value
	inv     []invItem
	desc    []string
	status  string
	actions []visibleAction

	input      string
	selAction  int
	menu       []MenuEntry
	menuChoice int

	depth        int
	enterDepth   int
	includeDepth int
	changed      changeSet
}

// New creates an unloaded story engine.
func New() *Engine {
	return &Engine{selAction: -1, menuChoice: -1}
}

func (e *Engine) Init(host engine.Host) error {
	e.host = host
	return nil
}

func (e *Engine) Close() error {
	e.host = nil
	e.story = nil
	e.loc = nil
	return nil
}

// begin opens a top-level call. Nested calls (host callbacks calling
// back in) keep accumulating into the outer call's change set.
func (e *Engine) begin() bool {
	e.depth++
	if e.depth > 1 {
		return false
	}
	e.changed = changeSet{}
	return true
}

// end closes a call. On the outermost one it re-derives the status
// panel and action list, then tells the host if anything changed.
func (e *Engine) end(ctx context.Context) {
	e.depth--
	if e.depth > 0 || e.host == nil {
		return
	}
	e.refreshStatus()
	e.refreshActions()
	if e.changed.any() {
		e.host.Refresh(ctx)
	}
}

func (e *Engine) LoadWorld(ctx context.Context, data []byte, path string) error {
	story, err := ParseStory(data)
	if err != nil {
		return &engine.Error{Code: errBadWorld, Desc: err.Error()}
	}

	e.story = story
	e.path = path
	e.resetState()
	return nil
}

func (e *Engine) Restart(ctx context.Context) error {
	if e.story == nil {
		return errNoWorld
	}

	e.begin()
	defer e.end(ctx)

	e.resetState()
	return e.enter(ctx, e.story.Start)
}

// resetState puts the runtime back to the story's initial values
// without entering any location.
func (e *Engine) resetState() {
	e.vars = make(map[string]value, len(e.story.Vars))
	for name, raw := range e.story.Vars {
		e.vars[varKey(name)] = anyValue(raw)
	}
	e.loc = nil
	e.inv = nil
	e.desc = nil
	e.status = ""
	e.actions = nil
	e.input = ""
	e.selAction = -1
	e.menu = nil
	e.menuChoice = -1
	e.changed = changeSet{main: true, vars: true, acts: true, objs: true, ui: true}
}

func (e *Engine) Exec(ctx context.Context, code string) error {
	if e.story == nil {
		return errNoWorld
	}

	e.begin()
	defer e.end(ctx)

	return e.runScript(ctx, code)
}

func (e *Engine) ExecCounter(ctx context.Context) error {
	if e.story == nil {
		return errNoWorld
	}

	tick := e.story.Tick
	if e.loc != nil && e.loc.Tick != "" {
		tick = e.loc.Tick
	}
	if tick == "" {
		return nil
	}

	e.begin()
	defer e.end(ctx)

	return e.runScript(ctx, tick)
}

func (e *Engine) ExecUserInput(ctx context.Context) error {
	if e.story == nil {
		return errNoWorld
	}
	if e.story.OnInput == "" {
		return nil
	}

	e.begin()
	defer e.end(ctx)

	e.setVar("input", textValue(e.input))
	return e.runScript(ctx, e.story.OnInput)
}

func (e *Engine) SetInputText(ctx context.Context, text string) error {
	e.input = text
	return nil
}

func (e *Engine) SelectAction(ctx context.Context, index int) error {
	if index < 0 || index >= len(e.actions) {
		return e.scriptErr(0, errBadArguments, fmt.Sprintf("action index %d out of range", index))
	}
	e.selAction = index
	return nil
}

func (e *Engine) ExecSelAction(ctx context.Context) error {
	if e.selAction < 0 || e.selAction >= len(e.actions) {
		return nil
	}

	e.begin()
	defer e.end(ctx)

	return e.runScript(ctx, e.actions[e.selAction].script)
}

func (e *Engine) SelectObject(ctx context.Context, index int) error {
	if index < 0 || index >= len(e.inv) {
		return e.scriptErr(0, errBadArguments, fmt.Sprintf("object index %d out of range", index))
	}

	e.begin()
	defer e.end(ctx)

	e.setVar("selobj", value{Num: index, Text: e.inv[index].Name})
	if e.story.OnObject == "" {
		return nil
	}
	return e.runScript(ctx, e.story.OnObject)
}

func (e *Engine) SelectMenuItem(ctx context.Context, index int) error {
	if index < 0 || index >= len(e.menu) {
		return e.scriptErr(0, errBadArguments, fmt.Sprintf("menu index %d out of range", index))
	}

	e.menuChoice = index
	item := e.menu[index]
	if item.Script == "" {
		return nil
	}

	e.begin()
	defer e.end(ctx)

	return e.runScript(ctx, item.Script)
}

func (e *Engine) MainDesc() string { return strings.Join(e.desc, "\n") }

func (e *Engine) MainDescChanged() bool { return e.changed.main }

func (e *Engine) VarsDesc() string { return e.status }

func (e *Engine) VarsDescChanged() bool { return e.changed.vars }

func (e *Engine) ActionsChanged() bool { return e.changed.acts }

func (e *Engine) ObjectsChanged() bool { return e.changed.objs }

func (e *Engine) UIConfigChanged() bool { return e.changed.ui }

func (e *Engine) Actions() []engine.ListItem {
	items := make([]engine.ListItem, len(e.actions))
	for i, a := range e.actions {
		items[i] = a.item
	}
	return items
}

func (e *Engine) Objects() []engine.ListItem {
	items := make([]engine.ListItem, len(e.inv))
	for i, o := range e.inv {
		items[i] = engine.ListItem{Text: o.Name, Icon: o.Icon}
	}
	return items
}

func (e *Engine) VarValues(name string, index int) (int, string, error) {
	if index != 0 {
		return 0, "", nil
	}
	v := e.vars[varKey(name)]
	return v.Num, v.Text, nil
}

// saveData is the serialized runtime state. The title ties a save to
// its story.
type saveData struct {
	Title    string           `yaml:"title"`
	Location string           `yaml:"location"`
	Vars     map[string]value `yaml:"vars,omitempty"`
	Desc     []string         `yaml:"desc,omitempty"`
	Objects  []invItem        `yaml:"objects,omitempty"`
	Input    string           `yaml:"input,omitempty"`
}

func (e *Engine) SaveState(ctx context.Context) ([]byte, error) {
	if e.story == nil || e.loc == nil {
		return nil, nil
	}

	data, err := yaml.Marshal(saveData{
		Title:    e.story.Title,
		Location: e.loc.Name,
		Vars:     e.vars,
		Desc:     e.desc,
		Objects:  e.inv,
		Input:    e.input,
	})
	if err != nil {
		return nil, fmt.Errorf("script: cannot serialize state: %w", err)
	}

	return data, nil
}

func (e *Engine) LoadState(ctx context.Context, data []byte) error {
	if e.story == nil {
		return errNoWorld
	}

	e.begin()
	defer e.end(ctx)

	var sd saveData
	if err := yaml.Unmarshal(data, &sd); err != nil {
		return e.scriptErr(0, errBadSaveData, "unreadable save: "+err.Error())
	}
	if sd.Title != e.story.Title {
		return e.scriptErr(0, errBadSaveData,
			fmt.Sprintf("save belongs to %q, loaded story is %q", sd.Title, e.story.Title))
	}
	loc := e.story.location(sd.Location)
	if loc == nil {
		return e.scriptErr(0, errBadSaveData, "save points at unknown location: "+sd.Location)
	}

	e.loc = loc
	e.vars = sd.Vars
	if e.vars == nil {
		e.vars = make(map[string]value)
	}
	e.desc = sd.Desc
	e.inv = sd.Objects
	e.input = sd.Input
	e.selAction = -1
	e.changed = changeSet{main: true, vars: true, acts: true, objs: true, ui: true}
	return nil
}

// enter moves to a location: its description replaces the main text,
// then its entry script runs. Guarded against goto cycles.
func (e *Engine) enter(ctx context.Context, name string) error {
	if e.enterDepth >= maxEnterDepth {
		return e.scriptErr(0, errTooDeep, "location changes nested too deeply")
	}

	loc := e.story.location(name)
	if loc == nil {
		return e.scriptErr(0, errUnknownLocation, "unknown location: "+name)
	}

	e.loc = loc
	e.desc = nil
	if d := strings.TrimRight(e.expand(loc.Desc), "\n"); d != "" {
		e.desc = append(e.desc, d)
	}
	e.selAction = -1
	e.changed.main = true
	e.changed.acts = true

	if loc.Script == "" {
		return nil
	}
	e.enterDepth++
	defer func() { e.enterDepth-- }()
	return e.runScript(ctx, loc.Script)
}

func (e *Engine) runScript(ctx context.Context, src string) error {
	for i, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		stop, err := e.runLine(ctx, line, i+1)
		if err != nil {
			return err
		}
		if stop || ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

func (e *Engine) runLine(ctx context.Context, line string, lineNo int) (bool, error) {
	cmd, rest := splitWord(line)

	switch strings.ToLower(cmd) {
	case "goto":
		return false, e.enter(ctx, rest)
	case "say":
		e.desc = append(e.desc, strings.TrimRight(e.expand(rest), " "))
		e.changed.main = true
	case "clear":
		e.desc = nil
		e.changed.main = true
	case "msg":
		e.host.ShowMessage(ctx, e.expand(rest))
	case "pic":
		e.host.ShowPicture(ctx, strings.TrimSpace(rest))
	case "set":
		return false, e.cmdSet(rest, lineNo)
	case "add":
		return false, e.cmdAdd(rest, lineNo)
	case "if":
		return e.cmdIf(ctx, rest, lineNo)
	case "obj":
		return false, e.cmdObj(rest, lineNo)
	case "timer":
		return false, e.cmdTimer(ctx, rest, lineNo)
	case "wait":
		return false, e.cmdWait(ctx, rest, lineNo)
	case "elapsed":
		e.setVar(rest, value{Num: e.host.MSCount(ctx)})
	case "play":
		return false, e.cmdPlay(ctx, rest, lineNo)
	case "stop":
		e.host.CloseFile(ctx, strings.TrimSpace(rest))
	case "menu":
		return false, e.cmdMenu(ctx, rest, lineNo)
	case "input":
		return false, e.cmdInput(ctx, rest, lineNo)
	case "include":
		return false, e.cmdInclude(ctx, rest, lineNo)
	case "savegame":
		e.host.SaveGame(ctx, strings.TrimSpace(rest))
	case "opengame":
		e.host.OpenGame(ctx, strings.TrimSpace(rest))
	case "window":
		return false, e.cmdWindow(ctx, rest, lineNo)
	case "chdir":
		e.host.ChangeQuestDir(ctx, strings.TrimSpace(rest))
	case "end":
		return true, nil
	default:
		return false, e.scriptErr(lineNo, errUnknownCommand, "unknown command: "+cmd)
	}

	return false, nil
}

func (e *Engine) cmdSet(rest string, lineNo int) error {
	name, raw, ok := strings.Cut(rest, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return e.scriptErr(lineNo, errBadArguments, "set needs: name = value")
	}
	e.setVar(name, parseValue(e.expand(strings.TrimSpace(raw))))
	return nil
}

func (e *Engine) cmdAdd(rest string, lineNo int) error {
	name, raw := splitWord(rest)
	n, err := strconv.Atoi(raw)
	if name == "" || err != nil {
		return e.scriptErr(lineNo, errBadArguments, "add needs: name delta")
	}
	v := e.vars[varKey(name)]
	v.Num += n
	e.setVar(name, v)
	return nil
}

func (e *Engine) cmdIf(ctx context.Context, rest string, lineNo int) (bool, error) {
	cond, then, ok := strings.Cut(rest, " then ")
	if !ok {
		return false, e.scriptErr(lineNo, errBadArguments, "if needs: condition then command")
	}

	truth, err := e.evalCond(cond, lineNo)
	if err != nil {
		return false, err
	}
	if !truth {
		return false, nil
	}
	return e.runLine(ctx, strings.TrimSpace(then), lineNo)
}

func (e *Engine) evalCond(cond string, lineNo int) (bool, error) {
	fields := strings.Fields(cond)
	switch len(fields) {
	case 1:
		v := e.vars[varKey(fields[0])]
		return v.Num != 0 || v.Text != "", nil
	case 3:
		lhs := e.vars[varKey(fields[0])]
		op := fields[1]
		if rhs, err := strconv.Atoi(fields[2]); err == nil {
			return e.compareNum(lhs.Num, op, rhs, lineNo)
		}
		switch op {
		case "=", "==":
			return lhs.Text == fields[2], nil
		case "!=":
			return lhs.Text != fields[2], nil
		}
		return false, e.scriptErr(lineNo, errBadArguments, "text comparison supports only = and !=")
	}
	return false, e.scriptErr(lineNo, errBadArguments, "condition must be: name [op value]")
}

func (e *Engine) compareNum(lhs int, op string, rhs, lineNo int) (bool, error) {
	switch op {
	case "=", "==":
		return lhs == rhs, nil
	case "!=":
		return lhs != rhs, nil
	case "<":
		return lhs < rhs, nil
	case ">":
		return lhs > rhs, nil
	case "<=":
		return lhs <= rhs, nil
	case ">=":
		return lhs >= rhs, nil
	}
	return false, e.scriptErr(lineNo, errBadArguments, "unknown operator: "+op)
}

func (e *Engine) cmdObj(rest string, lineNo int) error {
	sub, name := splitWord(rest)
	name = strings.TrimSpace(e.expand(name))
	if name == "" {
		return e.scriptErr(lineNo, errBadArguments, "obj needs: add|del name")
	}

	switch strings.ToLower(sub) {
	case "add":
		e.inv = append(e.inv, invItem{Name: name, Icon: e.story.Icons[name]})
		e.changed.objs = true
	case "del":
		for i, o := range e.inv {
			if o.Name == name {
				e.inv = append(e.inv[:i], e.inv[i+1:]...)
				e.changed.objs = true
				break
			}
		}
	default:
		return e.scriptErr(lineNo, errBadArguments, "obj needs: add|del name")
	}
	return nil
}

func (e *Engine) cmdTimer(ctx context.Context, rest string, lineNo int) error {
	ms, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return e.scriptErr(lineNo, errBadArguments, "timer needs milliseconds")
	}
	e.host.SetTimer(ctx, time.Duration(ms)*time.Millisecond)
	return nil
}

func (e *Engine) cmdWait(ctx context.Context, rest string, lineNo int) error {
	ms, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return e.scriptErr(lineNo, errBadArguments, "wait needs milliseconds")
	}
	e.host.Wait(ctx, time.Duration(ms)*time.Millisecond)
	return nil
}

// cmdPlay starts a track. Without an explicit volume an already
// playing track is left alone.
func (e *Engine) cmdPlay(ctx context.Context, rest string, lineNo int) error {
	path, volRaw := splitWord(rest)
	if path == "" {
		return e.scriptErr(lineNo, errBadArguments, "play needs a file")
	}

	volume := 100
	if volRaw != "" {
		v, err := strconv.Atoi(volRaw)
		if err != nil {
			return e.scriptErr(lineNo, errBadArguments, "play volume must be a number")
		}
		volume = v
	} else if e.host.IsPlayingFile(ctx, path) {
		return nil
	}

	e.host.PlayFile(ctx, path, volume)
	return nil
}

func (e *Engine) cmdMenu(ctx context.Context, rest string, lineNo int) error {
	name := strings.TrimSpace(rest)
	items, ok := e.story.Menus[name]
	if !ok {
		return e.scriptErr(lineNo, errUnknownMenu, "unknown menu: "+name)
	}
	if len(items) == 0 {
		return nil
	}

	e.menu = items
	e.menuChoice = -1
	for _, it := range items {
		e.host.AddMenuItem(ctx, e.expand(it.Text), it.Icon)
	}
	e.host.ShowMenu(ctx)
	e.host.DeleteMenu(ctx)
	e.menu = nil
	// Scripts read CHOICE to tell a dismissed menu (-1) from a pick.
	e.setVar("choice", value{Num: e.menuChoice})
	return nil
}

func (e *Engine) cmdInput(ctx context.Context, rest string, lineNo int) error {
	name, prompt := splitWord(rest)
	if name == "" {
		return e.scriptErr(lineNo, errBadArguments, "input needs: name prompt")
	}
	reply := e.host.Input(ctx, e.expand(prompt))
	e.setVar(name, parseValue(reply))
	return nil
}

func (e *Engine) cmdInclude(ctx context.Context, rest string, lineNo int) error {
	path := strings.TrimSpace(rest)
	if path == "" {
		return e.scriptErr(lineNo, errBadArguments, "include needs a file")
	}
	if e.includeDepth >= maxIncludeDepth {
		return e.scriptErr(lineNo, errTooDeep, "includes nested too deeply")
	}

	data := e.host.FileContents(ctx, path)
	if data == nil {
		return e.scriptErr(lineNo, errMissingFile, "cannot read file: "+path)
	}

	e.includeDepth++
	defer func() { e.includeDepth-- }()
	return e.runScript(ctx, string(data))
}

func (e *Engine) cmdWindow(ctx context.Context, rest string, lineNo int) error {
	name, state := splitWord(rest)

	var kind engine.WindowKind
	switch strings.ToLower(name) {
	case "actions":
		kind = engine.WindowActions
	case "objects":
		kind = engine.WindowObjects
	case "vars":
		kind = engine.WindowVars
	case "input":
		kind = engine.WindowInput
	default:
		return e.scriptErr(lineNo, errBadArguments, "window needs: actions|objects|vars|input show|hide")
	}

	switch strings.ToLower(strings.TrimSpace(state)) {
	case "show":
		e.host.ShowWindow(ctx, kind, true)
	case "hide":
		e.host.ShowWindow(ctx, kind, false)
	default:
		return e.scriptErr(lineNo, errBadArguments, "window needs: actions|objects|vars|input show|hide")
	}
	return nil
}

// refreshStatus re-renders the status template against the current
// variables.
func (e *Engine) refreshStatus() {
	if e.story == nil {
		return
	}
	s := strings.TrimRight(e.expand(e.story.Status), "\n")
	if s != e.status {
		e.status = s
		e.changed.vars = true
	}
}

// refreshActions re-derives the visible action list, since any
// variable assignment can flip an action's condition.
func (e *Engine) refreshActions() {
	if e.loc == nil {
		return
	}

	var next []visibleAction
	for i := range e.loc.Actions {
		a := &e.loc.Actions[i]
		if a.If != "" {
			v := e.vars[varKey(a.If)]
			if v.Num == 0 && v.Text == "" {
				continue
			}
		}
		next = append(next, visibleAction{
			item:   engine.ListItem{Text: e.expand(a.Text), Icon: a.Icon},
			script: a.Script,
		})
	}

	if !sameActions(e.actions, next) {
		e.actions = next
		e.changed.acts = true
		if e.selAction >= len(e.actions) {
			e.selAction = -1
		}
	}
}

func sameActions(a, b []visibleAction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].item != b[i].item {
			return false
		}
	}
	return true
}

func (e *Engine) setVar(name string, v value) {
	key := varKey(name)
	if e.vars == nil {
		e.vars = make(map[string]value)
	}
	e.vars[key] = v
	if uiVars[key] {
		e.changed.ui = true
	}
}

// expand substitutes ${name} references with variable values.
func (e *Engine) expand(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return varPattern.ReplaceAllStringFunc(s, func(m string) string {
		v := e.vars[varKey(m[2:len(m)-1])]
		if v.Text != "" {
			return v.Text
		}
		return strconv.Itoa(v.Num)
	})
}

func (e *Engine) scriptErr(line, code int, desc string) error {
	locName := ""
	if e.loc != nil {
		locName = e.loc.Name
	}
	return &engine.Error{
		Location: locName,
		Action:   e.selAction,
		Line:     line,
		Code:     code,
		Desc:     desc,
	}
}

func varKey(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func parseValue(s string) value {
	if n, err := strconv.Atoi(s); err == nil {
		return value{Num: n}
	}
	return value{Text: s}
}

func textValue(s string) value {
	v := parseValue(s)
	v.Text = s
	return v
}

func anyValue(raw any) value {
	switch v := raw.(type) {
	case int:
		return value{Num: v}
	case float64:
		return value{Num: int(v)}
	case bool:
		if v {
			return value{Num: 1}
		}
		return value{}
	case string:
		return parseValue(v)
	}
	return value{}
}

func splitWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}
