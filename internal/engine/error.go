package engine

import "fmt"

// Error is a failure raised by game code rather than by the player:
// a runtime error inside the interpreter, located in the game's own
// sources. Wrap or return it from Engine calls; callers unwrap with
// errors.As to decide whether a failure should be shown to the player
// as a game error.
//
// Fields the interpreter cannot fill stay zero; string fields default
// to empty, not to placeholder text.
type Error struct {
	Location string
	Action   int
	Line     int
	Code     int
	Desc     string
}

func (e *Error) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("engine: error %d at %s:%d: %s", e.Code, e.Location, e.Line, e.Desc)
	}
	return fmt.Sprintf("engine: error %d: %s", e.Code, e.Desc)
}
