package player

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-quest/internal/engine"
)

// Reporter turns failed interpreter calls into a log record and, when
// a presenter is attached, a player-visible error dialog. Reporting is
// terminal for the unit of work that triggered it; nothing is retried.
type Reporter struct {
	logger    *log.Logger
	presenter func() Presenter
}

func NewReporter(logger *log.Logger, presenter func() Presenter) *Reporter {
	return &Reporter{logger: logger, presenter: presenter}
}

// Report handles a failed interpreter call. Game-side errors are
// formatted and shown to the player; transport errors are only
// logged. A nil err is ignored.
func (r *Reporter) Report(ctx context.Context, err error) {
	if err == nil {
		return
	}
	var ge *engine.Error
	if !errors.As(err, &ge) {
		r.logger.Error("engine call failed", "error", err)
		return
	}
	msg := formatError(ge)
	r.logger.Error("game error",
		"location", ge.Location,
		"action", ge.Action,
		"line", ge.Line,
		"code", ge.Code,
		"desc", ge.Desc)
	if p := r.presenter(); p != nil {
		p.ShowError(ctx, msg)
	}
}

// formatError renders the fixed diagnostic layout shown to the
// player. Missing string fields stay empty rather than turning into a
// placeholder.
func formatError(e *engine.Error) string {
	return fmt.Sprintf("Location: %s\nAction: %d\nLine: %d\nError number: %d\nDescription: %s",
		e.Location, e.Action, e.Line, e.Code, e.Desc)
}
