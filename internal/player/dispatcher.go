package player

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/tui-quest/internal/engine"
)

// Unit is one piece of work executed against the interpreter on the
// dispatcher goroutine. Units are fire-and-forget: the submitter
// observes completion only through published view snapshots and
// reported errors.
type Unit func(ctx context.Context)

type actorKey struct{}

// Dispatcher owns an interpreter and the single goroutine every call
// into it runs on. The interpreter is not reentrant and not safe for
// concurrent use, so this goroutine is the only place it is touched:
// units run strictly one after another, and the host callbacks an
// interpreter call triggers run nested inside that same call.
//
// Submission is non-blocking with an inbox of one: while a unit is
// pending or running, further submissions are dropped, not queued.
// Submit reports the outcome so callers that need their work to
// happen eventually can retry on their own schedule.
type Dispatcher struct {
	eng    engine.Engine
	host   engine.Host
	logger *log.Logger

	mu       sync.Mutex
	started  bool
	stopping bool
	busy     bool
	cancel   context.CancelFunc

	work    chan Unit
	stopped chan struct{}
}

// NewDispatcher wires an interpreter to the host callbacks it will be
// initialized with. The goroutine starts lazily on first Submit.
func NewDispatcher(eng engine.Engine, host engine.Host, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		eng:     eng,
		host:    host,
		logger:  logger,
		work:    make(chan Unit, 1),
		stopped: make(chan struct{}),
	}
}

// Start brings the goroutine up ahead of the first Submit, so the
// interpreter initializes before any work arrives. Calling it while
// already running, or after Stop, is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopping || d.started {
		return
	}
	d.startLocked()
}

// Submit hands a unit to the dispatcher goroutine, starting the
// goroutine on first use. It never blocks: when a unit is already
// pending or running, or the dispatcher is stopping, the new unit is
// dropped and Submit returns false.
func (d *Dispatcher) Submit(u Unit) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopping {
		return false
	}
	if !d.started {
		d.startLocked()
	}
	if d.busy {
		return false
	}
	d.busy = true

	// The busy flag guarantees the inbox slot is free, so this send
	// cannot block even under the lock. Sending before the lock is
	// released means a unit accepted here is in the inbox before Stop
	// can cancel, so accepted work always drains.
	d.work <- u
	return true
}

// Stop prevents new submissions, waits for the current unit (if any)
// to finish, closes the interpreter and terminates the goroutine. The
// in-flight call is not preempted, but its context is cancelled so
// blocking host requests inside it return and let it finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopping {
		d.mu.Unlock()
		return
	}
	d.stopping = true
	started := d.started
	if started {
		d.cancel()
	}
	d.mu.Unlock()
	if started {
		<-d.stopped
	}
}

// Stopping reports whether Stop has been called.
func (d *Dispatcher) Stopping() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopping
}

// OnActor reports whether ctx belongs to a unit already running on
// this dispatcher's goroutine. Operations that may be reached both
// from the UI and from inside an interpreter callback use this to run
// directly instead of re-submitting, which would self-drop.
func (d *Dispatcher) OnActor(ctx context.Context) bool {
	v, _ := ctx.Value(actorKey{}).(*Dispatcher)
	return v == d
}

func (d *Dispatcher) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = context.WithValue(ctx, actorKey{}, d)
	d.cancel = cancel
	d.started = true
	go d.serve(ctx)
}

func (d *Dispatcher) serve(ctx context.Context) {
	defer close(d.stopped)
	if err := d.eng.Init(d.host); err != nil {
		d.logger.Error("engine init failed", "error", err)
	}
	for {
		select {
		case u := <-d.work:
			d.run(ctx, u)
		case <-ctx.Done():
			// A unit accepted just before Stop may still sit in the
			// inbox; accepted work always executes.
			select {
			case u := <-d.work:
				d.run(ctx, u)
			default:
			}
			if err := d.eng.Close(); err != nil {
				d.logger.Error("engine close failed", "error", err)
			}
			return
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, u Unit) {
	defer func() {
		d.mu.Lock()
		d.busy = false
		d.mu.Unlock()
	}()
	u(ctx)
}
