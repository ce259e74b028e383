package engine

import (
	"context"
	"time"

	"github.com/satchel-app/satchel/internal/envelope"
)

// schedule places env in the single pending-write slot. Any previously
// scheduled-but-not-yet-fired write is superseded, not queued, so N rapid
// saves within the window produce exactly one remote write carrying the
// latest payload.
func (e *Engine) schedule(env *envelope.Envelope) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pending = env
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.cfg.DebounceInterval, e.fireDebounced)
}

// fireDebounced runs on the timer goroutine when the debounce window
// elapses without a newer save.
func (e *Engine) fireDebounced() {
	e.mu.Lock()
	env := e.pending
	mode := e.mode
	e.pending = nil
	e.timer = nil
	if env == nil || mode != ModeCloud {
		e.mu.Unlock()
		return
	}
	e.inflight.Add(1)
	e.mu.Unlock()
	defer e.inflight.Done()

	if err := e.pushRemote(context.Background(), env); err != nil {
		e.reportRemoteError(err)
	}
}

// flush cancels the timer and performs the pending write synchronously.
// Reports whether anything was pending. An empty slot is a successful
// no-op, so teardown paths can always call it.
func (e *Engine) flush(ctx context.Context) (bool, error) {
	e.mu.Lock()
	env := e.pending
	mode := e.mode
	e.pending = nil
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()

	if env == nil || mode != ModeCloud {
		return false, nil
	}
	if err := e.pushRemote(ctx, env); err != nil {
		e.reportRemoteError(err)
		return true, err
	}
	return true, nil
}
