package client

import (
	"context"
	"time"

	raven "github.com/getsentry/raven-go"
	"go.uber.org/zap"
)

type state int

const (
	stateDraining state = iota
	stateConnecting
	stateBackingOff
)

func (s state) String() string {
	switch s {
	case stateDraining:
		return "draining"
	case stateConnecting:
		return "connecting"
	case stateBackingOff:
		return "backingOff"
	}
	return "unknown"
}

//worker drains the queue of a Client. Every failure is answered by reconnecting,
//only cancellation of the context passed to run ends it.
type worker struct {
	c       *Client
	state   state
	backoff *backoff

	// held is a popped command that was not sent yet because the connection was down
	held    string
	holding bool
}

func newWorker(c *Client) *worker {
	return &worker{
		c:       c,
		state:   stateDraining,
		backoff: newBackoff(c.backoffInitial, c.backoffMax),
	}
}

func (w *worker) run(ctx context.Context) {
	w.c.log.Debug("worker started")
	for w.step(ctx) {
	}
	if w.holding {
		w.c.queue.unpop(w.held)
		w.held, w.holding = "", false
	}
	w.c.log.Debug("worker stopped")
}

//step executes one transition of the state machine and reports whether to continue
func (w *worker) step(ctx context.Context) bool {
	switch w.state {
	case stateDraining:
		return w.drain(ctx)
	case stateConnecting:
		return w.connect(ctx)
	case stateBackingOff:
		return w.wait(ctx)
	}
	return false
}

func (w *worker) drain(ctx context.Context) bool {
	if !w.holding {
		cmd, ok := w.c.queue.pop(ctx)
		if !ok {
			return false
		}
		w.held, w.holding = cmd, true
	}

	// nothing reached the wire yet, keep the command until the connection is back
	if !w.c.Connected() {
		w.c.log.Info("connection lost, reconnecting before next command")
		w.state = stateConnecting
		return true
	}

	cmd := w.held
	w.held, w.holding = "", false
	res, err := w.c.execute(ctx, cmd)
	w.c.queue.done()
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		w.c.log.Error("command execution failed", zap.String("cmd", cmd), zap.Error(err))
		raven.CaptureError(err, map[string]string{"app": "rcon", "module": "client"})
		w.state = stateConnecting
	} else {
		w.c.log.Debug("command executed", zap.String("mode", "nowait"), zap.String("cmd", cmd), zap.String("result", res))
	}
	return sleep(ctx, w.c.pacing)
}

func (w *worker) connect(ctx context.Context) bool {
	// a concurrent Connect may already have installed a working connection
	dialed, err := w.c.reconnect(ctx, false)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		w.c.log.Error("failed to reconnect", zap.Error(err))
		raven.CaptureError(err, map[string]string{"app": "rcon", "module": "client"})
		w.state = stateBackingOff
		return true
	}
	if dialed {
		w.c.log.Info("reconnected")
	}
	w.backoff.reset()
	w.state = stateDraining
	return true
}

func (w *worker) wait(ctx context.Context) bool {
	d := w.backoff.next()
	w.c.log.Info("waiting before reconnect", zap.Duration("delay", d))
	if !sleep(ctx, d) {
		return false
	}
	w.state = stateConnecting
	return true
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
