package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playnet-public/gorcon-mc/pkg/common"
	"github.com/playnet-public/gorcon-mc/pkg/rcon/connection"
	"go.uber.org/zap"
)

//Client owns the server connection and serializes every command sent over it.
//Queued commands are executed in order by a single worker which reconnects on failure,
//synchronous commands are executed directly and return their result to the caller.
type Client struct {
	log *zap.Logger
	cfg connection.Config

	pacing         time.Duration
	backoffInitial time.Duration
	backoffMax     time.Duration

	queue *queue

	con struct {
		sync.RWMutex
		*connection.Conn
	}

	// lifecycle serializes Connect and Close
	lifecycle sync.Mutex
	closed    atomic.Bool

	worker struct {
		sync.Mutex
		cancel context.CancelFunc
		done   chan struct{}
	}
}

//Option configures a Client
type Option func(*Client)

//WithPacing sets the pause between two queued commands
func WithPacing(d time.Duration) Option {
	return func(c *Client) {
		c.pacing = d
	}
}

//WithBackoff sets the delay range used after failed reconnects
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Client) {
		c.backoffInitial = initial
		c.backoffMax = max
	}
}

//New creates a Client for cfg. Nothing is dialed until Connect is called.
func New(log *zap.Logger, cfg connection.Config, opts ...Option) *Client {
	c := &Client{
		log:            log,
		cfg:            cfg,
		pacing:         DefaultPacing,
		backoffInitial: DefaultInitialBackoff,
		backoffMax:     DefaultMaxBackoff,
		queue:          newQueue(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

//Connect replaces the current connection with a new one and (re)starts the worker.
//Closing the previous connection is best effort, a broken socket never blocks a new one.
func (c *Client) Connect(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.closed.Load() {
		return common.ErrClientClosed
	}

	if _, err := c.reconnect(ctx, true); err != nil {
		return err
	}
	c.stopWorker()
	c.startWorker()
	return nil
}

//reconnect retires the current connection and installs a freshly authenticated one.
//Unless force is set a connection that is still open is kept and dialed reports false.
func (c *Client) reconnect(ctx context.Context, force bool) (dialed bool, err error) {
	c.con.Lock()
	defer c.con.Unlock()

	if c.con.Conn != nil {
		if !force && c.con.Conn.Connected() {
			return false, nil
		}
		if err := c.con.Conn.Close(); err != nil {
			c.log.Warn("closing previous connection failed", zap.Error(err))
		}
		c.con.Conn = nil
	}

	con := connection.New(c.log, c.cfg)
	if err := con.Connect(ctx); err != nil {
		return false, err
	}
	c.con.Conn = con
	return true, nil
}

func (c *Client) current() *connection.Conn {
	c.con.RLock()
	defer c.con.RUnlock()
	return c.con.Conn
}

//Connected reports whether the current connection has an open socket
func (c *Client) Connected() bool {
	con := c.current()
	return con != nil && con.Connected()
}

func (c *Client) execute(ctx context.Context, cmd string) (string, error) {
	con := c.current()
	if con == nil {
		return "", common.ErrNotConnected
	}
	return con.Command(ctx, cmd)
}

//Command runs cmd on the server. With wait set the command bypasses the queue and its
//response or error is returned directly, without any retry. Otherwise cmd is queued and
//Command returns immediately; failures of queued commands are only logged.
func (c *Client) Command(ctx context.Context, cmd string, wait bool) (string, error) {
	if c.closed.Load() {
		return "", common.ErrClientClosed
	}
	if !wait {
		c.queue.push(cmd)
		return "", nil
	}
	res, err := c.execute(ctx, cmd)
	if err != nil {
		return "", err
	}
	c.log.Debug("command executed", zap.String("mode", "wait"), zap.String("cmd", cmd), zap.String("result", res))
	return res, nil
}

//Pending returns the number of queued commands not yet attempted
func (c *Client) Pending() int {
	return c.queue.len()
}

//Close waits until every queued command was attempted, stops the worker and closes
//the connection. The drain is bounded by ctx. Calling Close again is a no-op.
func (c *Client) Close(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.closed.Swap(true) {
		return nil
	}

	var err error
	if !c.IsClosed() {
		if err = c.queue.wait(ctx); err != nil {
			c.log.Warn("closing with pending commands", zap.Int("pending", c.queue.len()), zap.Error(err))
		}
	}
	c.stopWorker()

	c.con.Lock()
	if c.con.Conn != nil {
		if cerr := c.con.Conn.Close(); cerr != nil {
			c.log.Warn("closing connection failed", zap.Error(cerr))
		}
		c.con.Conn = nil
	}
	c.con.Unlock()
	c.log.Info("client closed")
	return err
}

//IsClosed reports whether no worker is running, either because the Client was never
//connected or because it was closed
func (c *Client) IsClosed() bool {
	c.worker.Lock()
	defer c.worker.Unlock()
	return c.worker.cancel == nil
}

func (c *Client) startWorker() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.worker.Lock()
	c.worker.cancel = cancel
	c.worker.done = done
	c.worker.Unlock()

	w := newWorker(c)
	go func() {
		defer close(done)
		w.run(ctx)
	}()
}

//stopWorker cancels the running worker and waits for it to return
func (c *Client) stopWorker() {
	c.worker.Lock()
	cancel, done := c.worker.cancel, c.worker.done
	c.worker.cancel = nil
	c.worker.done = nil
	c.worker.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
