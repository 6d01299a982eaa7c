package connection

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/playnet-public/gorcon-mc/pkg/common"
	"github.com/playnet-public/gorcon-mc/pkg/rcon/protocol"
	"go.uber.org/zap"
)

//Conn is a single authenticated rcon socket.
//A Conn is not reconnectable, once closed a new one is required.
type Conn struct {
	log *zap.Logger
	cfg Config

	// mu allows one request/response pair on the socket at a time
	mu sync.Mutex

	sock struct {
		sync.Mutex
		net.Conn
		rd     *bufio.Reader
		closed bool
	}
}

//New returns an unconnected Conn for cfg
func New(log *zap.Logger, cfg Config) *Conn {
	return &Conn{
		log: log,
		cfg: cfg.withDefaults(),
	}
}

//Connect opens the socket and performs the login handshake
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sock.Lock()
	if c.sock.closed {
		c.sock.Unlock()
		return common.ErrConnClosed
	}
	if c.sock.Conn != nil {
		c.sock.Unlock()
		return nil
	}
	c.sock.Unlock()

	c.log.Info("creating new connection", zap.Stringer("server", c.cfg))
	nc, err := c.dial(ctx)
	if err != nil {
		return err
	}

	c.sock.Lock()
	if c.sock.closed {
		c.sock.Unlock()
		nc.Close()
		return common.ErrConnClosed
	}
	c.sock.Conn = nc
	c.sock.rd = bufio.NewReader(nc)
	c.sock.Unlock()

	if err := c.login(ctx); err != nil {
		c.Close()
		return err
	}
	return nil
}

func (c *Conn) dial(ctx context.Context) (net.Conn, error) {
	d := &net.Dialer{Timeout: c.cfg.Timeout}
	if c.cfg.TLS == TLSDisabled {
		return d.DialContext(ctx, "tcp", c.cfg.Addr())
	}
	td := &tls.Dialer{
		NetDialer: d,
		Config: &tls.Config{
			ServerName:         c.cfg.Host,
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: c.cfg.TLS == TLSInsecure,
		},
	}
	return td.DialContext(ctx, "tcp", c.cfg.Addr())
}

func (c *Conn) login(ctx context.Context) error {
	packet, err := protocol.BuildLoginPacket(c.cfg.Password)
	if err != nil {
		return err
	}
	c.log.Debug("logging in")
	if _, err := c.roundTrip(ctx, packet); err != nil {
		if errors.Is(err, common.ErrAuthentication) {
			c.log.Error("login failed", zap.Stringer("server", c.cfg))
		}
		return err
	}
	c.log.Info("login successful")
	return nil
}

//Close the socket. Calling Close more than once is a no-op.
func (c *Conn) Close() error {
	c.sock.Lock()
	defer c.sock.Unlock()
	c.sock.closed = true
	if c.sock.Conn == nil {
		return nil
	}
	err := c.sock.Conn.Close()
	c.sock.Conn = nil
	c.sock.rd = nil
	return err
}

//Connected reports whether the socket is open
func (c *Conn) Connected() bool {
	c.sock.Lock()
	defer c.sock.Unlock()
	return c.sock.Conn != nil
}

//Command sends cmd and returns the reassembled response text
func (c *Conn) Command(ctx context.Context, cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	packet, err := protocol.BuildCmdPacket(cmd)
	if err != nil {
		return "", err
	}
	c.log.Debug("sending command", zap.String("cmd", cmd))
	resp, err := c.roundTrip(ctx, packet)
	if err != nil {
		return "", err
	}
	c.log.Debug("received response", zap.String("cmd", cmd), zap.Int("length", len(resp)))
	return resp, nil
}

//roundTrip writes packet and collects the response fragments. Callers must hold mu.
//
//The protocol has no end-of-response marker, so a response is considered complete once no
//further byte arrives within the quiet period. This costs one QuietPeriod of latency per
//request and a fragment delayed for longer than that is mistaken for a new response.
func (c *Conn) roundTrip(ctx context.Context, packet []byte) (string, error) {
	c.sock.Lock()
	nc, rd := c.sock.Conn, c.sock.rd
	c.sock.Unlock()
	if nc == nil {
		return "", common.ErrNotConnected
	}

	stop := context.AfterFunc(ctx, func() {
		nc.SetDeadline(time.Now())
	})
	defer stop()

	nc.SetWriteDeadline(time.Now().Add(c.cfg.Timeout))
	if _, err := nc.Write(packet); err != nil {
		return "", c.fail(ctx, "write", err)
	}

	var response strings.Builder
	for {
		// the cancel deadline set by AfterFunc is overwritten below
		if err := ctx.Err(); err != nil {
			return "", c.fail(ctx, "read", err)
		}
		nc.SetReadDeadline(time.Now().Add(c.cfg.Timeout))
		p, err := protocol.ReadPacket(rd)
		if err != nil {
			return "", c.fail(ctx, "read", err)
		}
		response.Write(p.Body)
		if p.Failed() {
			c.Close()
			return "", common.ErrAuthentication
		}
		if rd.Buffered() > 0 {
			continue
		}

		nc.SetReadDeadline(time.Now().Add(c.cfg.QuietPeriod))
		if _, err := rd.Peek(1); err != nil {
			if ctx.Err() != nil {
				return "", c.fail(ctx, "read", err)
			}
			if isTimeout(err) {
				return response.String(), nil
			}
			if errors.Is(err, io.EOF) {
				// the server hung up after answering, later commands must not use this socket
				c.Close()
				return response.String(), nil
			}
			return "", c.fail(ctx, "read", err)
		}
	}
}

//fail closes the socket, since its stream position is unknown after an error, and classifies err
func (c *Conn) fail(ctx context.Context, op string, err error) error {
	c.Close()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if isTimeout(err) {
		return fmt.Errorf("%w: %s: %v", common.ErrTimeout, op, err)
	}
	if errors.Is(err, common.ErrInvalidPacketSize) || errors.Is(err, common.ErrInvalidTermination) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
