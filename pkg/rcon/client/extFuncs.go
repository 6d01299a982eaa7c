package client

import (
	"context"

	raven "github.com/getsentry/raven-go"
	"github.com/playnet-public/gorcon-mc/pkg/common"
	"go.uber.org/zap"
)

//ExtFuncs returns functions to be externally exposed
func (c *Client) ExtFuncs() common.ExtFuncs {
	return common.NewExtFuncs(
		common.NewExtFunc("rcon", c.rconFuncs()),
		common.NewExtFunc("reconnect", c.reconnectFuncs()),
	)
}

//rconFuncs queues cmd, its output only ends up in the debug log
func (c *Client) rconFuncs() common.ScheduleFunc {
	return func(cmd string) {
		if _, err := c.Command(context.Background(), cmd, false); err != nil {
			c.log.Error("failed to queue scheduled command", zap.String("cmd", cmd), zap.Error(err))
		}
	}
}

func (c *Client) reconnectFuncs() common.ScheduleFunc {
	return func(string) {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout+DefaultMaxBackoff)
		defer cancel()
		if err := c.Connect(ctx); err != nil {
			c.log.Error("scheduled reconnect failed", zap.Error(err))
			raven.CaptureError(err, map[string]string{"app": "rcon", "module": "client"})
		}
	}
}
