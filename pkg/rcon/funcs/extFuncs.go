package funcs

import (
	"context"
	"strings"

	raven "github.com/getsentry/raven-go"
	"github.com/playnet-public/gorcon-mc/pkg/common"
	"go.uber.org/zap"
)

//ExtFuncs returns functions to be externally exposed
func (f RconFuncs) ExtFuncs() common.ExtFuncs {
	return common.NewExtFuncs(
		common.NewExtFunc("whitelist", f.whitelistFuncs()),
		common.NewExtFunc("ban", f.banFuncs()),
	)
}

//whitelistFuncs handles "add <name>" and "remove <name> [reason]"
func (f RconFuncs) whitelistFuncs() common.ScheduleFunc {
	return func(cmd string) {
		action, name, reason := splitArgs(cmd)
		var err error
		switch action {
		case "add":
			err = f.WhitelistAdd(context.Background(), name)
		case "remove":
			err = f.WhitelistRemove(context.Background(), name, reason)
		default:
			f.log.Warn("unknown whitelist action", zap.String("cmd", cmd))
			return
		}
		f.report("whitelist", cmd, err)
	}
}

//banFuncs handles "add <name> [reason]", "remove <name>" and "lift <name>"
func (f RconFuncs) banFuncs() common.ScheduleFunc {
	return func(cmd string) {
		action, name, reason := splitArgs(cmd)
		var err error
		switch action {
		case "add":
			err = f.BanAdd(context.Background(), name, reason)
		case "remove":
			err = f.BanRemove(context.Background(), name)
		case "lift":
			err = f.Unban(context.Background(), name)
		default:
			f.log.Warn("unknown ban action", zap.String("cmd", cmd))
			return
		}
		f.report("ban", cmd, err)
	}
}

func (f RconFuncs) report(key, cmd string, err error) {
	if err == nil {
		return
	}
	f.log.Error("external function failed", zap.String("func", key), zap.String("cmd", cmd), zap.Error(err))
	raven.CaptureError(err, map[string]string{"app": "rcon", "module": "funcs"})
}

func splitArgs(cmd string) (action, name, rest string) {
	parts := strings.SplitN(strings.TrimSpace(cmd), " ", 3)
	switch len(parts) {
	case 3:
		rest = strings.TrimSpace(parts[2])
		fallthrough
	case 2:
		name = parts[1]
		fallthrough
	case 1:
		action = parts[0]
	}
	return
}
