package funcs

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/playnet-public/gorcon-mc/pkg/common"
	"go.uber.org/zap"
)

const (
	//MaxUsernameLength is the longest account name the server accepts
	MaxUsernameLength = 16

	defaultKickReason = "No reason provided."
	defaultBanReason  = "No reason provided"
	renameReason      = "Changed username"
)

//Commander is the part of the dispatcher the admin functions depend on
type Commander interface {
	Command(ctx context.Context, cmd string, wait bool) (string, error)
}

//RconFuncs defines a common set of admin functions that is exported for external use
type RconFuncs struct {
	log    *zap.Logger
	Client Commander
}

//New RconFuncs Instance
func New(log *zap.Logger, c Commander) *RconFuncs {
	return &RconFuncs{
		log:    log,
		Client: c,
	}
}

//ValidateUsername checks that name could be an account name before it is put into a command
func ValidateUsername(name string) error {
	if name == "" || len(name) > MaxUsernameLength {
		return fmt.Errorf("%w: %q", common.ErrInvalidUsername, name)
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: %q", common.ErrInvalidUsername, name)
	}
	return nil
}

func (f RconFuncs) queue(ctx context.Context, cmds ...string) error {
	for _, cmd := range cmds {
		f.log.Debug("queueing command", zap.String("cmd", cmd))
		if _, err := f.Client.Command(ctx, cmd, false); err != nil {
			return err
		}
	}
	return nil
}

//WhitelistAdd allows username to join the server
func (f RconFuncs) WhitelistAdd(ctx context.Context, username string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	return f.queue(ctx, fmt.Sprintf("whitelist add %s", username))
}

//WhitelistRemove revokes the whitelist entry of username and kicks the player if online
func (f RconFuncs) WhitelistRemove(ctx context.Context, username, reason string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if reason == "" {
		reason = defaultKickReason
	}
	return f.queue(ctx,
		fmt.Sprintf("whitelist remove %s", username),
		fmt.Sprintf("kick %s %s", username, reason),
	)
}

//BanAdd removes username from the whitelist and bans it
func (f RconFuncs) BanAdd(ctx context.Context, username, reason string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if reason == "" {
		reason = defaultBanReason
	}
	return f.queue(ctx,
		fmt.Sprintf("whitelist remove %s", username),
		fmt.Sprintf("ban %s %s", username, reason),
	)
}

//BanRemove pardons username
func (f RconFuncs) BanRemove(ctx context.Context, username string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	return f.queue(ctx, fmt.Sprintf("pardon %s", username))
}

//Unban pardons username and puts it back on the whitelist
func (f RconFuncs) Unban(ctx context.Context, username string) error {
	if err := f.BanRemove(ctx, username); err != nil {
		return err
	}
	return f.WhitelistAdd(ctx, username)
}

//Rename moves the whitelist entry from oldName to newName
func (f RconFuncs) Rename(ctx context.Context, oldName, newName string) error {
	if err := ValidateUsername(oldName); err != nil {
		return err
	}
	if err := ValidateUsername(newName); err != nil {
		return err
	}
	if err := f.WhitelistRemove(ctx, oldName, renameReason); err != nil {
		return err
	}
	return f.WhitelistAdd(ctx, newName)
}

//Exec runs cmd synchronously and returns the server output
func (f RconFuncs) Exec(ctx context.Context, cmd string) (string, error) {
	f.log.Debug("sending command", zap.String("cmd", cmd))
	return f.Client.Command(ctx, cmd, true)
}
