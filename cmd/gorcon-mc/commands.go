package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/playnet-public/gorcon-mc/pkg/rcon/client"
	"github.com/playnet-public/gorcon-mc/pkg/rcon/funcs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//runFuncs loads the config and runs f against a connected dispatcher
func runFuncs(ctx context.Context, log *zap.Logger, opts *options, f func(rf *funcs.RconFuncs) error) error {
	cfg, err := setup(log, opts)
	if err != nil {
		return err
	}
	return withClient(ctx, log, cfg, func(c *client.Client) error {
		return f(funcs.New(log, c))
	})
}

func newExecCommand(opts *options, log **zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <command...>",
		Short: "Run a single command and print the server response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFuncs(cmd.Context(), *log, opts, func(rf *funcs.RconFuncs) error {
				res, err := rf.Exec(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
}

func newWhitelistCommand(opts *options, log **zap.Logger) *cobra.Command {
	whitelistCmd := &cobra.Command{
		Use:   "whitelist",
		Short: "Manage whitelist entries",
	}
	whitelistCmd.AddCommand(&cobra.Command{
		Use:   "add <username>",
		Short: "Whitelist a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFuncs(cmd.Context(), *log, opts, func(rf *funcs.RconFuncs) error {
				return rf.WhitelistAdd(cmd.Context(), args[0])
			})
		},
	})
	whitelistCmd.AddCommand(&cobra.Command{
		Use:   "remove <username> [reason...]",
		Short: "Remove a user from the whitelist and kick them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFuncs(cmd.Context(), *log, opts, func(rf *funcs.RconFuncs) error {
				return rf.WhitelistRemove(cmd.Context(), args[0], strings.Join(args[1:], " "))
			})
		},
	})
	whitelistCmd.AddCommand(&cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Move a whitelist entry to a new username",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFuncs(cmd.Context(), *log, opts, func(rf *funcs.RconFuncs) error {
				return rf.Rename(cmd.Context(), args[0], args[1])
			})
		},
	})
	return whitelistCmd
}

func newBanCommand(opts *options, log **zap.Logger) *cobra.Command {
	banCmd := &cobra.Command{
		Use:   "ban",
		Short: "Manage bans",
	}
	banCmd.AddCommand(&cobra.Command{
		Use:   "add <username> [reason...]",
		Short: "Ban a user and remove them from the whitelist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFuncs(cmd.Context(), *log, opts, func(rf *funcs.RconFuncs) error {
				return rf.BanAdd(cmd.Context(), args[0], strings.Join(args[1:], " "))
			})
		},
	})
	banCmd.AddCommand(&cobra.Command{
		Use:   "remove <username>",
		Short: "Pardon a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFuncs(cmd.Context(), *log, opts, func(rf *funcs.RconFuncs) error {
				return rf.BanRemove(cmd.Context(), args[0])
			})
		},
	})
	banCmd.AddCommand(&cobra.Command{
		Use:   "lift <username>",
		Short: "Pardon a user and whitelist them again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFuncs(cmd.Context(), *log, opts, func(rf *funcs.RconFuncs) error {
				return rf.Unban(cmd.Context(), args[0])
			})
		},
	})
	return banCmd
}
