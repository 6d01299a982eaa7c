package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"

	raven "github.com/getsentry/raven-go"
	"github.com/golang/glog"
	"github.com/kolide/kit/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	app    = "PlayNet GoRcon-MC - OpenSource Minecraft Server Manager"
	appKey = "gorcon-mc"
)

type options struct {
	configPath string
	debug      bool
	devBuild   bool
	maxprocs   int
}

func main() {
	defer glog.Flush()

	var err error
	raven.CapturePanicAndWait(func() {
		err = newRootCommand().Execute()
	}, map[string]string{"app": appKey})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
			raven.CaptureErrorAndWait(err, map[string]string{"app": appKey, "isFinal": "true"})
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	var log *zap.Logger

	rootCmd := &cobra.Command{
		Use:           appKey,
		Short:         app,
		Version:       version.Version().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// glog flags are parsed by cobra, mark the go flagset as parsed
			flag.CommandLine.Parse(nil)
			glog.CopyStandardLogTo("INFO")
			runtime.GOMAXPROCS(opts.maxprocs)

			var fields []zap.Field
			// hide app and version information when debugging
			if !opts.debug {
				fields = []zap.Field{
					zap.String("app", appKey),
					zap.String("version", version.Version().Version),
				}
			}
			log = newLogger(opts.debug).With(fields...)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), log, opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config-path", ".", "config parent folder")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "debug printing")
	rootCmd.PersistentFlags().BoolVar(&opts.devBuild, "devbuild", false, "set dev build mode")
	rootCmd.PersistentFlags().IntVar(&opts.maxprocs, "maxprocs", runtime.NumCPU(), "max go procs")
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newExecCommand(opts, &log))
	rootCmd.AddCommand(newWhitelistCommand(opts, &log))
	rootCmd.AddCommand(newBanCommand(opts, &log))
	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print full build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion()
		},
	}
}

func printVersion() {
	fmt.Printf("-- PlayNet %s --\n", app)
	version.PrintFull()
}
