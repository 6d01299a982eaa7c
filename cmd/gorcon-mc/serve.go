package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	raven "github.com/getsentry/raven-go"
	"github.com/golang/glog"
	"github.com/kolide/kit/version"
	"github.com/playnet-public/gorcon-mc/pkg/api"
	"github.com/playnet-public/gorcon-mc/pkg/config"
	"github.com/playnet-public/gorcon-mc/pkg/rcon/client"
	"github.com/playnet-public/gorcon-mc/pkg/rcon/funcs"
	"github.com/playnet-public/gorcon-mc/pkg/scheduler"
	"go.uber.org/zap"
)

//closeTimeout bounds how long shutdown waits for queued commands
const closeTimeout = 30 * time.Second

//setup loads the config and prepares error reporting
func setup(log *zap.Logger, opts *options) (*config.Config, error) {
	glog.V(1).Infof("reading config from %s", opts.configPath)
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if !opts.devBuild && cfg.Sentry.DSN != "" {
		if err := raven.SetDSN(cfg.Sentry.DSN); err != nil {
			log.Warn("invalid sentry dsn", zap.Error(err))
		}
		raven.SetIncludePaths([]string{
			"github.com/playnet-public/gorcon-mc/pkg/",
		})
		raven.SetRelease(version.Version().Version)
	}
	if cfg.Debug {
		log.Debug("config loaded", zap.Stringer("config", cfg))
	}
	return cfg, nil
}

//withClient connects a dispatcher, runs f and closes the dispatcher once every queued command was sent
func withClient(ctx context.Context, log *zap.Logger, cfg *config.Config, f func(c *client.Client) error) (err error) {
	c := client.New(log, cfg.Connection())
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if cerr := c.Close(closeCtx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return f(c)
}

//serve runs the dispatcher with the scheduler and api until SIGINT or SIGTERM
func serve(ctx context.Context, log *zap.Logger, opts *options) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printVersion()
	log.Info("preparing")
	cfg, err := setup(log, opts)
	if err != nil {
		return err
	}
	return withClient(ctx, log, cfg, func(c *client.Client) error {
		rconFuncs := funcs.New(log, c)

		if cfg.Scheduler.Enabled {
			sched, err := newScheduler(log, cfg.Scheduler.Path)
			if err != nil {
				return err
			}
			sched.UpdateFuncs(c.ExtFuncs(), rconFuncs.ExtFuncs())
			if err := sched.BuildEvents(); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()
		}

		errs := make(chan error, 1)
		if cfg.API.Enabled {
			a := api.New(log, c, rconFuncs, cfg.Rcon.Timeout)
			go func() {
				if err := a.Run(ctx, cfg.API.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errs <- err
				}
			}()
		}

		log.Info("running", zap.Stringer("server", cfg.Connection()))
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		case err := <-errs:
			return err
		}
	})
}

func newScheduler(log *zap.Logger, path string) (*scheduler.Scheduler, error) {
	schedule, err := scheduler.ReadSchedule(path)
	if err != nil {
		return nil, err
	}
	return scheduler.New(log.Named("scheduler"), path, schedule, nil), nil
}
