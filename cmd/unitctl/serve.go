package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/danmuck/unitctl/internal/auth"
	"github.com/danmuck/unitctl/internal/config"
	"github.com/danmuck/unitctl/internal/engine"
	"github.com/danmuck/unitctl/internal/guard"
	"github.com/danmuck/unitctl/internal/loader"
	"github.com/danmuck/unitctl/internal/monitor"
	"github.com/danmuck/unitctl/internal/server"
	"github.com/danmuck/unitctl/internal/startup"
	"golang.org/x/sync/errgroup"
)

type ServeCmd struct {
	Addr string `help:"Override the listen address from config."`
}

func (c *ServeCmd) Run(app *App) error {
	cfg, store, cat, err := app.load()
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}
	logger := app.logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	host := engine.NewHeadless(cat.Known).WithLogger(logger)
	l := loader.New(store, host, loader.WithLogger(logger))
	g := guard.New(store, cat, host, guard.WithLogger(logger))

	boot := startup.New(store, host,
		startup.WithLogger(logger),
		startup.WithEditorMode(cfg.Mode == config.ModeEditor),
	)
	if cfg.Mode == config.ModePlayer && cfg.StartRoot != "" {
		if err := host.LoadUnit(cfg.StartRoot, engine.Exclusive); err != nil {
			return fmt.Errorf("load start root %q: %w", cfg.StartRoot, err)
		}
	}
	boot.Apply()

	srv := server.New("unitctl", cfg.Server.Addr, cfg.Server.CorsOrigins, store, cat,
		server.WithLogger(logger),
		server.WithGuard(g),
		server.WithLoader(l),
		server.WithWriteAuth(auth.FromConfig(cfg.Server.Token)),
		server.WithUnitExtension(cfg.UnitExtension),
	)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.Serve(gctx)
	})
	if cfg.Watch.Enabled {
		syncer := monitor.NewSynchronizer(store, cat, monitor.WithLogger(logger))
		watcher := monitor.NewWatcher(cfg.ContentRoot, cat,
			monitor.WithDebounce(cfg.Watch.Debounce),
			monitor.WithWatcherLogger(logger),
		)
		group.Go(func() error {
			return watcher.Run(gctx, func(batch monitor.Batch) {
				syncer.Handle(batch)
			})
		})
	}

	runErr := group.Wait()
	if err := store.Flush(); err != nil {
		logger.Error().Err(err).Msg("unitctl.serve flush on shutdown failed")
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}
