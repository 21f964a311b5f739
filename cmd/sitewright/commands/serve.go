package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/sitewright/internal/bootstrap"
	"git.home.luguber.info/inful/sitewright/internal/config"
	"git.home.luguber.info/inful/sitewright/internal/metrics"
	"git.home.luguber.info/inful/sitewright/internal/render"
	"git.home.luguber.info/inful/sitewright/internal/server"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr    string `help:"Listen address override (e.g. :8080)"`
	NoWatch bool   `help:"Disable rebuild on content changes"`
}

func (s *ServeCmd) Run(root *CLI) error {
	cfg, err := loadSettings(root)
	if err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.Server.Addr = s.Addr
	}

	env, err := setupEnv(cfg)
	if err != nil {
		return err
	}
	defer env.close()

	recorder := metrics.NewPrometheusRecorder()

	makeRuntime := func(ctx context.Context) (*server.Runtime, error) {
		pipeline, err := bootstrap.New(bootstrap.Options{
			Settings: cfg,
			Mode:     bootstrap.ModeServer,
			Events:   env.store,
			Recorder: recorder,
		})
		if err != nil {
			return nil, err
		}
		if err := pipeline.Bootstrap(ctx); err != nil {
			return nil, err
		}
		renderer, err := render.New(pipeline.View(), pipeline.Routes(), pipeline.Data())
		if err != nil {
			return nil, err
		}
		return &server.Runtime{Pipeline: pipeline, Renderer: renderer}, nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	initial, err := makeRuntime(ctx)
	if err != nil {
		return fmt.Errorf("initial bootstrap: %w", err)
	}

	srv, err := server.New(initial, server.Options{
		Addr:    cfg.Server.Addr,
		Rebuild: makeRuntime,
		Metrics: recorder.Handler(),
	})
	if err != nil {
		return err
	}

	rebuild := func(ctx context.Context) {
		if err := srv.Rebuild(ctx); err != nil {
			slog.Error("Rebuild failed, keeping previous site", "error", err)
		}
	}

	if !s.NoWatch {
		watcher, err := server.NewContentWatcher(watchDirs(cfg), rebuild)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			slog.Warn("Content watching disabled", "error", err)
		} else {
			defer watcher.Stop() //nolint:errcheck
		}
	}

	if every := cfg.Build.RebuildEvery; every != "" {
		interval, err := time.ParseDuration(every)
		if err != nil {
			return fmt.Errorf("parse build.rebuild_every: %w", err)
		}
		scheduler, err := server.NewRebuildScheduler()
		if err != nil {
			return err
		}
		if _, err := scheduler.SchedulePeriodicRebuild(interval, rebuild); err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop() //nolint:errcheck
	}

	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	slog.Info("Shutdown signal received")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	return srv.Stop(stopCtx)
}

// watchDirs returns the directories whose changes invalidate the site.
func watchDirs(cfg *config.Settings) []string {
	dirs := []string{cfg.Locations.Content, cfg.Locations.Templates}
	if cfg.Locations.Assets != "" {
		dirs = append(dirs, cfg.Locations.Assets)
	}
	return dirs
}
