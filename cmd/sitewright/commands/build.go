package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitewright/internal/bootstrap"
	"git.home.luguber.info/inful/sitewright/internal/build"
	"git.home.luguber.info/inful/sitewright/internal/render"
	"git.home.luguber.info/inful/sitewright/internal/storage"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output  string `short:"o" help:"Output directory override"`
	Workers int    `short:"w" help:"Number of parallel build workers (overrides config)"`
}

func (b *BuildCmd) Run(root *CLI) error {
	cfg, err := loadSettings(root)
	if err != nil {
		return err
	}
	if b.Output != "" {
		cfg.Locations.Output = b.Output
	}
	if b.Workers > 0 {
		cfg.Build.Workers = b.Workers
	}

	env, err := setupEnv(cfg)
	if err != nil {
		return err
	}
	defer env.close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pipeline, err := bootstrap.New(bootstrap.Options{
		Settings: cfg,
		Mode:     bootstrap.ModeBuild,
		Events:   env.store,
	})
	if err != nil {
		return err
	}
	if err := pipeline.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	renderer, err := render.New(pipeline.View(), pipeline.Routes(), pipeline.Data())
	if err != nil {
		return fmt.Errorf("set up renderer: %w", err)
	}
	writer, err := storage.NewPageWriter(cfg.Locations.Output)
	if err != nil {
		return err
	}

	result, err := build.Run(ctx, build.Options{
		Pipeline: pipeline,
		Renderer: renderer,
		Writer:   writer,
		Workers:  cfg.Build.Workers,
		Progress: env.progress,
		Events:   env.store,
	})
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	if len(result.Errors) > 0 {
		return fmt.Errorf("build finished with %d of %d requests failed", len(result.Errors), result.Total)
	}
	slog.Info("Site built", "output", cfg.Locations.Output, "pages", result.Total, "duration", result.Duration)
	return nil
}
