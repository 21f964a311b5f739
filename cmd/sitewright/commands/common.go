// Package commands defines the sitewright CLI commands.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitewright/internal/config"
	"git.home.luguber.info/inful/sitewright/internal/eventstore"
	"git.home.luguber.info/inful/sitewright/internal/worker"
)

// CLI is the root command definition and global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"sitewright.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" help:"Build the site into the output directory"`
	Serve ServeCmd `cmd:"" help:"Serve the site with on-demand rendering and rebuild on change"`
	Init  InitCmd  `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; installs provisional logging until the
// configuration is loaded.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadSettings loads the configuration and installs the configured logger.
func loadSettings(root *CLI) (*config.Settings, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Logging.Setup(root.Verbose)
	return cfg, nil
}

// buildEnv bundles the optional infrastructure a build or serve run wires up.
type buildEnv struct {
	store    eventstore.Store
	progress worker.Sink
	natsPub  *worker.NATSPublisher
}

// setupEnv opens the event store and progress publisher when configured.
func setupEnv(cfg *config.Settings) (*buildEnv, error) {
	env := &buildEnv{}
	view := cfg.View()

	if path := view.EventStorePath(); path != "" {
		store, err := eventstore.NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("open event store: %w", err)
		}
		env.store = store
	}

	sinks := []worker.Sink{logProgress}
	if progress := view.Progress(); progress.NATSURL != "" {
		pub, err := worker.NewNATSPublisher(progress.NATSURL, progress.Subject)
		if err != nil {
			env.close()
			return nil, fmt.Errorf("connect progress publisher: %w", err)
		}
		env.natsPub = pub
		sinks = append(sinks, pub.Sink())
	}
	env.progress = worker.MultiSink(sinks...)
	return env, nil
}

// close releases the environment's resources.
func (e *buildEnv) close() {
	if e.natsPub != nil {
		e.natsPub.Close()
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			slog.Warn("Failed to close event store", "error", err)
		}
	}
}

// logProgress reports per-request failures as they happen.
func logProgress(e worker.Event) {
	c, ok := e.(worker.Completed)
	if !ok || c.Detail == nil {
		return
	}
	slog.Warn("Request build failed",
		"permalink", c.Detail.Request.Permalink,
		"route", c.Detail.Request.Route,
		"error", c.Detail.Err)
}
