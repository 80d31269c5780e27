package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/urfave/cli/v3"

	"imagelite/internal/database"
	"imagelite/internal/filesystem"
	"imagelite/internal/logging"
	"imagelite/internal/media"
	"imagelite/internal/memory"
	"imagelite/internal/metrics"
	"imagelite/internal/session"
	"imagelite/internal/startup"
)

// app holds what the commands share. The engine and manifest are opened on
// first use so that probe works without a cache directory.
type app struct {
	stdout io.Writer
	cfg    *startup.Config
	output string

	engineOnce sync.Once
	engine     *session.Engine
	engineErr  error

	manifest *database.Database
	monitor  *memory.Monitor
	vips     bool
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	a := &app{stdout: stdout}

	return &cli.Command{
		Name:      "imagelite",
		Usage:     "resize images into a deterministic on-disk cache",
		Version:   startup.Version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     globalFlags(),
		Before:    a.before,
		After:     a.after,
		Commands: []*cli.Command{
			a.resizeCommand(),
			a.probeCommand(),
			a.keyCommand(),
			a.statsCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "cache-dir",
			Usage:   "cache root for artifacts",
			Sources: cli.NewValueSourceChain(cli.EnvVar(startup.EnvCacheDir)),
		},
		&cli.BoolFlag{
			Name:    "cache-create",
			Usage:   "create the cache root when it does not exist",
			Sources: cli.NewValueSourceChain(cli.EnvVar(startup.EnvCacheCreate)),
		},
		&cli.StringFlag{
			Name:    "cache-uri",
			Usage:   "URI prefix for cached artifacts",
			Sources: cli.NewValueSourceChain(cli.EnvVar(startup.EnvCacheURI)),
		},
		&cli.StringFlag{
			Name:    "document-root",
			Usage:   "web document root used to derive URIs",
			Sources: cli.NewValueSourceChain(cli.EnvVar(startup.EnvDocumentRoot)),
		},
		&cli.StringFlag{
			Name:    "lifetime",
			Usage:   `artifact lifetime, e.g. "-1 month" or "36h"; empty never expires`,
			Sources: cli.NewValueSourceChain(cli.EnvVar(startup.EnvLifetime)),
		},
		&cli.StringFlag{
			Name:    "mode",
			Usage:   "octal mode for created directories",
			Value:   "0755",
			Sources: cli.NewValueSourceChain(cli.EnvVar(startup.EnvMode)),
		},
		&cli.StringFlag{
			Name:    "codec",
			Usage:   "imaging or vips",
			Value:   "imaging",
			Sources: cli.NewValueSourceChain(cli.EnvVar(startup.EnvCodec)),
		},
		&cli.StringFlag{
			Name:    "manifest",
			Usage:   "SQLite manifest recording generated artifacts",
			Sources: cli.NewValueSourceChain(cli.EnvVar(startup.EnvManifest)),
		},
		&cli.StringFlag{
			Name:    "metrics-file",
			Usage:   "write Prometheus metrics to this textfile on exit",
			Sources: cli.NewValueSourceChain(cli.EnvVar(startup.EnvMetricsFile)),
		},
		&cli.StringFlag{
			Name:    "memory-budget",
			Usage:   `per-image processing budget, e.g. "512MiB" or "off"`,
			Sources: cli.NewValueSourceChain(cli.EnvVar(startup.EnvMemoryBudget)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "debug, info, warn or error",
			Sources: cli.NewValueSourceChain(cli.EnvVar(startup.EnvLogLevel)),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "auto, table or json",
			Value:   "auto",
			Validator: func(v string) error {
				switch v {
				case "auto", "table", "json":
					return nil
				}
				return fmt.Errorf("invalid output %q (want auto, table or json)", v)
			},
		},
	}
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if lvl := cmd.String("log-level"); lvl != "" {
		level, ok := logging.ParseLevel(lvl)
		if !ok {
			return ctx, fmt.Errorf("invalid log level %q", lvl)
		}
		logging.SetLevel(level)
	}

	cfg, err := startup.NewConfig(startup.Settings{
		CacheDir:     cmd.String("cache-dir"),
		CacheCreate:  cmd.Bool("cache-create"),
		CacheURI:     cmd.String("cache-uri"),
		DocumentRoot: cmd.String("document-root"),
		Lifetime:     cmd.String("lifetime"),
		Mode:         cmd.String("mode"),
		Codec:        cmd.String("codec"),
		Manifest:     cmd.String("manifest"),
		MetricsFile:  cmd.String("metrics-file"),
		MemoryBudget: cmd.String("memory-budget"),
	})
	if err != nil {
		return ctx, err
	}
	startup.LogConfig(cfg)

	a.cfg = cfg
	a.output = cmd.String("output")

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, cfg.Codec, startup.GoVersion)
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"cache":    cfg.CacheDir,
		"document": cfg.DocumentRoot,
	}))
	return ctx, nil
}

func (a *app) after(_ context.Context, _ *cli.Command) error {
	if a.cfg == nil {
		return nil
	}
	if a.manifest != nil {
		if err := a.manifest.Close(); err != nil {
			logging.Warn("Failed to close manifest: %v", err)
		}
	}
	if a.vips {
		media.ShutdownVips()
	}
	if err := metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

// openEngine builds the engine, initialising libvips and the manifest as
// configured.
func (a *app) openEngine(ctx context.Context) (*session.Engine, error) {
	a.engineOnce.Do(func() {
		var opts []session.Option

		if a.cfg.Codec == "vips" {
			if err := media.InitVips(media.DefaultVipsConfig()); err != nil {
				a.engineErr = err
				return
			}
			a.vips = true
		}

		db, err := a.openManifest(ctx)
		if err != nil {
			a.engineErr = err
			return
		}
		if db != nil {
			opts = append(opts, session.WithManifest(db))
		}

		a.monitor = memory.NewMonitor(memory.DefaultMonitorConfig())
		opts = append(opts, session.WithMonitor(a.monitor))

		a.engine, a.engineErr = session.NewEngine(a.cfg.EngineConfig(), opts...)
	})
	return a.engine, a.engineErr
}

// openManifest opens the configured manifest, or returns nil when none is
// configured.
func (a *app) openManifest(ctx context.Context) (*database.Database, error) {
	if a.manifest != nil || a.cfg.ManifestPath == "" {
		return a.manifest, nil
	}
	db, err := database.New(ctx, a.cfg.ManifestPath)
	if err != nil {
		return nil, err
	}
	a.manifest = db
	return db, nil
}
