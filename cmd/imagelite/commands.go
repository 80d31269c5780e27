package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"imagelite/internal/geometry"
	"imagelite/internal/logging"
	"imagelite/internal/media"
	"imagelite/internal/session"
	"imagelite/internal/startup"
	"imagelite/internal/workers"
)

func requestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "strategy",
			Aliases: []string{"s"},
			Usage:   "standard, crop-to-fit, letterbox or percent",
			Value:   string(geometry.StrategyStandard),
		},
		&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Usage: "maximum width in pixels"},
		&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Usage: "maximum height in pixels"},
		&cli.IntFlag{Name: "percent", Aliases: []string{"p"}, Usage: "scale for the percent strategy, 1-100", Value: 100},
		&cli.IntFlag{Name: "quality", Aliases: []string{"q"}, Usage: "output quality, 0-100", Value: geometry.DefaultQuality},
		&cli.IntFlag{Name: "sharpen", Usage: "sharpening level, 0-100"},
		&cli.IntFlag{Name: "rotate", Usage: "counter-clockwise rotation in multiples of 90"},
		&cli.BoolFlag{Name: "keep-aspect", Usage: "keep the source aspect ratio (standard)", Value: true},
		&cli.BoolFlag{Name: "constrain", Usage: "never upscale (standard, letterbox)", Value: true},
		&cli.StringFlag{Name: "bg", Usage: "letterbox background colour as 6 hex digits", Value: geometry.DefaultBackground},
		&cli.IntFlag{Name: "bg-alpha", Usage: "letterbox background alpha, 0 opaque to 127 transparent"},
	}
}

// buildRequest turns the request flags into a geometry.Request.
func buildRequest(cmd *cli.Command) (geometry.Request, error) {
	strategy, err := geometry.ParseStrategy(cmd.String("strategy"))
	if err != nil {
		return geometry.Request{}, err
	}

	req := geometry.DefaultRequest()
	req.Strategy = strategy
	if cmd.IsSet("width") {
		req.Width = geometry.Px(int(cmd.Int("width")))
	}
	if cmd.IsSet("height") {
		req.Height = geometry.Px(int(cmd.Int("height")))
	}
	req.Percent = int(cmd.Int("percent"))
	req.Quality = int(cmd.Int("quality"))
	req.Sharpen = int(cmd.Int("sharpen"))
	req.Rotation = int(cmd.Int("rotate"))
	req.KeepAspectRatio = cmd.Bool("keep-aspect")
	req.Constrain = cmd.Bool("constrain")
	req.Background = geometry.NewBackground(cmd.String("bg"), int(cmd.Int("bg-alpha")))
	return req.Normalized(), nil
}

func requireFiles(cmd *cli.Command) ([]string, error) {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: no files given", cmd.Name)
	}
	return files, nil
}

func (a *app) resizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "resize",
		Usage:     "render cached artifacts for one or more images",
		ArgsUsage: "FILE...",
		Flags: append(requestFlags(),
			&cli.StringFlag{Name: "out", Usage: "write a single file here instead of the cache"},
			&cli.BoolFlag{Name: "create-path", Usage: "create missing directories for --out"},
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "regenerate even fresh artifacts"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"j"}, Usage: "concurrent renders (0 sizes from CPUs)"},
		),
		Action: a.resize,
	}
}

func (a *app) resize(ctx context.Context, cmd *cli.Command) error {
	files, err := requireFiles(cmd)
	if err != nil {
		return err
	}
	req, err := buildRequest(cmd)
	if err != nil {
		return err
	}

	var opts []session.TransformOption
	if out := cmd.String("out"); out != "" {
		if len(files) > 1 {
			return fmt.Errorf("--out takes a single file, got %d", len(files))
		}
		opts = append(opts, session.WithDestination(out, cmd.Bool("create-path")))
	}
	if cmd.Bool("force") {
		opts = append(opts, session.WithForce())
	}

	engine, err := a.openEngine(ctx)
	if err != nil {
		return err
	}

	n := int(cmd.Int("workers"))
	if n <= 0 {
		n = workers.ForMixed(len(files))
	}

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	go a.monitor.Run(monitorCtx)

	start := time.Now()
	results := make([]session.Result, len(files))
	indexes := make([]int, len(files))
	for i := range indexes {
		indexes[i] = i
	}
	errs := workers.Each(ctx, n, indexes, func(ctx context.Context, i int) error {
		res, err := engine.Transform(ctx, files[i], req, opts...)
		results[i] = res
		return err
	})

	p := newPrinter(a.stdout, a.output, "file", "status", "size", "bytes", "uri")
	failed := 0
	for i, file := range files {
		r := record{"file": file}
		if errs[i] != nil {
			failed++
			r["status"] = "error"
			r["error"] = errs[i].Error()
			logging.Error("%s: %v", file, errs[i])
		} else {
			res := results[i]
			r["status"] = transformStatus(res)
			r["size"] = fmt.Sprintf("%dx%d", res.Geometry.CanvasWidth, res.Geometry.CanvasHeight)
			r["bytes"] = byteSize(res.Bytes)
			r["path"] = res.Path
			r["uri"] = res.URI
			if res.Warning != nil {
				r["warning"] = res.Warning.Error()
			}
		}
		if err := p.add(r); err != nil {
			return err
		}
	}
	if err := p.flush(); err != nil {
		return err
	}

	logging.Info("Processed %d files with %d workers in %v (%d failed)", len(files), n, time.Since(start).Round(time.Millisecond), failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func transformStatus(res session.Result) string {
	if res.Generated {
		return "generated"
	}
	return "cached"
}

func (a *app) probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     "print image metadata and check it against the memory budget",
		ArgsUsage: "FILE...",
		Action:    a.probe,
	}
}

func (a *app) probe(_ context.Context, cmd *cli.Command) error {
	files, err := requireFiles(cmd)
	if err != nil {
		return err
	}

	prober := media.NewProber(a.cfg.Budget.Bytes)
	p := newPrinter(a.stdout, a.output, "file", "format", "size", "bytes", "budget")
	failed := 0
	for _, file := range files {
		r := record{"file": file}
		meta, err := prober.Probe(file)
		lerr, overBudget := media.IsResourceLimit(err)
		switch {
		case err != nil && !overBudget:
			failed++
			r["format"] = "error"
			r["error"] = err.Error()
		default:
			r["format"] = string(meta.Format)
			r["size"] = fmt.Sprintf("%dx%d", meta.Width, meta.Height)
			r["width"] = meta.Width
			r["height"] = meta.Height
			r["bytes"] = byteSize(meta.Size)
			r["modified"] = meta.ModTime.Format(time.RFC3339)
			r["budget"] = "ok"
			if overBudget {
				r["budget"] = fmt.Sprintf("needs %s-%s, fits %dx%d",
					humanize.IBytes(lerr.RequiredMin), humanize.IBytes(lerr.RequiredMax),
					lerr.RecommendedSide, lerr.RecommendedSide)
			} else if a.cfg.Budget.Bytes == 0 {
				r["budget"] = "unlimited"
			}
		}
		if err := p.add(r); err != nil {
			return err
		}
	}
	if err := p.flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be probed", failed, len(files))
	}
	return nil
}

func (a *app) keyCommand() *cli.Command {
	return &cli.Command{
		Name:      "key",
		Usage:     "resolve a transform and print its cache path without rendering",
		ArgsUsage: "FILE...",
		Flags:     requestFlags(),
		Action:    a.key,
	}
}

func (a *app) key(ctx context.Context, cmd *cli.Command) error {
	files, err := requireFiles(cmd)
	if err != nil {
		return err
	}
	req, err := buildRequest(cmd)
	if err != nil {
		return err
	}
	engine, err := a.openEngine(ctx)
	if err != nil {
		return err
	}

	p := newPrinter(a.stdout, a.output, "file", "size", "key", "uri")
	failed := 0
	for _, file := range files {
		r := record{"file": file}
		res, err := engine.Plan(file, req)
		if err != nil && !errors.Is(err, session.ErrNoDestination) {
			failed++
			r["error"] = err.Error()
			logging.Error("%s: %v", file, err)
		} else {
			g := res.Geometry
			r["size"] = fmt.Sprintf("%dx%d", g.CanvasWidth, g.CanvasHeight)
			r["key"] = res.Key.Path()
			r["strategy"] = string(res.Request.Strategy)
			r["path"] = res.Path
			r["uri"] = res.URI
		}
		if err := p.add(r); err != nil {
			return err
		}
	}
	if err := p.flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be resolved", failed, len(files))
	}
	return nil
}

func (a *app) statsCommand() *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "summarise the artifact manifest",
		Action: a.stats,
	}
}

func (a *app) stats(ctx context.Context, _ *cli.Command) error {
	db, err := a.openManifest(ctx)
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("no manifest configured (set --manifest or %s)", startup.EnvManifest)
	}

	s, err := db.Stats(ctx)
	if err != nil {
		return err
	}

	p := newPrinter(a.stdout, a.output, "strategy", "artifacts", "bytes")
	for _, ss := range s.ByStrategy {
		if err := p.add(record{
			"strategy":  ss.Strategy,
			"artifacts": ss.Artifacts,
			"bytes":     byteSize(ss.Bytes),
		}); err != nil {
			return err
		}
	}
	total := record{
		"strategy":    "total",
		"artifacts":   s.Artifacts,
		"bytes":       byteSize(s.TotalBytes),
		"sources":     s.Sources,
		"generations": s.Generations,
	}
	if !s.Oldest.IsZero() {
		total["oldest"] = s.Oldest.Format(time.RFC3339)
		total["newest"] = s.Newest.Format(time.RFC3339)
	}
	if err := p.add(total); err != nil {
		return err
	}
	return p.flush()
}
