package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"imagelite/internal/cache"
	"imagelite/internal/database"
	"imagelite/internal/filesystem"
	"imagelite/internal/geometry"
	"imagelite/internal/logging"
	"imagelite/internal/media"
	"imagelite/internal/memory"
	"imagelite/internal/metrics"
)

// ErrNoDestination is returned when a transform has neither a cache root
// nor a custom destination to write to.
var ErrNoDestination = errors.New("no cache directory or destination configured")

// Config is the engine configuration.
type Config struct {
	// CacheRoot is where artifacts are written. Empty means only custom
	// destinations can be used.
	CacheRoot string
	// CreateCacheRoot creates a missing CacheRoot.
	CreateCacheRoot bool
	// URIPrefix replaces the document-root mapping of CacheRoot in URIs.
	URIPrefix    string
	DocumentRoot string
	Lifetime     cache.Lifetime
	DirMode      os.FileMode
	// Budget is the processing memory budget in bytes; zero disables the
	// resource check.
	Budget uint64
	// Codec is "imaging" or "vips".
	Codec string
}

// Manifest records generated artifacts. *database.Database implements it.
type Manifest interface {
	RecordArtifact(ctx context.Context, a database.Artifact) error
}

// Option configures an Engine.
type Option func(e *Engine)

// WithManifest records every generated artifact in m.
func WithManifest(m Manifest) Option {
	return func(e *Engine) {
		e.manifest = m
	}
}

// WithCodec overrides the codec named in Config.
func WithCodec(c media.Codec) Option {
	return func(e *Engine) {
		e.codec = c
	}
}

// WithMonitor holds renders back while m reports critical memory use.
func WithMonitor(m *memory.Monitor) Option {
	return func(e *Engine) {
		e.monitor = m
	}
}

// WithClock replaces time.Now for freshness decisions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine runs transforms. It is safe for concurrent use.
type Engine struct {
	cfg      Config
	store    *cache.Store
	codec    media.Codec
	prober   *media.Prober
	manifest Manifest
	monitor  *memory.Monitor
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewEngine validates the cache root and selects the codec.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.DirMode == 0 {
		cfg.DirMode = 0o755
	}

	e := &Engine{
		cfg:      cfg,
		prober:   media.NewProber(cfg.Budget),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(e)
	}

	store, err := cache.NewStore(cfg.CacheRoot,
		cache.WithDirMode(cfg.DirMode),
		cache.WithCreateRoot(cfg.CreateCacheRoot),
		cache.WithRetry(e.prober.Retry),
	)
	if err != nil {
		return nil, fmt.Errorf("cache directory: %w", err)
	}
	e.store = store

	if e.codec == nil {
		codec, err := media.NewCodec(cfg.Codec)
		if err != nil {
			return nil, err
		}
		e.codec = codec
	}

	logging.Debug("Engine ready: cache=%q codec=%s lifetime=%s", store.Root(), e.codec.Name(), cfg.Lifetime)
	return e, nil
}

// Config returns the engine configuration with the cache root made absolute.
func (e *Engine) Config() Config {
	cfg := e.cfg
	cfg.CacheRoot = e.store.Root()
	return cfg
}

// Codec returns the codec in use.
func (e *Engine) Codec() media.Codec {
	return e.codec
}

// TransformOption adjusts a single transform.
type TransformOption func(t *transformOptions)

type transformOptions struct {
	destination string
	createPath  bool
	force       bool
}

// WithDestination writes to path instead of the cache. Missing parent
// directories are created when createPath is set.
func WithDestination(path string, createPath bool) TransformOption {
	return func(t *transformOptions) {
		t.destination = path
		t.createPath = createPath
	}
}

// WithForce regenerates the artifact even when it is fresh.
func WithForce() TransformOption {
	return func(t *transformOptions) {
		t.force = true
	}
}

// Result describes a planned or completed transform.
type Result struct {
	Source   media.SourceMeta
	Request  geometry.Request
	Geometry geometry.Geometry
	Key      cache.Key
	// Path is the absolute artifact path, in the cache or the custom
	// destination.
	Path string
	URI  string
	// Status is the artifact state found before rendering.
	Status    cache.Status
	Generated bool
	Bytes     int64
	// Warning holds a *media.ResourceLimitError when the source is larger
	// than the processing budget. The transform is still attempted.
	Warning error
}

// Plan probes the source and resolves req without touching the cache.
// With no cache root and no destination it returns the resolved result
// together with ErrNoDestination.
func (e *Engine) Plan(path string, req geometry.Request, opts ...TransformOption) (Result, error) {
	var o transformOptions
	for _, opt := range opts {
		opt(&o)
	}
	return e.plan(path, req, o)
}

func (e *Engine) plan(path string, req geometry.Request, o transformOptions) (Result, error) {
	res, err := e.resolve(path, req)
	if err != nil {
		return Result{}, err
	}
	// the resolved key is still returned when there is nowhere to write
	if err := e.locate(&res, o); err != nil {
		return res, err
	}
	return res, nil
}

// resolve probes the source and derives geometry and key. Keys hash the
// canonical path, so a file reached through a symlink shares its artifacts.
func (e *Engine) resolve(path string, req geometry.Request) (Result, error) {
	req = req.Normalized()

	canonical, err := canonicalPath(path)
	if err != nil {
		return Result{}, err
	}
	meta, err := e.prober.Probe(canonical)
	var warning error
	if err != nil {
		if _, ok := media.IsResourceLimit(err); !ok {
			return Result{}, err
		}
		warning = err
	}

	src := geometry.Source{Width: meta.Width, Height: meta.Height}
	geo, err := geometry.Resolve(req, src)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", meta.Path, err)
	}

	return Result{
		Source:   meta,
		Request:  req,
		Geometry: geo,
		Key:      cache.DeriveKey(meta.Path, geo, req, meta.Format),
		Warning:  warning,
	}, nil
}

// locate fills in the artifact path and URI.
func (e *Engine) locate(res *Result, o transformOptions) error {
	switch {
	case o.destination != "":
		dest, err := filepath.Abs(o.destination)
		if err != nil {
			return fmt.Errorf("resolving destination %s: %w", o.destination, err)
		}
		res.Path = dest
		res.URI = cache.DocumentURI(dest, e.cfg.DocumentRoot)
	case e.store.HasRoot():
		res.Path = e.store.Path(res.Key)
		res.URI = cache.ArtifactURI(res.Key, e.cfg.URIPrefix, e.store.Root(), e.cfg.DocumentRoot)
	default:
		res.Path, res.URI = "", ""
		return ErrNoDestination
	}
	return nil
}

// Transform probes path, resolves req and renders the artifact unless a
// fresh one already exists.
func (e *Engine) Transform(ctx context.Context, path string, req geometry.Request, opts ...TransformOption) (res Result, err error) {
	start := time.Now()
	strategy := req.Strategy
	if strategy == "" {
		strategy = geometry.StrategyStandard
	}
	defer func() {
		status := "cached"
		switch {
		case err != nil:
			status = "error"
		case res.Generated:
			status = "generated"
		}
		metrics.TransformsTotal.WithLabelValues(string(strategy), status).Inc()
		metrics.TransformDuration.WithLabelValues(string(strategy)).Observe(time.Since(start).Seconds())
	}()

	var o transformOptions
	for _, opt := range opts {
		opt(&o)
	}

	res, err = e.plan(path, req, o)
	if err != nil {
		return Result{}, err
	}
	if !e.codec.Supports(res.Source.Format) {
		return Result{}, fmt.Errorf("%w: %s codec cannot write %s", media.ErrUnsupportedFormat, e.codec.Name(), res.Source.Format)
	}

	if !o.force {
		status, info, err := e.store.Lookup(res.Path, e.now(), e.cfg.Lifetime)
		if err != nil {
			return Result{}, err
		}
		res.Status = status
		if status == cache.StatusHit {
			res.Bytes = info.Size()
			logging.Debug("Cache hit: %s", res.Path)
			return res, nil
		}
	} else {
		metrics.CacheLookupsTotal.WithLabelValues("forced").Inc()
	}

	if err := e.monitor.Wait(ctx); err != nil {
		return Result{}, err
	}

	src, err := filesystem.ReadFileWithRetry(res.Source.Path, e.prober.Retry)
	if err != nil {
		return Result{}, fmt.Errorf("reading source: %w", err)
	}

	job := media.NewJob(res.Request, geometry.Source{Width: res.Source.Width, Height: res.Source.Height}, res.Geometry, res.Source.Format)
	createDirs := true
	if o.destination != "" {
		createDirs = o.createPath
	}

	n, shared, err := e.store.Write(ctx, res.Path, createDirs, func(w io.Writer) error {
		renderStart := time.Now()
		if err := e.codec.Render(src, job, w); err != nil {
			metrics.RenderErrors.WithLabelValues(e.codec.Name()).Inc()
			return fmt.Errorf("rendering %s: %w", res.Source.Path, err)
		}
		metrics.RenderDuration.WithLabelValues(e.codec.Name()).Observe(time.Since(renderStart).Seconds())
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	res.Generated = !shared
	res.Bytes = n

	if e.manifest != nil && res.Generated {
		if err := e.manifest.RecordArtifact(ctx, database.Artifact{
			CachePath:   res.Path,
			SourcePath:  res.Source.Path,
			Strategy:    string(res.Request.Strategy),
			Width:       res.Geometry.CanvasWidth,
			Height:      res.Geometry.CanvasHeight,
			Format:      string(res.Source.Format),
			Bytes:       n,
			GeneratedAt: e.now(),
		}); err != nil {
			logging.Warn("Failed to record artifact %s in manifest: %v", res.Path, err)
		}
	}

	logging.Debug("Generated %s (%dx%d, %d bytes)", res.Path, res.Geometry.CanvasWidth, res.Geometry.CanvasHeight, n)
	return res, nil
}

// Session returns the session registered for path, creating it on first
// use. Paths are canonicalised, so different spellings of the same file
// share a session.
func (e *Engine) Session(path string) (*Session, error) {
	canonical, err := canonicalPath(path)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.sessions[canonical]; ok {
		return s, nil
	}
	s := newSession(e, canonical)
	e.sessions[canonical] = s
	metrics.SessionsActive.Set(float64(len(e.sessions)))
	return s, nil
}

// Release drops the registered session for path.
func (e *Engine) Release(path string) {
	canonical, err := canonicalPath(path)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, canonical)
	metrics.SessionsActive.Set(float64(len(e.sessions)))
}

// Sessions returns the number of registered sessions.
func (e *Engine) Sessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

func canonicalPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty source path", geometry.ErrInvalidArgument)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}
