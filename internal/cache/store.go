package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"

	"imagelite/internal/filesystem"
	"imagelite/internal/logging"
	"imagelite/internal/metrics"
)

// ErrIO reports a cache directory or artifact write failure.
var ErrIO = errors.New("cache i/o error")

// Status is the outcome of an artifact lookup.
type Status int

const (
	// StatusMiss means no artifact exists.
	StatusMiss Status = iota
	// StatusHit means a fresh artifact exists.
	StatusHit
	// StatusStale means an artifact exists but has outlived the lifetime.
	StatusStale
)

func (s Status) String() string {
	switch s {
	case StatusHit:
		return "hit"
	case StatusStale:
		return "stale"
	default:
		return "miss"
	}
}

// Options configures a Store.
type Options struct {
	DirMode  os.FileMode // directories created for artifacts
	FileMode os.FileMode // artifact files
	// CreateRoot creates the cache root when it does not exist.
	CreateRoot bool
	Retry      filesystem.RetryConfig
}

// OptionFunc is a functional option for NewStore.
type OptionFunc func(opts *Options)

// WithDirMode sets the permission bits for created directories. Default 0755.
func WithDirMode(mode os.FileMode) OptionFunc {
	return func(opts *Options) {
		opts.DirMode = mode
	}
}

// WithFileMode sets the permission bits for artifact files. Default 0644.
func WithFileMode(mode os.FileMode) OptionFunc {
	return func(opts *Options) {
		opts.FileMode = mode
	}
}

// WithCreateRoot creates a missing cache root instead of failing.
func WithCreateRoot(create bool) OptionFunc {
	return func(opts *Options) {
		opts.CreateRoot = create
	}
}

// WithRetry sets the NFS retry behaviour for lookups.
func WithRetry(cfg filesystem.RetryConfig) OptionFunc {
	return func(opts *Options) {
		opts.Retry = cfg
	}
}

// Store reads and writes artifacts under a cache root.
// It is safe for concurrent use.
type Store struct {
	root  string
	opts  Options
	group singleflight.Group
}

// NewStore opens the cache rooted at root. The root must exist and be
// writable, or be creatable when WithCreateRoot is set. An empty root yields
// a store that can only write to explicit destinations.
func NewStore(root string, opts ...OptionFunc) (*Store, error) {
	options := Options{
		DirMode:  0o755,
		FileMode: 0o644,
		Retry:    filesystem.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	s := &Store{opts: options}
	if root == "" {
		return s, nil
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving cache root %s: %w", ErrIO, root, err)
	}
	if err := EnsureDir(abs, options.DirMode, options.CreateRoot); err != nil {
		return nil, err
	}
	s.root = abs
	return s, nil
}

// Root returns the absolute cache root, or "" when none is configured.
func (s *Store) Root() string {
	return s.root
}

// HasRoot reports whether artifacts can be written under a cache root.
func (s *Store) HasRoot() bool {
	return s.root != ""
}

// Path returns the absolute artifact path for k.
func (s *Store) Path(k Key) string {
	return filepath.Join(s.root, k.Path())
}

// Lookup checks an artifact path against the lifetime.
func (s *Store) Lookup(path string, now time.Time, lifetime Lifetime) (Status, os.FileInfo, error) {
	info, err := filesystem.StatWithRetry(path, s.opts.Retry)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			metrics.CacheLookupsTotal.WithLabelValues(StatusMiss.String()).Inc()
			return StatusMiss, nil, nil
		}
		return StatusMiss, nil, fmt.Errorf("%w: stat %s: %w", ErrIO, path, err)
	}
	if info.IsDir() {
		return StatusMiss, nil, fmt.Errorf("%w: %s is a directory", ErrIO, path)
	}

	status := StatusHit
	if IsStale(info.ModTime(), now, lifetime) {
		status = StatusStale
	}
	metrics.CacheLookupsTotal.WithLabelValues(status.String()).Inc()
	return status, info, nil
}

// RenderFunc writes artifact bytes to w.
type RenderFunc func(w io.Writer) error

// Write renders an artifact to path. Concurrent writes of the same path in
// this process are collapsed: one caller renders, the rest wait for its
// result. shared reports whether this call joined another caller's write.
// Parent directories are created when createDirs is set.
func (s *Store) Write(ctx context.Context, path string, createDirs bool, render RenderFunc) (written int64, shared bool, err error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	ch := s.group.DoChan(path, func() (interface{}, error) {
		return s.write(path, createDirs, render)
	})

	select {
	case <-ctx.Done():
		return 0, false, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.CacheSharedWrites.Inc()
		}
		if res.Err != nil {
			return 0, res.Shared, res.Err
		}
		return res.Val.(int64), res.Shared, nil
	}
}

func (s *Store) write(path string, createDirs bool, render RenderFunc) (n int64, err error) {
	start := time.Now()
	volume := "cache"
	if !s.contains(path) {
		volume = "unknown"
	}
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.CacheWritesTotal.WithLabelValues(status).Inc()
		if obs := filesystem.Observe(); obs != nil {
			obs.ObserveOperation(volume, "write", time.Since(start).Seconds(), err)
		}
	}()

	dir := filepath.Dir(path)
	if err := EnsureDir(dir, s.opts.DirMode, createDirs); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, ".imagelite-*")
	if err != nil {
		return 0, fmt.Errorf("%w: creating temp file in %s: %w", ErrIO, dir, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	cw := &countingWriter{w: tmp}
	if err := render(cw); err != nil {
		return 0, err
	}
	if err := tmp.Chmod(s.opts.FileMode); err != nil {
		logging.Debug("chmod %s: %v", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("%w: closing %s: %w", ErrIO, tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("%w: renaming into %s: %w", ErrIO, path, err)
	}
	committed = true

	metrics.CacheWriteBytes.Add(float64(cw.n))
	logging.Debug("Wrote artifact %s (%d bytes) in %v", path, cw.n, time.Since(start))
	return cw.n, nil
}

func (s *Store) contains(path string) bool {
	if s.root == "" {
		return false
	}
	rel, err := filepath.Rel(s.root, path)
	return err == nil && rel != ".." && !filepath.IsAbs(rel) && !startsWithParent(rel)
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// EnsureDir makes dir usable for writing. A missing directory is created
// with mode when create is set. An existing directory that fails the write
// probe is chmod'ed to mode and probed again.
func EnsureDir(dir string, mode os.FileMode, create bool) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", ErrIO, dir)
		}
	case errors.Is(err, os.ErrNotExist):
		if !create {
			return fmt.Errorf("%w: directory %s does not exist: %w", ErrIO, dir, err)
		}
		if err := os.MkdirAll(dir, mode); err != nil {
			return fmt.Errorf("%w: creating %s: %w", ErrIO, dir, err)
		}
		logging.Debug("Created directory %s (mode %04o)", dir, mode)
		return nil
	default:
		return fmt.Errorf("%w: stat %s: %w", ErrIO, dir, err)
	}

	if probeErr := writeProbe(dir); probeErr != nil {
		if chErr := os.Chmod(dir, mode); chErr != nil {
			return fmt.Errorf("%w: directory %s is not writable: %w", ErrIO, dir, probeErr)
		}
		if err := writeProbe(dir); err != nil {
			return fmt.Errorf("%w: directory %s is not writable after chmod %04o: %w", ErrIO, dir, mode, err)
		}
		logging.Info("Directory %s was not writable; changed mode to %04o", dir, mode)
	}
	return nil
}

func writeProbe(dir string) error {
	f, err := os.CreateTemp(dir, ".imagelite-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
