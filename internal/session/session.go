package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"imagelite/internal/cache"
	"imagelite/internal/geometry"
	"imagelite/internal/media"
)

// ErrNotResolved is returned when a session is saved before any resize
// call.
var ErrNotResolved = errors.New("no resize strategy applied")

// State is the lifecycle position of a Session.
type State int

const (
	// StateOpened means no strategy has been applied yet.
	StateOpened State = iota
	// StateResolved means geometry and key are known.
	StateResolved
	// StateSaved means the artifact exists for the current geometry.
	StateSaved
)

func (s State) String() string {
	switch s {
	case StateResolved:
		return "resolved"
	case StateSaved:
		return "saved"
	default:
		return "opened"
	}
}

// Session is a fluent transform of one source file. The last strategy
// call wins. A Session is not safe for concurrent use.
type Session struct {
	engine *Engine
	path   string

	req    geometry.Request
	state  State
	result Result
}

func newSession(e *Engine, path string) *Session {
	return &Session{
		engine: e,
		path:   path,
		req:    geometry.DefaultRequest(),
	}
}

// Path returns the canonical source path.
func (s *Session) Path() string {
	return s.path
}

// Quality sets the output quality, 0 to 100.
func (s *Session) Quality(level int) *Session {
	s.req.Quality = geometry.NormalizeLevel(level)
	s.refresh()
	return s
}

// Sharpen sets the sharpening level, 0 (off) to 100.
func (s *Session) Sharpen(level int) *Session {
	s.req.Sharpen = geometry.NormalizeLevel(level)
	s.refresh()
	return s
}

// Rotate sets a counter-clockwise rotation. Anything other than a multiple
// of 90 within a full turn resets it to 0.
func (s *Session) Rotate(degrees int) *Session {
	s.req.Rotation = geometry.NormalizeRotation(degrees)
	s.refresh()
	return s
}

// AspectRatio sets whether standard resizes keep the source aspect ratio.
func (s *Session) AspectRatio(keep bool) *Session {
	s.req.KeepAspectRatio = keep
	s.refresh()
	return s
}

// Constrain sets whether standard and letterbox resizes may upscale.
func (s *Session) Constrain(constrain bool) *Session {
	s.req.Constrain = constrain
	s.refresh()
	return s
}

// Resize fits the source into width x height. Either dimension may be
// geometry.Auto.
func (s *Session) Resize(width, height geometry.Dimension) error {
	req := s.req
	req.Strategy = geometry.StrategyStandard
	req.Width, req.Height = width, height
	return s.apply(req)
}

// ResizeCropToFit fills width x height exactly, cropping the source
// centrally. A missing dimension copies the other.
func (s *Session) ResizeCropToFit(width, height geometry.Dimension) error {
	req := s.req
	req.Strategy = geometry.StrategyCropToFit
	req.Width, req.Height = width, height
	return s.apply(req)
}

// ResizeLetterbox fits the source inside a width x height canvas filled
// with color (6 hex digits) at alpha (0 opaque to 127 transparent).
func (s *Session) ResizeLetterbox(width, height geometry.Dimension, color string, alpha int) error {
	req := s.req
	req.Strategy = geometry.StrategyLetterbox
	req.Width, req.Height = width, height
	req.Background = geometry.NewBackground(color, alpha)
	return s.apply(req)
}

// ResizePercent scales both axes by pct, clamped to 1..100.
func (s *Session) ResizePercent(pct int) error {
	req := s.req
	req.Strategy = geometry.StrategyPercent
	req.Percent = pct
	return s.apply(req)
}

// apply re-probes the source and resolves req. On failure the previous
// state is kept. A missing cache root is not an error until Save.
func (s *Session) apply(req geometry.Request) error {
	res, err := s.engine.resolve(s.path, req)
	if err != nil {
		return err
	}
	if err := s.engine.locate(&res, transformOptions{}); err != nil && !errors.Is(err, ErrNoDestination) {
		return err
	}
	s.req = res.Request
	s.result = res
	s.state = StateResolved
	return nil
}

// refresh re-resolves against the last probe after a setter changes the
// request.
func (s *Session) refresh() {
	if s.state == StateOpened {
		return
	}
	req := s.req.Normalized()
	src := geometry.Source{Width: s.result.Source.Width, Height: s.result.Source.Height}
	geo, err := geometry.Resolve(req, src)
	if err != nil {
		return
	}
	res := s.result
	res.Request = req
	res.Geometry = geo
	res.Key = cache.DeriveKey(res.Source.Path, geo, req, res.Source.Format)
	res.Status = cache.StatusMiss
	res.Generated = false
	res.Bytes = 0
	_ = s.engine.locate(&res, transformOptions{})
	s.result = res
	s.state = StateResolved
}

// Save writes the artifact to the cache unless a fresh one exists.
func (s *Session) Save(ctx context.Context) error {
	return s.save(ctx)
}

// SaveAs writes the artifact to path instead of the cache. Missing parent
// directories are created when createPath is set.
func (s *Session) SaveAs(ctx context.Context, path string, createPath bool) error {
	if path == "" {
		return s.save(ctx)
	}
	return s.save(ctx, WithDestination(path, createPath))
}

// SaveForce regenerates the artifact even when it is fresh.
func (s *Session) SaveForce(ctx context.Context) error {
	return s.save(ctx, WithForce())
}

func (s *Session) save(ctx context.Context, opts ...TransformOption) error {
	if s.state == StateOpened {
		return ErrNotResolved
	}
	res, err := s.engine.Transform(ctx, s.path, s.req, opts...)
	if err != nil {
		return err
	}
	s.result = res
	s.state = StateSaved
	return nil
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Request returns the normalised request of the last strategy call.
func (s *Session) Request() geometry.Request {
	return s.req.Normalized()
}

// Meta returns the source metadata from the last probe.
func (s *Session) Meta() media.SourceMeta {
	return s.result.Source
}

// Geometry returns the resolved geometry.
func (s *Session) Geometry() geometry.Geometry {
	return s.result.Geometry
}

// Key returns the cache key of the resolved transform.
func (s *Session) Key() cache.Key {
	return s.result.Key
}

// CachePath returns the absolute artifact path. It is empty when no cache
// root is configured and nothing has been saved.
func (s *Session) CachePath() string {
	return s.result.Path
}

// URI returns the public URI of the artifact.
func (s *Session) URI() string {
	return s.result.URI
}

// Result returns the last planned or completed transform.
func (s *Session) Result() Result {
	return s.result
}

// Warning returns the resource limit report of the last probe, if any.
func (s *Session) Warning() error {
	return s.result.Warning
}

// Describe returns a multi-line dump of the session for debugging.
func (s *Session) Describe() string {
	var b strings.Builder
	field := func(name, format string, args ...any) {
		fmt.Fprintf(&b, "%-12s "+format+"\n", append([]any{name + ":"}, args...)...)
	}

	field("source", "%s", s.path)
	field("state", "%s", s.state)
	if s.state == StateOpened {
		return b.String()
	}

	res := s.result
	req := res.Request
	g := res.Geometry
	field("format", "%s %dx%d", res.Source.Format, res.Source.Width, res.Source.Height)
	field("strategy", "%s", cache.StrategyIdentity(req, g))
	field("request", "width=%s height=%s percent=%d keep-aspect=%t constrain=%t",
		req.Width, req.Height, req.Percent, req.KeepAspectRatio, req.Constrain)
	field("params", "quality=%d sharpen=%d rotation=%d", req.Quality, req.Sharpen, req.Rotation)
	field("destination", "%dx%d at %d,%d on %dx%d canvas", g.DstWidth, g.DstHeight, g.DstX, g.DstY, g.CanvasWidth, g.CanvasHeight)
	field("crop", "%dx%d at %d,%d", g.SrcWidth, g.SrcHeight, g.SrcX, g.SrcY)
	field("cache dir", "%s", res.Key.Dir())
	field("filename", "%s", res.Key.Filename)
	field("cache path", "%s", res.Path)
	field("uri", "%s", res.URI)
	if res.Warning != nil {
		field("warning", "%v", res.Warning)
	}
	return b.String()
}
