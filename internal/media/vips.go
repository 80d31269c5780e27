package media

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"

	"imagelite/internal/imagetypes"
	"imagelite/internal/logging"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// VipsConfig tunes libvips at startup.
type VipsConfig struct {
	ConcurrencyLevel int
	MaxCacheMem      int
	MaxCacheSize     int
}

// DefaultVipsConfig keeps libvips to one thread and a small operation cache.
func DefaultVipsConfig() VipsConfig {
	return VipsConfig{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	}
}

// InitVips starts libvips once per process and routes its log output through
// the logging package at the matching level.
func InitVips(cfg VipsConfig) error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Logging must be configured before Startup.
	vips.LoggingSettings(vipsLogHandler, vipsLogLevel(logging.GetLevel()))

	vips.Startup(&vips.Config{
		ConcurrencyLevel: cfg.ConcurrencyLevel,
		MaxCacheMem:      cfg.MaxCacheMem,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized (version: %s)", vips.Version)
	return nil
}

// vipsLogLevel is the most verbose libvips level worth forwarding.
func vipsLogLevel(level logging.LogLevel) vips.LogLevel {
	switch level {
	case logging.LevelDebug:
		return vips.LogLevelInfo
	case logging.LevelInfo:
		return vips.LogLevelWarning
	case logging.LevelWarn:
		return vips.LogLevelError
	case logging.LevelError:
		return vips.LogLevelCritical
	default:
		return vips.LogLevelWarning
	}
}

func vipsLogHandler(domain string, level vips.LogLevel, msg string) {
	switch level {
	case vips.LogLevelError, vips.LogLevelCritical:
		logging.Error("[%s] %s", domain, msg)
	case vips.LogLevelWarning:
		logging.Warn("[%s] %s", domain, msg)
	default:
		logging.Debug("[%s] %s", domain, msg)
	}
}

// ShutdownVips releases libvips. libvips cannot be restarted afterwards.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable reports whether InitVips has run.
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// VipsCodec crops and resamples in libvips, shrinking JPEGs while decoding,
// then finishes with the shared post-processing.
type VipsCodec struct{}

// Name implements Codec.
func (VipsCodec) Name() string { return "vips" }

// Supports implements Codec.
func (VipsCodec) Supports(format imagetypes.Format) bool {
	return format.Valid()
}

// Render implements Codec.
func (c VipsCodec) Render(src []byte, job Job, w io.Writer) error {
	if !IsVipsAvailable() {
		return ErrVipsUnavailable
	}
	if !c.Supports(job.Format) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, job.Format)
	}

	params := vips.NewImportParams()
	shrink := 1
	if job.Format == imagetypes.FormatJPEG {
		shrink = jpegShrinkFactor(job)
		if shrink > 1 {
			params.JpegShrinkFactor.Set(shrink)
		}
	}

	ref, err := vips.LoadImageFromBuffer(src, params)
	if err != nil {
		return fmt.Errorf("%w: vips load: %w", ErrNotAnImage, err)
	}
	defer ref.Close()

	g := job.Geometry
	// Shrink-on-load rounds the decoded size; map the window through the
	// actual ratio rather than the requested factor.
	fx := float64(ref.Width()) / float64(job.Source.Width)
	fy := float64(ref.Height()) / float64(job.Source.Height)
	left := clampInt(int(math.Floor(float64(g.SrcX)*fx)), 0, ref.Width()-1)
	top := clampInt(int(math.Floor(float64(g.SrcY)*fy)), 0, ref.Height()-1)
	width := clampInt(int(math.Round(float64(g.SrcWidth)*fx)), 1, ref.Width()-left)
	height := clampInt(int(math.Round(float64(g.SrcHeight)*fy)), 1, ref.Height()-top)

	if left != 0 || top != 0 || width != ref.Width() || height != ref.Height() {
		if err := ref.ExtractArea(left, top, width, height); err != nil {
			return fmt.Errorf("vips crop: %w", err)
		}
	}

	hscale := float64(g.DstWidth) / float64(width)
	vscale := float64(g.DstHeight) / float64(height)
	if hscale != 1 || vscale != 1 {
		if err := ref.ResizeWithVScale(hscale, vscale, vips.KernelLanczos3); err != nil {
			return fmt.Errorf("vips resize: %w", err)
		}
	}

	out, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return fmt.Errorf("vips export: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		return fmt.Errorf("decoding vips output: %w", err)
	}

	// libvips may land a pixel off the requested size.
	if img.Bounds().Dx() != g.DstWidth || img.Bounds().Dy() != g.DstHeight {
		logging.Debug("vips produced %dx%d, adjusting to %dx%d",
			img.Bounds().Dx(), img.Bounds().Dy(), g.DstWidth, g.DstHeight)
		img = imaging.Resize(img, g.DstWidth, g.DstHeight, imaging.Lanczos)
	}

	if shrink > 1 {
		logging.Debug("vips shrink-on-load %d for %dx%d source", shrink, job.Source.Width, job.Source.Height)
	}
	return finish(compose(img, job), job, w)
}

// jpegShrinkFactor returns the largest libjpeg scale denominator (2, 4 or 8)
// that still leaves the crop window at least as large as the destination.
func jpegShrinkFactor(job Job) int {
	g := job.Geometry
	if job.Source.Width < 1 || job.Source.Height < 1 {
		return 1
	}
	best := 1
	for _, f := range []int{2, 4, 8} {
		if g.SrcWidth/f >= g.DstWidth && g.SrcHeight/f >= g.DstHeight {
			best = f
		}
	}
	return best
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
