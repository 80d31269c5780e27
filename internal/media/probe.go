package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"path/filepath"
	"time"

	// Decoders for DecodeConfig
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"imagelite/internal/filesystem"
	"imagelite/internal/imagetypes"
	"imagelite/internal/logging"
	"imagelite/internal/metrics"
)

const (
	bytesPerPixel = 4

	// Decoding needs more than the raw RGBA buffer; the estimate is a range.
	overheadMin = 1.4
	overheadMax = 1.8
)

// SourceMeta is what a probe learns about a source file.
type SourceMeta struct {
	Path    string
	Width   int
	Height  int
	Format  imagetypes.Format
	Size    int64
	ModTime time.Time
}

// Prober reads source metadata.
type Prober struct {
	// Budget is the processing memory budget in bytes; zero disables the check.
	Budget uint64
	Retry  filesystem.RetryConfig
}

// NewProber returns a prober with the given budget and default NFS retries.
func NewProber(budget uint64) *Prober {
	return &Prober{Budget: budget, Retry: filesystem.DefaultRetryConfig()}
}

// Probe reads the header of the file at path. The path is made absolute.
//
// A source over budget returns its metadata together with a
// *ResourceLimitError.
func (p *Prober) Probe(path string) (SourceMeta, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return SourceMeta{}, fmt.Errorf("resolving %s: %w", path, err)
	}

	info, err := filesystem.StatWithRetry(abs, p.Retry)
	if err != nil {
		return SourceMeta{}, fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return SourceMeta{}, fmt.Errorf("%w: %s is a directory", ErrNotAnImage, abs)
	}

	f, err := filesystem.OpenWithRetry(abs, p.Retry)
	if err != nil {
		return SourceMeta{}, fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", abs, err)
		}
	}()

	meta, err := decodeHeader(f, abs)
	if err != nil {
		return SourceMeta{}, err
	}
	meta.Size = info.Size()
	meta.ModTime = info.ModTime()

	return meta, p.checkBudget(meta)
}

// ProbeBytes reads metadata from an in-memory image.
func (p *Prober) ProbeBytes(data []byte) (SourceMeta, error) {
	meta, err := decodeHeader(bytes.NewReader(data), "")
	if err != nil {
		return SourceMeta{}, err
	}
	meta.Size = int64(len(data))
	return meta, p.checkBudget(meta)
}

func decodeHeader(r io.ReadSeeker, path string) (SourceMeta, error) {
	cfg, name, err := image.DecodeConfig(r)
	if err != nil {
		header := make([]byte, imagetypes.SniffLen)
		if _, seekErr := r.Seek(0, io.SeekStart); seekErr == nil {
			n, _ := io.ReadFull(r, header)
			header = header[:n]
		}
		if imagetypes.IsImageSignature(header) {
			metrics.ProbesTotal.WithLabelValues("unsupported").Inc()
			return SourceMeta{}, fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, displayName(path), imagetypes.Sniff(header))
		}
		metrics.ProbesTotal.WithLabelValues("not_image").Inc()
		return SourceMeta{}, fmt.Errorf("%w: %s: %w", ErrNotAnImage, displayName(path), err)
	}

	format, ok := imagetypes.FromDecoderName(name)
	if !ok {
		metrics.ProbesTotal.WithLabelValues("unsupported").Inc()
		return SourceMeta{}, fmt.Errorf("%w: %s is %s", ErrUnsupportedFormat, displayName(path), name)
	}
	if cfg.Width < 1 || cfg.Height < 1 {
		metrics.ProbesTotal.WithLabelValues("not_image").Inc()
		return SourceMeta{}, fmt.Errorf("%w: %s has size %dx%d", ErrNotAnImage, displayName(path), cfg.Width, cfg.Height)
	}

	metrics.ProbesTotal.WithLabelValues(string(format)).Inc()
	logging.Debug("Probed %s: %dx%d %s", displayName(path), cfg.Width, cfg.Height, format)
	return SourceMeta{
		Path:   path,
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
	}, nil
}

func (p *Prober) checkBudget(meta SourceMeta) error {
	lerr := CheckBudget(meta.Width, meta.Height, p.Budget)
	if lerr == nil {
		return nil
	}
	lerr.Path = meta.Path
	metrics.ResourceLimitExceeded.Inc()
	logging.Warn("%v", lerr)
	return lerr
}

// CheckBudget estimates the memory needed to process a width x height image
// and returns a *ResourceLimitError when the upper estimate exceeds budget.
// A zero budget never fails.
func CheckBudget(width, height int, budget uint64) *ResourceLimitError {
	if budget == 0 {
		return nil
	}
	raw := float64(width) * float64(height) * bytesPerPixel
	if raw*overheadMax <= float64(budget) {
		return nil
	}
	return &ResourceLimitError{
		Width:           width,
		Height:          height,
		Budget:          budget,
		RequiredMin:     uint64(math.Round(raw * overheadMin)),
		RequiredMax:     uint64(math.Round(raw * overheadMax)),
		RecommendedSide: int(math.Sqrt(float64(budget) / (bytesPerPixel * overheadMax))),
		CurrentSide:     int(math.Sqrt(float64(width) * float64(height))),
	}
}

// IsResourceLimit reports whether err carries a resource limit report and
// returns it.
func IsResourceLimit(err error) (*ResourceLimitError, bool) {
	var lerr *ResourceLimitError
	if errors.As(err, &lerr) {
		return lerr, true
	}
	return nil, false
}

func displayName(path string) string {
	if path == "" {
		return "image"
	}
	return path
}
