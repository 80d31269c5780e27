package media

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

var (
	// ErrNotAnImage reports a file that no registered decoder recognises.
	ErrNotAnImage = errors.New("not an image")
	// ErrUnsupportedFormat reports an image in a format that cannot be written.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrResourceLimit reports a source whose decoded size exceeds the
	// processing budget.
	ErrResourceLimit = errors.New("resource limit exceeded")
	// ErrVipsUnavailable reports use of the vips codec before InitVips.
	ErrVipsUnavailable = errors.New("libvips not available")
)

// ResourceLimitError describes a source that will probably not fit in the
// processing budget. It matches ErrResourceLimit with errors.Is.
type ResourceLimitError struct {
	Path   string
	Width  int
	Height int
	// Budget is the processing budget in bytes.
	Budget uint64
	// RequiredMin and RequiredMax bracket the estimated memory needed.
	RequiredMin uint64
	RequiredMax uint64
	// RecommendedSide is the largest square image the budget fits.
	RecommendedSide int
	// CurrentSide is the source area expressed as a square side.
	CurrentSide int
}

func (e *ResourceLimitError) Error() string {
	name := e.Path
	if name == "" {
		name = "image"
	}
	return fmt.Sprintf("%s: %dx%d (~%dx%d square) needs an estimated %s to %s; budget %s fits a %dx%d square",
		name, e.Width, e.Height, e.CurrentSide, e.CurrentSide,
		humanize.IBytes(e.RequiredMin), humanize.IBytes(e.RequiredMax),
		humanize.IBytes(e.Budget), e.RecommendedSide, e.RecommendedSide)
}

// Is reports whether target is ErrResourceLimit.
func (e *ResourceLimitError) Is(target error) bool {
	return target == ErrResourceLimit
}
