package media

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"

	"imagelite/internal/imagetypes"
)

// ImagingCodec renders in pure Go with disintegration/imaging.
type ImagingCodec struct{}

// Name implements Codec.
func (ImagingCodec) Name() string { return "imaging" }

// Supports implements Codec.
func (ImagingCodec) Supports(format imagetypes.Format) bool {
	return format.Valid()
}

// Render implements Codec. EXIF orientation is not applied, so the decoded
// pixels match the probed dimensions.
func (c ImagingCodec) Render(src []byte, job Job, w io.Writer) error {
	if !c.Supports(job.Format) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, job.Format)
	}
	img, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		return fmt.Errorf("%w: decoding: %w", ErrNotAnImage, err)
	}
	return finish(compose(scale(img, job), job), job, w)
}

// scale crops the source window and resamples it to the destination size.
func scale(img image.Image, job Job) image.Image {
	g := job.Geometry
	b := img.Bounds()
	window := image.Rect(g.SrcX, g.SrcY, g.SrcX+g.SrcWidth, g.SrcY+g.SrcHeight).Add(b.Min)
	if window != b {
		img = imaging.Crop(img, window)
	}
	if img.Bounds().Dx() == g.DstWidth && img.Bounds().Dy() == g.DstHeight {
		return img
	}
	return imaging.Resize(img, g.DstWidth, g.DstHeight, imaging.Lanczos)
}
