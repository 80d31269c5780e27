package media

import (
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"io"
	"math"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/disintegration/imaging"

	"imagelite/internal/geometry"
	"imagelite/internal/imagetypes"
)

// compose places the already scaled content on the job's canvas. Only
// letterbox jobs have a canvas larger than the content.
func compose(scaled image.Image, job Job) image.Image {
	g := job.Geometry
	if g.CanvasWidth == g.DstWidth && g.CanvasHeight == g.DstHeight {
		return scaled
	}
	canvas := imaging.New(g.CanvasWidth, g.CanvasHeight, backgroundColor(job))
	return imaging.Paste(canvas, scaled, image.Pt(g.DstX, g.DstY))
}

// backgroundColor is the letterbox fill. JPEG fills are always opaque; GIF
// fills are opaque unless fully transparent.
func backgroundColor(job Job) color.NRGBA {
	r, g, b := job.Background.RGB()
	a := job.Background.Opacity()
	switch job.Format {
	case imagetypes.FormatJPEG:
		a = 255
	case imagetypes.FormatGIF:
		if job.Background.Alpha < geometry.MaxAlpha {
			a = 255
		}
	}
	return color.NRGBA{R: r, G: g, B: b, A: a}
}

// finish rotates, sharpens and encodes the composed image.
func finish(img image.Image, job Job, w io.Writer) error {
	img = rotate(img, job.Rotation)
	if job.Sharpen > 0 {
		img = sharpen(img, job.Sharpen)
	}
	return encode(w, img, job)
}

// rotate turns img counter-clockwise by a multiple of 90 degrees.
func rotate(img image.Image, degrees int) image.Image {
	switch ((geometry.NormalizeRotation(degrees) % 360) + 360) % 360 {
	case 90:
		return imaging.Rotate90(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate270(img)
	}
	return img
}

func sharpen(img image.Image, level int) image.Image {
	k, divisor := geometry.SharpenKernel(level)
	kernel := convolution.NewKernel(3, 3)
	for i, v := range k {
		kernel.Matrix[i] = v / divisor
	}
	return convolution.Convolve(img, kernel, &convolution.Options{KeepAlpha: true})
}

func encode(w io.Writer, img image.Image, job Job) error {
	var err error
	switch job.Format {
	case imagetypes.FormatJPEG:
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(job.Quality))
	case imagetypes.FormatPNG:
		err = imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(pngCompression(job.Quality)))
	case imagetypes.FormatGIF:
		err = encodeGIF(w, img)
	default:
		return fmt.Errorf("%w: cannot encode %q", ErrUnsupportedFormat, job.Format)
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", job.Format, err)
	}
	return nil
}

// PNGCompressionLevel maps quality 0..100 to a zlib level 0..9, higher
// quality meaning less compression: 9-round(q/100*9).
func PNGCompressionLevel(quality int) int {
	return 9 - int(math.Round(float64(geometry.NormalizeLevel(quality))/100*9))
}

// pngCompression buckets the zlib level into the levels image/png offers.
func pngCompression(quality int) png.CompressionLevel {
	switch level := PNGCompressionLevel(quality); {
	case level == 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

// encodeGIF keeps fully transparent pixels transparent by reserving a
// palette entry for them.
func encodeGIF(w io.Writer, img image.Image) error {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return imaging.Encode(w, img, imaging.GIF, imaging.GIFNumColors(256))
	}

	pal := make(color.Palette, 0, len(palette.WebSafe)+1)
	pal = append(pal, palette.WebSafe...)
	pal = append(pal, color.Transparent)

	b := img.Bounds()
	pm := image.NewPaletted(b, pal)
	draw.FloydSteinberg.Draw(pm, b, img, b.Min)
	return gif.Encode(w, pm, &gif.Options{NumColors: len(pal)})
}
