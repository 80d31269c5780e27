package media

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"imagelite/internal/imagetypes"
)

// gradient returns a width x height image with a horizontal red ramp and a
// vertical green ramp.
func gradient(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8((x * 255) / max(width-1, 1)),
				G: uint8((y * 255) / max(height-1, 1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func encodeFixture(t *testing.T, img image.Image, format imagetypes.Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	var err error
	switch format {
	case imagetypes.FormatJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case imagetypes.FormatPNG:
		err = png.Encode(&buf, img)
	case imagetypes.FormatGIF:
		err = gif.Encode(&buf, img, nil)
	default:
		t.Fatalf("no fixture encoder for %q", format)
	}
	if err != nil {
		t.Fatalf("encoding %s fixture: %v", format, err)
	}
	return buf.Bytes()
}

func writeFixture(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", path, err)
	}
	return path
}

func decodeOutput(t *testing.T, data []byte) (image.Image, string) {
	t.Helper()
	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding rendered output: %v", err)
	}
	return img, name
}
