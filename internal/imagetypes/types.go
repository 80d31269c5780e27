package imagetypes

// Format is a transformable raster format. The string value doubles as the
// artifact file extension.
type Format string

const (
	// FormatGIF is a GIF image.
	FormatGIF Format = "gif"
	// FormatJPEG is a JPEG image. Artifacts use the "jpg" extension.
	FormatJPEG Format = "jpg"
	// FormatPNG is a PNG image.
	FormatPNG Format = "png"
)

// Formats lists every transformable format.
var Formats = []Format{FormatGIF, FormatJPEG, FormatPNG}

var mimeTypes = map[Format]string{
	FormatGIF:  "image/gif",
	FormatJPEG: "image/jpeg",
	FormatPNG:  "image/png",
}

// Extension returns the artifact file extension without the leading dot.
func (f Format) Extension() string {
	return string(f)
}

// MimeType returns the MIME type, or "application/octet-stream" for an
// unknown format.
func (f Format) MimeType() string {
	if mime, ok := mimeTypes[f]; ok {
		return mime
	}
	return "application/octet-stream"
}

// Valid reports whether f is one of the transformable formats.
func (f Format) Valid() bool {
	_, ok := mimeTypes[f]
	return ok
}

// FromDecoderName maps the format name reported by image.DecodeConfig to a
// Format. The second result is false for decoders that are registered but
// not transformable (webp, bmp, tiff).
func FromDecoderName(name string) (Format, bool) {
	switch name {
	case "gif":
		return FormatGIF, true
	case "jpeg":
		return FormatJPEG, true
	case "png":
		return FormatPNG, true
	}
	return "", false
}

// FromExtension maps a lowercase extension with leading dot to a Format.
func FromExtension(ext string) (Format, bool) {
	switch ext {
	case ".gif":
		return FormatGIF, true
	case ".jpg", ".jpeg":
		return FormatJPEG, true
	case ".png":
		return FormatPNG, true
	}
	return "", false
}
