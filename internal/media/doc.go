// Package media reads source image metadata and renders transforms.
//
// [Prober] reads only the image header (width, height, format) and checks
// the decoded size against a processing budget. Sources over budget are
// reported with a [*ResourceLimitError] alongside valid metadata; callers
// decide whether to go ahead.
//
// A [Codec] does the pixel work for a resolved [Job]: crop, resample,
// letterbox padding, rotation, sharpening and encoding. Two implementations
// exist. [ImagingCodec] is pure Go (disintegration/imaging with bild for the
// convolution). [VipsCodec] crops and resamples in libvips, which is much
// lighter on memory for large sources, then hands the result to the same
// post-processing as the imaging codec so both produce the same layout.
//
// GIF, JPEG and PNG are supported. WebP, BMP and TIFF are recognised so they
// can be rejected as unsupported rather than as "not an image".
package media
