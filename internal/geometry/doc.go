// Package geometry resolves a transform request against source dimensions.
//
// [Resolve] is a pure function: given a [Request] and the [Source] size it
// returns the destination size, the crop window inside the source and the
// placement of the scaled content on the output canvas. Nothing here touches
// pixels or the filesystem.
//
// Four strategies are supported:
//
//   - standard: fit inside a box, optionally keeping the aspect ratio
//   - crop-to-fit: fill the box exactly, cropping the source centrally
//   - letterbox: fit inside a fixed canvas, padding with a background colour
//   - percent: scale both axes by a percentage
//
// Scaled sizes are rounded half away from zero; centering offsets use
// integer floor division. Every size is at least one pixel.
//
// Rotation, sharpen and quality are post-processing parameters. They are
// normalised here (out of range values are clamped or reset rather than
// rejected) and [SharpenKernel] produces the convolution matrix the codec
// applies.
package geometry
