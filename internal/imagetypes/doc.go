// Package imagetypes defines the raster formats imagelite can transform and
// the helpers that map between decoder names, file extensions, MIME types and
// file signatures.
//
// Like the rest of the leaf packages it has no dependencies beyond the
// standard library so that media, cache and session can all import it.
//
// Only GIF, JPEG and PNG are transformable. Other formats are still
// recognised by [Sniff] so callers can tell "an image we cannot handle" apart
// from "not an image at all".
package imagetypes
