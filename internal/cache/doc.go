// Package cache names, ages and writes transformed image artifacts.
//
// # Identity
//
// [DeriveKey] maps a resolved transform to a relative path:
//
//	<dstW>/<dstH>/<b0>/<b1>/q<quality>-r<rotation>-s<sharpen>-c<0|1>/<sha1(strategy)>_<sha1(source)>.<ext>
//
// b0 and b1 are the decimal byte values of the first two hex characters of
// the source path's SHA-1. The layout is stable: artifacts written by one
// release are found by the next.
//
// # Freshness
//
// A [Lifetime] is a relative time expression ("-1 month", "2 weeks", "36h").
// An artifact is stale when its modification time is older than now shifted
// by the lifetime. The zero Lifetime never expires.
//
// # Writing
//
// [Store] serialises writers per artifact path inside the process and
// writes through a temporary file in the destination directory followed by
// a rename, so readers see either the old artifact or the complete new one.
// Artifacts are never deleted here.
package cache
