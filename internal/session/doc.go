// Package session ties probing, geometry, cache identity and rendering
// together.
//
// An [Engine] holds the configuration shared by every transform: the cache
// store, the codec, the processing budget and an optional manifest.
// [Engine.Transform] is the value-based entry point: it probes the source,
// resolves the request, derives the cache key, and renders only when the
// artifact is missing or stale.
//
// A [Session] is the fluent, stateful view of one source file:
//
//	s, err := engine.Session("photos/cat.jpg")
//	if err != nil { ... }
//	if err := s.Quality(85).Sharpen(20).Resize(geometry.Px(250), geometry.Auto); err != nil { ... }
//	if err := s.Save(ctx); err != nil { ... }
//	fmt.Println(s.URI())
//
// Engine methods are safe for concurrent use. A Session is not; each
// goroutine should use its own engine-registered session or call Transform
// directly.
package session
